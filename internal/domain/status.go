package domain

type Status string

const (
	StatusWaiting             Status = "WAITING"
	StatusAutoTeamComposition Status = "AUTO_TEAM_COMPOSITION"
	StatusAuctionInProgress   Status = "AUCTION_IN_PROGRESS"
	StatusInProgress          Status = "IN_PROGRESS"
)

var transitions = map[Status][]Status{
	StatusWaiting:             {StatusAutoTeamComposition, StatusAuctionInProgress},
	StatusAutoTeamComposition: {StatusInProgress},
	StatusAuctionInProgress:   {StatusInProgress},
}

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusAutoTeamComposition, StatusAuctionInProgress, StatusInProgress:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Composed - команды уже собраны, можно запускать матчи.
func (s Status) Composed() bool {
	return s == StatusAutoTeamComposition || s == StatusAuctionInProgress
}

type CompositionMethod string

const (
	CompositionAuto    CompositionMethod = "AUTO"
	CompositionAuction CompositionMethod = "AUCTION"
)

func ParseCompositionMethod(s string) (CompositionMethod, error) {
	switch CompositionMethod(s) {
	case CompositionAuto, CompositionAuction:
		return CompositionMethod(s), nil
	}
	return "", ErrInvalidCompositionMethod
}

// Status в который переводит комнату данный способ.
func (m CompositionMethod) Status() Status {
	if m == CompositionAuction {
		return StatusAuctionInProgress
	}
	return StatusAutoTeamComposition
}

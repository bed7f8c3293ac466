package composition

import (
	"math/rand/v2"

	"github.com/cwrk-planet/lobby-service/internal/domain"
)

// Auto: случайная перестановка, первая половина - команда 1, вторая - 2.
type Auto struct {
	shuffle func(n int, swap func(i, j int))
}

// NewAuto; shuffle == nil -> math/rand/v2.
func NewAuto(shuffle func(n int, swap func(i, j int))) *Auto {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &Auto{shuffle: shuffle}
}

func (a *Auto) Method() domain.CompositionMethod { return domain.CompositionAuto }

func (a *Auto) Apply(room *domain.Room) error {
	n := len(room.Participants)
	if n == 0 || n%2 != 0 {
		return domain.ErrOddParticipantCount
	}
	if !room.Status.CanTransitionTo(domain.StatusAutoTeamComposition) {
		return domain.ErrInvalidStateTransition
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	a.shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	for pos, idx := range order {
		team := domain.TeamOne
		if pos >= n/2 {
			team = domain.TeamTwo
		}
		room.Participants[idx].TeamNumber = domain.Team(team)
	}

	return transition(room, domain.CompositionAuto)
}

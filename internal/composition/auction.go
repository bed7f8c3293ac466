package composition

import "github.com/cwrk-planet/lobby-service/internal/domain"

// Auction только переводит комнату в AUCTION_IN_PROGRESS; сами торги
// и назначение команд живут снаружи.
type Auction struct{}

func (Auction) Method() domain.CompositionMethod { return domain.CompositionAuction }

func (Auction) Apply(room *domain.Room) error {
	return transition(room, domain.CompositionAuction)
}

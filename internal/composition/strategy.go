// Package composition распределяет участников комнаты по командам.
package composition

import "github.com/cwrk-planet/lobby-service/internal/domain"

// Strategy меняет комнату на месте: команды, метод и статус.
// Ошибка означает, что комната не тронута.
type Strategy interface {
	Method() domain.CompositionMethod
	Apply(room *domain.Room) error
}

type Registry map[domain.CompositionMethod]Strategy

func NewRegistry(strategies ...Strategy) Registry {
	r := make(Registry, len(strategies))
	for _, s := range strategies {
		r[s.Method()] = s
	}
	return r
}

// Default: Auto со случайным перемешиванием и Auction.
func Default() Registry {
	return NewRegistry(NewAuto(nil), Auction{})
}

func (r Registry) For(m domain.CompositionMethod) (Strategy, error) {
	s, ok := r[m]
	if !ok {
		return nil, domain.ErrInvalidCompositionMethod
	}
	return s, nil
}

func transition(room *domain.Room, m domain.CompositionMethod) error {
	if err := room.TransitionTo(m.Status()); err != nil {
		return err
	}
	room.CompositionMethod = m
	return nil
}

package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/cwrk-planet/lobby-service/internal/domain"
)

type UserStore struct {
	mu     sync.RWMutex
	byID   map[int64]domain.User
	nextID int64
}

func NewUserStore(seed ...domain.User) *UserStore {
	s := &UserStore{byID: make(map[int64]domain.User)}
	for _, u := range seed {
		_, _ = s.Upsert(context.Background(), u)
	}
	return s
}

// Upsert по email; ID == 0 -> выдаётся следующий.
func (s *UserStore) Upsert(_ context.Context, u domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for id, existing := range s.byID {
		if existing.Email == u.Email {
			existing.Nickname = u.Nickname
			s.byID[id] = existing
			return &existing, nil
		}
	}
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	s.byID[u.ID] = u
	return &u, nil
}

func (s *UserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

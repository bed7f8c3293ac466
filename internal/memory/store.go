// Package memory - хранилище комнат и пользователей в памяти процесса
// для локального запуска и тестов.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/pagination"
)

type entry struct {
	mu   sync.Mutex // сериализует мутации одной комнаты
	room *domain.Room
}

type RoomStore struct {
	mu     sync.RWMutex
	byCode map[string]*entry
	byID   map[string]*entry
	codes  map[string]struct{} // выданные tournament-коды
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		byCode: make(map[string]*entry),
		byID:   make(map[string]*entry),
		codes:  make(map[string]struct{}),
	}
}

func (s *RoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[room.Code]; ok {
		return domain.ErrRoomCodeTaken
	}
	e := &entry{room: room.Clone()}
	s.byCode[room.Code] = e
	s.byID[room.ID] = e
	return nil
}

func (s *RoomStore) get(code string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return e, nil
}

func (s *RoomStore) GetByCode(_ context.Context, code string) (*domain.Room, error) {
	e, err := s.get(code)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room.Clone(), nil
}

func (s *RoomStore) List(_ context.Context, limit int, cursorStr string) ([]domain.Room, string, error) {
	cur, err := pagination.Decode(cursorStr)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	all := make([]*entry, 0, len(s.byCode))
	for _, e := range s.byCode {
		all = append(all, e)
	}
	s.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(all))
	for _, e := range all {
		e.mu.Lock()
		r := e.room.Clone()
		e.mu.Unlock()
		if cur.Before(r.CreatedAt, r.ID) {
			rooms = append(rooms, *r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].ID > rooms[j].ID
	})

	var next string
	if len(rooms) > limit {
		rooms = rooms[:limit]
		last := rooms[len(rooms)-1]
		next, _ = pagination.Encode(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rooms, next, nil
}

// Update работает над копией: ошибка fn оставляет комнату как была.
func (s *RoomStore) Update(_ context.Context, code string, fn func(*domain.Room) error) (*domain.Room, error) {
	e, err := s.get(code)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.room.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	if len(draft.Participants) > draft.MaxParticipants {
		return nil, domain.ErrRoomFull
	}
	e.room = draft
	return draft.Clone(), nil
}

func (s *RoomStore) AddMatch(_ context.Context, roomID string, m *domain.Match) error {
	s.mu.RLock()
	e, ok := s.byID[roomID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.room.Matches {
		if existing.MatchIndex == m.MatchIndex {
			return domain.ErrMatchExists
		}
	}

	s.mu.Lock()
	if _, taken := s.codes[m.TournamentCode]; taken {
		s.mu.Unlock()
		return domain.ErrTournamentCodeTaken
	}
	s.codes[m.TournamentCode] = struct{}{}
	s.mu.Unlock()

	e.room.Matches = append(e.room.Matches, *m)
	e.room.SortMatches()
	return nil
}

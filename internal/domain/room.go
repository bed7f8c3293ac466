package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinTitleLen      = 2
	MaxTitleLen      = 50
	MinRoomCapacity  = 10
	MaxRoomCapacity  = 50
	RoomCapacityStep = 5
	RoomCodeLength   = 8
	TopicPrefix      = "room:"
	DefaultListLimit = 20
	MaxListLimit     = 50
)

// Room - агрегат: комната вместе с участниками и матчами.
type Room struct {
	ID                string            `db:"id"`
	Code              string            `db:"room_code"`
	Title             string            `db:"title"`
	MaxParticipants   int               `db:"max_participants"`
	HostID            int64             `db:"host_id"`
	Status            Status            `db:"status"`
	CompositionMethod CompositionMethod `db:"team_composition_method"`
	CreatedAt         time.Time         `db:"created_at"`

	Participants []Participant `db:"-"`
	Matches      []Match       `db:"-"`
}

// ValidateRoomInput проверяет title и лимит до любых побочных эффектов.
func ValidateRoomInput(title string, maxParticipants int) (string, error) {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n < MinTitleLen || n > MaxTitleLen {
		return "", ErrInvalidTitle
	}
	if maxParticipants < MinRoomCapacity || maxParticipants > MaxRoomCapacity ||
		maxParticipants%RoomCapacityStep != 0 {
		return "", ErrInvalidMaxParticipants
	}
	return title, nil
}

// NewRoom создаёт комнату в WAITING с хостом первым участником.
func NewRoom(code, title string, maxParticipants int, host *User, now time.Time) (*Room, error) {
	title, err := ValidateRoomInput(title, maxParticipants)
	if err != nil {
		return nil, err
	}
	now = now.UTC()

	return &Room{
		ID:              uuid.NewString(),
		Code:            code,
		Title:           title,
		MaxParticipants: maxParticipants,
		HostID:          host.ID,
		Status:          StatusWaiting,
		CreatedAt:       now,
		Participants: []Participant{{
			UserID:   host.ID,
			Nickname: host.Nickname,
			JoinedAt: now,
		}},
	}, nil
}

func (r *Room) IsHost(userID int64) bool {
	return r.HostID == userID
}

func (r *Room) HasParticipant(userID int64) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (r *Room) IsFull() bool {
	return len(r.Participants) >= r.MaxParticipants
}

// Join добавляет участника без команды.
func (r *Room) Join(u *User, now time.Time) error {
	// полная комната отвечает RoomFull в любом статусе
	if r.IsFull() {
		return ErrRoomFull
	}
	if r.Status != StatusWaiting {
		return ErrInvalidStateTransition
	}
	if r.HasParticipant(u.ID) {
		return ErrAlreadyJoined
	}

	r.Participants = append(r.Participants, Participant{
		UserID:   u.ID,
		Nickname: u.Nickname,
		JoinedAt: now.UTC(),
	})
	return nil
}

func (r *Room) TransitionTo(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return ErrInvalidStateTransition
	}
	r.Status = next
	return nil
}

// NumberOfMatches - по матчу на каждые 10 участников.
func (r *Room) NumberOfMatches() (int, error) {
	n := len(r.Participants)
	if n == 0 || n%ParticipantsPerMatch != 0 {
		return 0, ErrInvalidParticipantCount
	}
	return n / ParticipantsPerMatch, nil
}

// MissingMatchIndices индексы из [0,n), для которых матча ещё нет.
func (r *Room) MissingMatchIndices(n int) []int {
	have := make(map[int]struct{}, len(r.Matches))
	for _, m := range r.Matches {
		have[m.MatchIndex] = struct{}{}
	}

	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if _, ok := have[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

func (r *Room) Host() *Participant {
	for i := range r.Participants {
		if r.Participants[i].UserID == r.HostID {
			return &r.Participants[i]
		}
	}
	return nil
}

func (r *Room) Topic() string {
	return RoomTopic(r.Code)
}

func RoomTopic(code string) string {
	return TopicPrefix + code
}

// Clone - глубокая копия, чтобы стор мог откатить неудачный Update.
func (r *Room) Clone() *Room {
	c := *r
	c.Participants = make([]Participant, len(r.Participants))
	for i, p := range r.Participants {
		if p.TeamNumber != nil {
			p.TeamNumber = Team(*p.TeamNumber)
		}
		c.Participants[i] = p
	}
	c.Matches = append([]Match(nil), r.Matches...)
	return &c
}

// SortMatches упорядочивает матчи по индексу.
func (r *Room) SortMatches() {
	sort.Slice(r.Matches, func(i, j int) bool {
		return r.Matches[i].MatchIndex < r.Matches[j].MatchIndex
	})
}

// NormalizeRoomCode приводит ввод пользователя к виду хранения.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

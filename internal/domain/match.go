package domain

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const MatchPending MatchStatus = "PENDING"

// ParticipantsPerMatch - 5 на 5.
const ParticipantsPerMatch = 10

type Match struct {
	ID             string      `db:"id"`
	RoomID         string      `db:"room_id"`
	MatchIndex     int         `db:"match_index"`
	TournamentCode string      `db:"tournament_code"`
	Status         MatchStatus `db:"status"`
	CreatedAt      time.Time   `db:"created_at"`
}

func NewMatch(roomID string, index int, tournamentCode string, now time.Time) *Match {
	return &Match{
		ID:             uuid.NewString(),
		RoomID:         roomID,
		MatchIndex:     index,
		TournamentCode: tournamentCode,
		Status:         MatchPending,
		CreatedAt:      now.UTC(),
	}
}

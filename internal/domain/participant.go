package domain

import "time"

const (
	TeamOne = 1
	TeamTwo = 2
)

type Participant struct {
	UserID     int64     `db:"user_id"`
	Nickname   string    `db:"nickname"`
	TeamNumber *int      `db:"team_number"`
	JoinedAt   time.Time `db:"joined_at"`
}

func Team(n int) *int {
	return &n
}

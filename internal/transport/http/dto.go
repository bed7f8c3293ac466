package http

import "github.com/cwrk-planet/lobby-service/internal/domain"

type CreateRoomRequest struct {
	Title           string `json:"title"`
	MaxParticipants int    `json:"max_participants"`
}

type StartCompositionRequest struct {
	Method string `json:"method"` // AUTO | AUCTION
}

type RoomsListResponse struct {
	Items      []domain.RoomView `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// MatchRunResponse - ответ на запуск матчей без ожидания.
type MatchRunResponse struct {
	RoomCode string `json:"room_code"`
	State    string `json:"state"`
}

const MatchRunProvisioning = "provisioning"

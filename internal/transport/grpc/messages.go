package grpcx

import "github.com/cwrk-planet/lobby-service/internal/domain"

type CreateRoomRequest struct {
	Title           string `json:"title"`
	MaxParticipants int    `json:"max_participants"`
}

type RoomRequest struct {
	RoomCode string `json:"room_code"`
}

type ListRoomsRequest struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor"`
}

type ListRoomsResponse struct {
	Items      []domain.RoomView `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type StartTeamCompositionRequest struct {
	RoomCode string `json:"room_code"`
	Method   string `json:"method"`
}

type StartMatchesRequest struct {
	RoomCode string `json:"room_code"`
	Wait     bool   `json:"wait"`
}

type StartMatchesResponse struct {
	RoomCode string           `json:"room_code"`
	State    string           `json:"state"` // provisioning | done
	Room     *domain.RoomView `json:"room,omitempty"`
}

const (
	StateProvisioning = "provisioning"
	StateDone         = "done"
)

type RoomResponse struct {
	Room domain.RoomView `json:"room"`
}

// RoomEvent - сообщение стрима WatchRoom.
type RoomEvent struct {
	Type string          `json:"type"`
	Room domain.RoomView `json:"room"`
}

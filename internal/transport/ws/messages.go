package ws

import "github.com/cwrk-planet/lobby-service/internal/domain"

// Типы событий в WS
const (
	TypeState       = "state"                 // снапшот комнаты при подключении
	TypeRoomChanged = domain.EventRoomChanged // любое изменение комнаты
)

type Message struct {
	Type    string          `json:"type"`
	Payload domain.RoomView `json:"payload"`
}

func stateMessage(r *domain.Room) Message {
	return Message{Type: TypeState, Payload: domain.NewRoomView(r)}
}

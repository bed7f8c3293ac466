package domain

import "time"

// RoomView - то, что видят клиенты: HTTP, gRPC и websocket.
type RoomView struct {
	RoomCode              string            `json:"room_code"`
	Title                 string            `json:"title"`
	MaxParticipants       int               `json:"max_participants"`
	CurrentParticipants   int               `json:"current_participants"`
	HostName              string            `json:"host_name"`
	Status                Status            `json:"status"`
	TeamCompositionMethod CompositionMethod `json:"team_composition_method,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	Participants          []ParticipantView `json:"participants"`
	Matches               []MatchView       `json:"matches,omitempty"`
}

type ParticipantView struct {
	Nickname   string `json:"nickname"`
	TeamNumber *int   `json:"team_number,omitempty"`
}

type MatchView struct {
	MatchIndex     int         `json:"match_index"`
	TournamentCode string      `json:"tournament_code"`
	Status         MatchStatus `json:"status"`
}

func NewRoomView(r *Room) RoomView {
	v := RoomView{
		RoomCode:              r.Code,
		Title:                 r.Title,
		MaxParticipants:       r.MaxParticipants,
		CurrentParticipants:   len(r.Participants),
		Status:                r.Status,
		TeamCompositionMethod: r.CompositionMethod,
		CreatedAt:             r.CreatedAt,
		Participants:          make([]ParticipantView, 0, len(r.Participants)),
	}
	if h := r.Host(); h != nil {
		v.HostName = h.Nickname
	}
	for _, p := range r.Participants {
		v.Participants = append(v.Participants, ParticipantView{
			Nickname:   p.Nickname,
			TeamNumber: p.TeamNumber,
		})
	}
	for _, m := range r.Matches {
		v.Matches = append(v.Matches, MatchView{
			MatchIndex:     m.MatchIndex,
			TournamentCode: m.TournamentCode,
			Status:         m.Status,
		})
	}
	return v
}

const EventRoomChanged = "room_changed"

// Event уходит в топик room:{code}.
type Event struct {
	Type    string   `json:"type"`
	Payload RoomView `json:"payload"`
}

func RoomChanged(r *Room) Event {
	return Event{Type: EventRoomChanged, Payload: NewRoomView(r)}
}

package grpcx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/service"
	"github.com/cwrk-planet/lobby-service/internal/transport/ws"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const mdAuthorization = "authorization"

type Lobby interface {
	CreateRoom(ctx context.Context, title string, maxParticipants int, hostIdentity string) (*domain.Room, error)
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
	ListRooms(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error)
	JoinRoom(ctx context.Context, code, identity string) (*domain.Room, error)
	StartTeamComposition(ctx context.Context, code string, method domain.CompositionMethod, identity string) (*domain.Room, error)
	StartMatches(ctx context.Context, code, identity string) (*service.MatchRun, error)
}

type lobbyServer struct {
	lobby Lobby
	hub   *ws.Hub
}

func newLobbyServer(lobby Lobby, hub *ws.Hub) *lobbyServer {
	return &lobbyServer{lobby: lobby, hub: hub}
}

// identityFromMD: authorization: Bearer <token|email>.
func identityFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	auth := first(md.Get(mdAuthorization))
	if len(auth) <= 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return "", status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	identity := strings.TrimSpace(auth[7:])
	if identity == "" {
		return "", status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	return identity, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func (s *lobbyServer) CreateRoom(ctx context.Context, in *CreateRoomRequest) (*RoomResponse, error) {
	identity, err := identityFromMD(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.lobby.CreateRoom(ctx, in.Title, in.MaxParticipants, identity)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return &RoomResponse{Room: domain.NewRoomView(room)}, nil
}

func (s *lobbyServer) GetRoom(ctx context.Context, in *RoomRequest) (*RoomResponse, error) {
	room, err := s.lobby.GetRoom(ctx, in.RoomCode)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return &RoomResponse{Room: domain.NewRoomView(room)}, nil
}

func (s *lobbyServer) ListRooms(ctx context.Context, in *ListRoomsRequest) (*ListRoomsResponse, error) {
	rooms, next, err := s.lobby.ListRooms(ctx, in.Limit, in.Cursor)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	out := &ListRoomsResponse{
		Items:      make([]domain.RoomView, 0, len(rooms)),
		NextCursor: next,
	}
	for i := range rooms {
		out.Items = append(out.Items, domain.NewRoomView(&rooms[i]))
	}
	return out, nil
}

func (s *lobbyServer) JoinRoom(ctx context.Context, in *RoomRequest) (*RoomResponse, error) {
	identity, err := identityFromMD(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.lobby.JoinRoom(ctx, in.RoomCode, identity)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return &RoomResponse{Room: domain.NewRoomView(room)}, nil
}

func (s *lobbyServer) StartTeamComposition(ctx context.Context, in *StartTeamCompositionRequest) (*RoomResponse, error) {
	identity, err := identityFromMD(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.lobby.StartTeamComposition(ctx, in.RoomCode, domain.CompositionMethod(in.Method), identity)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return &RoomResponse{Room: domain.NewRoomView(room)}, nil
}

// StartMatches без Wait возвращает state=provisioning сразу.
func (s *lobbyServer) StartMatches(ctx context.Context, in *StartMatchesRequest) (*StartMatchesResponse, error) {
	identity, err := identityFromMD(ctx)
	if err != nil {
		return nil, err
	}
	code := domain.NormalizeRoomCode(in.RoomCode)
	run, err := s.lobby.StartMatches(ctx, code, identity)
	if err != nil {
		return nil, mapErr(ctx, err)
	}

	pending := &StartMatchesResponse{RoomCode: code, State: StateProvisioning}
	if !in.Wait {
		return pending, nil
	}

	wctx, cancel := context.WithTimeout(ctx, service.WaitTimeout)
	defer cancel()
	room, err := run.Wait(wctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pending, nil
	case err != nil:
		return nil, mapErr(ctx, err)
	}
	view := domain.NewRoomView(room)
	return &StartMatchesResponse{RoomCode: code, State: StateDone, Room: &view}, nil
}

// WatchRoom шлёт state, затем room_changed до отмены клиентом.
func (s *lobbyServer) WatchRoom(in *RoomRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()

	room, err := s.lobby.GetRoom(ctx, in.RoomCode)
	if err != nil {
		return mapErr(ctx, err)
	}
	if err := stream.SendMsg(&RoomEvent{Type: ws.TypeState, Room: domain.NewRoomView(room)}); err != nil {
		return err
	}
	if s.hub == nil {
		return nil
	}

	sub := newStreamConn(room.Topic())
	s.hub.Add(sub)
	defer s.hub.Remove(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sub.events:
			if err := stream.SendMsg(ev); err != nil {
				return err
			}
		}
	}
}

// streamConn - подписчик хаба для одного WatchRoom.
type streamConn struct {
	topic  string
	events chan *RoomEvent
}

func newStreamConn(topic string) *streamConn {
	return &streamConn{topic: topic, events: make(chan *RoomEvent, 16)}
}

func (c *streamConn) Topic() string { return c.topic }
func (c *streamConn) Close() error  { return nil }

// Send не блокирует хаб: медленный клиент теряет события.
func (c *streamConn) Send(msg any) error {
	var ev domain.Event
	switch m := msg.(type) {
	case domain.Event:
		ev = m
	case json.RawMessage:
		if err := json.Unmarshal(m, &ev); err != nil {
			return fmt.Errorf("decode relayed event: %w", err)
		}
	default:
		return fmt.Errorf("unsupported event %T", msg)
	}

	select {
	case c.events <- &RoomEvent{Type: ev.Type, Room: ev.Payload}:
		return nil
	default:
		slog.Warn("grpc watch buffer full, dropping event", "topic", c.topic)
		return errors.New("subscriber buffer full")
	}
}

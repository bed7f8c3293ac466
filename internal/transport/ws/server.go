package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/pkg/httputil"
	"github.com/cwrk-planet/lobby-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type RoomGetter interface {
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
}

type Resolver interface {
	Resolve(ctx context.Context, identity string) (*domain.User, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	rooms    RoomGetter
	users    Resolver

	pingEvery time.Duration
}

func NewServer(hub *Hub, rooms RoomGetter, users Resolver) *Server {
	return &Server{
		hub:   hub,
		rooms: rooms,
		users: users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/rooms/{code}?access_token=...
// После подключения клиент получает state, затем room_changed на каждое изменение.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		httputil.Fail(ctx, w, domain.ErrUnauthenticated)
		return
	}
	user, err := s.users.Resolve(ctx, token)
	if err != nil {
		httputil.Fail(ctx, w, err)
		return
	}

	room, err := s.rooms.GetRoom(ctx, chi.URLParam(r, "code"))
	if err != nil {
		httputil.Fail(ctx, w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		logger.FromContext(ctx).Warn("ws upgrade failed", logger.Err(err))
		return
	}

	c := newWsConn(conn, room.Topic())
	s.hub.Add(c)
	defer s.hub.Remove(c)

	log := logger.FromContext(r.Context()).With(logger.RoomCode(room.Code), logger.UserID(user.ID))
	if err := c.Send(stateMessage(room)); err != nil {
		log.Warn("ws send initial state failed", logger.Err(err))
	}

	go s.writeLoop(ctx, c)
	s.readLoop(c)

	if err := c.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Debug("ws close failed", logger.Err(err))
	}
}

// readLoop только держит соединение: входящие сообщения игнорируются.
func (s *Server) readLoop(c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(4 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop - единственный писатель в соединение: события из очереди и ping.
func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()
	defer func() { _ = c.Close() }()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

type wsConn struct {
	conn   *websocket.Conn
	topic  string
	send   chan any
	closed chan struct{}
	once   sync.Once
}

func newWsConn(c *websocket.Conn, topic string) *wsConn {
	return &wsConn{
		conn:   c,
		topic:  topic,
		send:   make(chan any, sendBuffer),
		closed: make(chan struct{}),
	}
}

// Send только ставит msg в очередь; переполненная очередь значит, что
// клиент не читает, и соединение закрывается.
func (c *wsConn) Send(msg any) error {
	select {
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		_ = c.Close()
		return errSlowConsumer
	}
}

func (c *wsConn) Close() error {
	err := websocket.ErrCloseSent
	c.once.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) Topic() string { return c.topic }

var errSlowConsumer = errors.New("ws subscriber queue full")

// Package audit пишет журнал действий в фоне: запись никогда не
// блокирует и не роняет основной запрос.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

type Action string

const (
	ActionCreateRoom       Action = "CREATE_ROOM"
	ActionJoinRoom         Action = "JOIN_ROOM"
	ActionTeamComposition  Action = "TEAM_COMPOSITION_START"
	ActionStartMatches     Action = "START_MATCHES"
	ActionMatchesCompleted Action = "MATCHES_PROVISIONED"
)

type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFailure Result = "FAILURE" // ошибка клиента: валидация, права, состояние
	ResultError   Result = "ERROR"   // внутренняя или внешняя ошибка
)

type Entry struct {
	Action   Action
	Result   Result
	UserID   int64
	RoomCode string
	Stage    string
	Details  string
	At       time.Time
}

type Sink interface {
	Write(ctx context.Context, e Entry) error
}

type Config struct {
	Buffer       int
	WriteTimeout time.Duration
}

// Async - буферизованный аудитор с одним писателем.
type Async struct {
	sink    Sink
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	ch     chan Entry
	done   chan struct{}
}

func NewAsync(sink Sink, cfg Config) *Async {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	a := &Async{
		sink:    sink,
		timeout: cfg.WriteTimeout,
		ch:      make(chan Entry, cfg.Buffer),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Record не блокирует: при переполненном буфере или после Close запись
// теряется с warn.
func (a *Async) Record(ctx context.Context, e Entry) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		logger.FromContext(ctx).WarnContext(ctx, "audit closed, entry dropped",
			"action", e.Action, logger.RoomCode(e.RoomCode))
		return
	}
	select {
	case a.ch <- e:
	default:
		logger.FromContext(ctx).WarnContext(ctx, "audit buffer full, entry dropped",
			"action", e.Action, logger.RoomCode(e.RoomCode))
	}
}

// Close дожидается записи буфера или отмены ctx. Повторный вызов безопасен.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) loop() {
	defer close(a.done)
	for e := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.sink.Write(ctx, e); err != nil {
			logger.L().Error("audit.write failed", "action", e.Action, logger.RoomCode(e.RoomCode), logger.Err(err))
		}
		cancel()
	}
}

// LogSink пишет аудит в slog, когда БД нет.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Write(ctx context.Context, e Entry) error {
	l := s.Logger
	if l == nil {
		l = logger.FromContext(ctx)
	}
	l.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("action", string(e.Action)),
		slog.String("result", string(e.Result)),
		logger.UserID(e.UserID),
		logger.RoomCode(e.RoomCode),
		logger.Stage(e.Stage),
		slog.String("details", e.Details),
		slog.Time("at", e.At),
	)
	return nil
}

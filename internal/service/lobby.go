package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/audit"
	"github.com/cwrk-planet/lobby-service/internal/composition"
	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/pagination"
	"github.com/cwrk-planet/lobby-service/internal/roomcode"
	"github.com/cwrk-planet/lobby-service/internal/telemetry"
	"github.com/cwrk-planet/lobby-service/pkg/errs"
	"github.com/cwrk-planet/lobby-service/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// Lobby - жизненный цикл комнаты: создание, вход, сбор команд, запуск матчей.
type Lobby struct {
	store       RoomStore
	users       UserDirectory
	provisioner Provisioner
	broadcaster Broadcaster
	auditor     Auditor
	strategies  composition.Registry
	codes       *roomcode.Generator
	metrics     *telemetry.Metrics
	now         func() time.Time

	// запуск матчей одной комнаты внутри процесса схлопывается в один
	inflight singleflight.Group

	mu       sync.Mutex
	draining bool
	runs     sync.WaitGroup
}

func New(d Deps) *Lobby {
	l := &Lobby{
		store:       d.Store,
		users:       d.Users,
		provisioner: d.Provisioner,
		broadcaster: d.Broadcaster,
		auditor:     d.Auditor,
		strategies:  d.Strategies,
		codes:       d.Codes,
		metrics:     d.Metrics,
		now:         d.Now,
	}
	if l.broadcaster == nil {
		l.broadcaster = nopBroadcaster{}
	}
	if l.auditor == nil {
		l.auditor = nopAuditor{}
	}
	if l.strategies == nil {
		l.strategies = composition.Default()
	}
	if l.codes == nil {
		l.codes = roomcode.NewGenerator(nil, roomcode.DefaultAttempts)
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// CreateRoom создаёт комнату; хост - первый участник.
func (l *Lobby) CreateRoom(ctx context.Context, title string, maxParticipants int, hostIdentity string) (*domain.Room, error) {
	if _, err := domain.ValidateRoomInput(title, maxParticipants); err != nil {
		l.fail(ctx, "create", audit.Entry{Action: audit.ActionCreateRoom}, err)
		return nil, err
	}

	host, err := l.users.Resolve(ctx, hostIdentity)
	if err != nil {
		l.fail(ctx, "create", audit.Entry{Action: audit.ActionCreateRoom}, err)
		return nil, err
	}

	var room *domain.Room
	_, err = l.codes.Allocate(ctx, func(code string) error {
		r, err := domain.NewRoom(code, title, maxParticipants, host, l.now())
		if err != nil {
			return err
		}
		if err := l.store.Create(ctx, r); err != nil {
			return err
		}
		room = r
		return nil
	})
	if err != nil {
		l.fail(ctx, "create", audit.Entry{Action: audit.ActionCreateRoom, UserID: host.ID}, err)
		return nil, err
	}

	logger.FromContext(ctx).Info("room created",
		logger.RoomCode(room.Code), logger.UserID(host.ID), "max_participants", room.MaxParticipants)
	l.ok(ctx, "create", audit.Entry{Action: audit.ActionCreateRoom, UserID: host.ID, RoomCode: room.Code})
	return room, nil
}

func (l *Lobby) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	return l.store.GetByCode(ctx, domain.NormalizeRoomCode(code))
}

// ListRooms - новые сверху, курсорная пагинация.
func (l *Lobby) ListRooms(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error) {
	limit = pagination.ClampLimit(limit, domain.DefaultListLimit, domain.MaxListLimit)
	return l.store.List(ctx, limit, cursor)
}

// JoinRoom: проверка вместимости и вставка атомарны в рамках комнаты.
func (l *Lobby) JoinRoom(ctx context.Context, code, identity string) (*domain.Room, error) {
	code = domain.NormalizeRoomCode(code)
	entry := audit.Entry{Action: audit.ActionJoinRoom, RoomCode: code}

	if _, err := l.store.GetByCode(ctx, code); err != nil {
		l.fail(ctx, "join", entry, err)
		return nil, err
	}
	user, err := l.users.Resolve(ctx, identity)
	if err != nil {
		l.fail(ctx, "join", entry, err)
		return nil, err
	}
	entry.UserID = user.ID

	room, err := l.store.Update(ctx, code, func(r *domain.Room) error {
		return r.Join(user, l.now())
	})
	if err != nil {
		l.fail(ctx, "join", entry, err)
		return nil, err
	}

	l.publish(ctx, room)
	l.ok(ctx, "join", entry)
	return room, nil
}

// StartTeamComposition - только хост и только из WAITING.
func (l *Lobby) StartTeamComposition(ctx context.Context, code string, method domain.CompositionMethod, identity string) (*domain.Room, error) {
	code = domain.NormalizeRoomCode(code)
	entry := audit.Entry{Action: audit.ActionTeamComposition, RoomCode: code, Details: string(method)}

	strategy, err := l.strategies.For(method)
	if err != nil {
		l.fail(ctx, "compose", entry, err)
		return nil, err
	}
	requester, err := l.resolveRequester(ctx, code, identity)
	if err != nil {
		l.fail(ctx, "compose", entry, err)
		return nil, err
	}
	entry.UserID = requester.ID

	room, err := l.store.Update(ctx, code, func(r *domain.Room) error {
		if !r.IsHost(requester.ID) {
			return domain.ErrUnauthorized
		}
		if r.Status != domain.StatusWaiting {
			return domain.ErrInvalidStateTransition
		}
		return strategy.Apply(r)
	})
	if err != nil {
		l.fail(ctx, "compose", entry, err)
		return nil, err
	}

	l.publish(ctx, room)
	l.ok(ctx, "compose", entry)
	return room, nil
}

// resolveRequester: сначала комната (NotFound), потом пользователь.
func (l *Lobby) resolveRequester(ctx context.Context, code, identity string) (*domain.User, error) {
	if _, err := l.store.GetByCode(ctx, code); err != nil {
		return nil, err
	}
	return l.users.Resolve(ctx, identity)
}

func (l *Lobby) publish(ctx context.Context, room *domain.Room) {
	if err := l.broadcaster.Publish(ctx, room.Topic(), domain.RoomChanged(room)); err != nil {
		logger.FromContext(ctx).Warn("room change publish failed",
			logger.RoomCode(room.Code), logger.Err(err))
	}
}

func (l *Lobby) ok(ctx context.Context, op string, e audit.Entry) {
	e.Result = audit.ResultSuccess
	l.auditor.Record(ctx, e)
	l.metrics.LobbyOp(op, "ok")
}

func (l *Lobby) fail(ctx context.Context, op string, e audit.Entry, err error) {
	e.Result = resultOf(err)
	if e.Stage == "" {
		e.Stage = domain.StageOf(err)
	}
	e.Details = joinDetails(e.Details, err.Error())
	l.auditor.Record(ctx, e)
	l.metrics.LobbyOp(op, errs.Code(err))

	if e.Result == audit.ResultError {
		logger.FromContext(ctx).Error("lobby."+op+" failed",
			logger.RoomCode(e.RoomCode), logger.Stage(e.Stage), logger.Err(err))
	}
}

func resultOf(err error) audit.Result {
	switch {
	case errors.Is(err, errs.ErrInvalidInput),
		errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, errs.ErrForbidden),
		errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrConflict),
		errors.Is(err, errs.ErrInvalidState):
		return audit.ResultFailure
	default:
		return audit.ResultError
	}
}

func joinDetails(a, b string) string {
	if a == "" {
		return b
	}
	return a + ": " + b
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/audit"
	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/provisioning"
	"github.com/cwrk-planet/lobby-service/pkg/errs"
	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

// ErrShuttingDown - новые запуски матчей после Drain не принимаются.
var ErrShuttingDown = errs.New(errs.ErrUnavailable, "lobby is shutting down")

// MatchRun - хэндл фонового провижининга матчей.
type MatchRun struct {
	done   chan struct{}
	room   *domain.Room
	err    error
	shared bool
}

func (r *MatchRun) Done() <-chan struct{} { return r.done }

// Err - nil, пока не завершился.
func (r *MatchRun) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Shared - запуск присоединился к уже идущему для этой комнаты.
func (r *MatchRun) Shared() bool {
	<-r.done
	return r.shared
}

// Wait ждёт завершения; отмена ctx не останавливает сам провижининг.
func (r *MatchRun) Wait(ctx context.Context) (*domain.Room, error) {
	select {
	case <-r.done:
		return r.room, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// StartMatches проверяет запрос синхронно и запускает выдачу кодов в фоне.
// Повторный запуск после частичного сбоя выдаёт коды только недостающим
// матчам.
func (l *Lobby) StartMatches(ctx context.Context, code, identity string) (*MatchRun, error) {
	code = domain.NormalizeRoomCode(code)
	entry := audit.Entry{Action: audit.ActionStartMatches, RoomCode: code}

	room, err := l.store.GetByCode(ctx, code)
	if err != nil {
		l.fail(ctx, "start_matches", entry, err)
		return nil, err
	}
	requester, err := l.users.Resolve(ctx, identity)
	if err != nil {
		l.fail(ctx, "start_matches", entry, err)
		return nil, err
	}
	entry.UserID = requester.ID

	n, err := validateStart(room, requester.ID)
	if err != nil {
		l.fail(ctx, "start_matches", entry, err)
		return nil, err
	}

	l.mu.Lock()
	if l.draining {
		l.mu.Unlock()
		l.fail(ctx, "start_matches", entry, ErrShuttingDown)
		return nil, ErrShuttingDown
	}
	l.runs.Add(1)
	l.mu.Unlock()

	l.ok(ctx, "start_matches", entry)

	// провижининг переживает отмену запроса
	bg := context.WithoutCancel(ctx)
	ch := l.inflight.DoChan(code, func() (any, error) {
		return l.provision(bg, code, n, requester.ID)
	})

	run := &MatchRun{done: make(chan struct{})}
	go func() {
		defer l.runs.Done()
		res := <-ch
		run.room, _ = res.Val.(*domain.Room)
		run.err = res.Err
		run.shared = res.Shared
		close(run.done)
	}()
	return run, nil
}

// Drain запрещает новые запуски и ждёт завершения уже идущих.
func (l *Lobby) Drain(ctx context.Context) error {
	l.mu.Lock()
	l.draining = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validateStart(room *domain.Room, requesterID int64) (int, error) {
	if !room.IsHost(requesterID) {
		return 0, domain.ErrUnauthorized
	}
	// число участников проверяется раньше статуса
	n, err := room.NumberOfMatches()
	if err != nil {
		return 0, err
	}
	if !room.Status.Composed() {
		return 0, domain.ErrInvalidStateTransition
	}
	return n, nil
}

func (l *Lobby) provision(ctx context.Context, code string, n int, requesterID int64) (*domain.Room, error) {
	start := l.now()
	l.metrics.WorkflowStarted()
	ctx = logger.With(ctx, logger.RoomCode(code))
	log := logger.FromContext(ctx)
	entry := audit.Entry{Action: audit.ActionMatchesCompleted, RoomCode: code, UserID: requesterID}

	finish := func(room *domain.Room, err error) (*domain.Room, error) {
		dur := l.now().Sub(start)
		if err != nil {
			l.metrics.WorkflowFinished("error", domain.StageOf(err), dur)
			l.fail(ctx, "provision", entry, err)
			return nil, err
		}
		l.metrics.WorkflowFinished("ok", "", dur)
		l.ok(ctx, "provision", entry)
		log.Info("matches provisioned", "matches", len(room.Matches), "duration", dur)
		return room, nil
	}

	// свежее состояние: матчи с прошлой попытки уже могут быть
	room, err := l.store.GetByCode(ctx, code)
	if err != nil {
		return finish(nil, err)
	}
	prior := room.Status
	if !prior.Composed() {
		return finish(nil, domain.ErrInvalidStateTransition)
	}

	missing := room.MissingMatchIndices(n)
	log.Info("provisioning matches", "total", n, "missing", len(missing))

	err = l.provisioner.Run(ctx, provisioning.Request{
		RoomCode: code,
		Title:    room.Title,
		Indices:  missing,
	}, func(ctx context.Context, idx int, tournamentCode string) error {
		err := l.store.AddMatch(ctx, room.ID, domain.NewMatch(room.ID, idx, tournamentCode, l.now()))
		if errors.Is(err, domain.ErrMatchExists) {
			// другой процесс успел раньше
			return nil
		}
		return err
	})
	if err != nil {
		return finish(nil, err)
	}

	final, err := l.store.Update(ctx, code, func(r *domain.Room) error {
		if r.Status != prior {
			return domain.ErrInvalidStateTransition
		}
		if left := r.MissingMatchIndices(n); len(left) > 0 {
			return errors.New("matches missing after provisioning")
		}
		return r.TransitionTo(domain.StatusInProgress)
	})
	if err != nil {
		return finish(nil, err)
	}

	l.publish(ctx, final)
	return finish(final, nil)
}

// WaitTimeout - сколько HTTP/gRPC ждут завершения при ?wait=true.
const WaitTimeout = 30 * time.Second

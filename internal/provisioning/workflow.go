package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var ErrNoCodes = errors.New("empty tournament code list")

const DefaultConcurrency = 4

// Sink сохраняет выданный код матча. Вызывается конкурентно.
type Sink func(ctx context.Context, matchIndex int, code string) error

type Request struct {
	RoomCode string
	Title    string
	// Indices - индексы матчей, которым нужен код.
	Indices []int
}

type WorkflowConfig struct {
	CallbackURL string
	Spec        MatchSpec
	Concurrency int
}

type Workflow struct {
	client Client
	cfg    WorkflowConfig
	tracer trace.Tracer
}

func NewWorkflow(client Client, cfg WorkflowConfig) *Workflow {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Spec.TeamSize == 0 {
		cfg.Spec = DefaultMatchSpec()
	}
	return &Workflow{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("lobby/provisioning"),
	}
}

// Run проходит цепочку и отдаёт каждый код в sink. Первая ошибка стадии
// прерывает всё и возвращается как *domain.ProvisioningError; уже
// сохранённые матчи остаются.
func (w *Workflow) Run(ctx context.Context, req Request, sink Sink) (err error) {
	if len(req.Indices) == 0 {
		return nil
	}

	ctx, span := w.tracer.Start(ctx, "provisioning.run", trace.WithAttributes(
		attribute.String("room.code", req.RoomCode),
		attribute.Int("matches", len(req.Indices)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	providerID, err := stage(ctx, w.tracer, domain.StageProvider, func(ctx context.Context) (int64, error) {
		return w.client.RegisterProvider(ctx, w.cfg.CallbackURL)
	})
	if err != nil {
		return err
	}

	tournamentID, err := stage(ctx, w.tracer, domain.StageTournament, func(ctx context.Context) (int64, error) {
		return w.client.RegisterTournament(ctx, providerID, req.Title)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("tournament registered",
		logger.RoomCode(req.RoomCode), "provider_id", providerID, "tournament_id", tournamentID)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, idx := range req.Indices {
		g.Go(func() error {
			code, err := stage(gctx, w.tracer, domain.StageCodes, func(ctx context.Context) (string, error) {
				spec := w.cfg.Spec
				spec.Metadata = fmt.Sprintf("%s#%d", req.RoomCode, idx)
				issued, err := w.client.IssueCodes(ctx, tournamentID, spec)
				if err != nil {
					return "", err
				}
				if len(issued) == 0 {
					return "", ErrNoCodes
				}
				return issued[0], nil
			})
			if err != nil {
				return err
			}
			if err := sink(gctx, idx, code); err != nil {
				return fmt.Errorf("store match %d: %w", idx, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func stage[T any](ctx context.Context, tr trace.Tracer, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tr.Start(ctx, "provisioning."+name)
	defer span.End()

	v, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T
		return zero, &domain.ProvisioningError{Stage: name, Err: err}
	}
	return v, nil
}

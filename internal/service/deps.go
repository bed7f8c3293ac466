package service

import (
	"context"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/audit"
	"github.com/cwrk-planet/lobby-service/internal/composition"
	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/provisioning"
	"github.com/cwrk-planet/lobby-service/internal/roomcode"
	"github.com/cwrk-planet/lobby-service/internal/telemetry"
)

// RoomStore хранит агрегат комнаты. Update выполняет fn под блокировкой
// комнаты и сохраняет результат атомарно; ошибка fn - ничего не меняется.
type RoomStore interface {
	// Create: domain.ErrRoomCodeTaken при занятом коде.
	Create(ctx context.Context, room *domain.Room) error
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error)
	Update(ctx context.Context, code string, fn func(*domain.Room) error) (*domain.Room, error)
	// AddMatch: domain.ErrMatchExists, если индекс уже занят.
	AddMatch(ctx context.Context, roomID string, m *domain.Match) error
}

type UserDirectory interface {
	Resolve(ctx context.Context, identity string) (*domain.User, error)
}

type Provisioner interface {
	Run(ctx context.Context, req provisioning.Request, sink provisioning.Sink) error
}

type Broadcaster interface {
	Publish(ctx context.Context, topic string, msg any) error
}

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Deps struct {
	Store       RoomStore
	Users       UserDirectory
	Provisioner Provisioner
	Broadcaster Broadcaster
	Auditor     Auditor

	Strategies composition.Registry
	Codes      *roomcode.Generator
	Metrics    *telemetry.Metrics
	Now        func() time.Time
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(context.Context, string, any) error { return nil }

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, audit.Entry) {}

// Package roomcode выдаёт короткие коды комнат.
package roomcode

import (
	"context"
	"errors"
	"strings"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/pkg/logger"

	"github.com/google/uuid"
)

const DefaultAttempts = 10

// Random - первые 8 hex-символов uuid v4 в верхнем регистре.
func Random() string {
	return strings.ToUpper(uuid.NewString()[:domain.RoomCodeLength])
}

type Generator struct {
	next     func() string
	attempts int
}

func NewGenerator(next func() string, attempts int) *Generator {
	if next == nil {
		next = Random
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	return &Generator{next: next, attempts: attempts}
}

// Allocate пробует коды, пока create не перестанет возвращать
// domain.ErrRoomCodeTaken. Другие ошибки возвращаются как есть.
func (g *Generator) Allocate(ctx context.Context, create func(code string) error) (string, error) {
	for i := 0; i < g.attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := g.next()
		err := create(code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, domain.ErrRoomCodeTaken) {
			return "", err
		}
		logger.FromContext(ctx).DebugContext(ctx, "room code collision", logger.RoomCode(code), "attempt", i+1)
	}
	return "", domain.ErrCodeGenerationExhausted
}

package roomcode

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/pkg/logger"

	"github.com/stretchr/testify/require"
)

var codeRe = regexp.MustCompile(`^[0-9A-F]{8}$`)

func TestRandom_Format(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		c := Random()
		require.Regexp(t, codeRe, c)
		seen[c] = struct{}{}
	}
	require.Greater(t, len(seen), 90)
}

func TestAllocate_RetriesOnCollision(t *testing.T) {
	codes := []string{"AAAAAAAA", "BBBBBBBB", "CCCCCCCC"}
	i := 0
	g := NewGenerator(func() string { c := codes[i]; i++; return c }, 10)

	taken := map[string]bool{"AAAAAAAA": true, "BBBBBBBB": true}
	code, err := g.Allocate(context.Background(), func(c string) error {
		if taken[c] {
			return domain.ErrRoomCodeTaken
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "CCCCCCCC", code)
}

func TestAllocate_Exhausted(t *testing.T) {
	calls := 0
	g := NewGenerator(func() string { return "SAMECODE" }, 0)
	_, err := g.Allocate(context.Background(), func(string) error {
		calls++
		return domain.ErrRoomCodeTaken
	})
	require.ErrorIs(t, err, domain.ErrCodeGenerationExhausted)
	require.Equal(t, DefaultAttempts, calls)
}

func TestAllocate_OtherErrorStops(t *testing.T) {
	boom := errors.New("db down")
	calls := 0
	g := NewGenerator(nil, 5)
	_, err := g.Allocate(context.Background(), func(string) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestAllocate_LogsCollisionWithRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := logger.WithContext(context.Background(), l.With("request_id", "req-1"))

	codes := []string{"AAAAAAAA", "BBBBBBBB"}
	i := 0
	g := NewGenerator(func() string { c := codes[i]; i++; return c }, 10)
	_, err := g.Allocate(ctx, func(c string) error {
		if c == "AAAAAAAA" {
			return domain.ErrRoomCodeTaken
		}
		return nil
	})
	require.NoError(t, err)

	require.Contains(t, buf.String(), "room code collision")
	require.Contains(t, buf.String(), "request_id=req-1")
	require.Contains(t, buf.String(), "AAAAAAAA")
}

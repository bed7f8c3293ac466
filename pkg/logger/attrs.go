package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Ключи, общие для всех логов лобби.
const (
	KeyRoomCode = "room_code"
	KeyUserID   = "user_id"
	KeyStage    = "stage"
	KeyErr      = "err"
)

func RoomCode(code string) slog.Attr { return slog.String(KeyRoomCode, code) }
func UserID(id int64) slog.Attr      { return slog.Int64(KeyUserID, id) }
func Stage(s string) slog.Attr       { return slog.String(KeyStage, s) }

// Err - пустой attr для nil, slog его пропускает.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyErr, err.Error())
}

// instanceID: явный > LOBBY_INSTANCE_ID > hostname + случайный суффикс.
func instanceID(v string) string {
	if v != "" {
		return v
	}
	if v = os.Getenv("LOBBY_INSTANCE_ID"); v != "" {
		return v
	}
	hn, _ := os.Hostname()
	return hn + "-" + uuid.NewString()[:8]
}

func commonAttrs(cfg Config) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", cfg.InstanceID),
		slog.Time("started_at", time.Now().UTC()),
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return attrs
}

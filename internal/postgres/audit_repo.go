package postgres

import (
	"context"

	"github.com/cwrk-planet/lobby-service/internal/audit"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepo - audit.Sink в таблицу audit_logs.
type AuditRepo struct {
	db *pgxpool.Pool
}

func NewAuditRepo(db *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Write(ctx context.Context, e audit.Entry) error {
	var userID *int64
	if e.UserID != 0 {
		userID = &e.UserID
	}
	_, err := r.db.Exec(ctx, queryInsertAudit,
		string(e.Action),
		string(e.Result),
		userID,
		nullIfEmpty(e.RoomCode),
		nullIfEmpty(e.Stage),
		nullIfEmpty(e.Details),
		e.At,
	)
	return mapPgError(err)
}

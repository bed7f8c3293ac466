// Package postgres - хранилище комнат, пользователей и аудита на pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/pkg/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/*
общий интерфейс *pgxpool.Pool и pgx.Tx,
чтобы одни и те же запросы работали и в транзакции, и без неё
*/
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapPgError переводит ошибки Postgres в доменные по имени ограничения.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case "rooms_room_code_key":
			return domain.ErrRoomCodeTaken
		case "matches_room_index_key":
			return domain.ErrMatchExists
		case "matches_tournament_code_key":
			return domain.ErrTournamentCodeTaken
		case "room_participants_pkey":
			return domain.ErrAlreadyJoined
		}
		return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		if strings.Contains(pgErr.ConstraintName, "user_id") || strings.Contains(pgErr.ConstraintName, "host_id") {
			return domain.ErrUserNotFound
		}
		return domain.ErrRoomNotFound
	case pgCheckViolation:
		return fmt.Errorf("%w: %s", errs.ErrInvalidInput, pgErr.ConstraintName)
	}
	return err
}

// nullIfEmpty: пустая строка пишется как NULL.
func nullIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

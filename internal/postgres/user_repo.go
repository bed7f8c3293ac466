package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/cwrk-planet/lobby-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo struct {
	q querier
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{q: db}
}

// NewUserRepoFromTx - для составных операций в одной транзакции.
func NewUserRepoFromTx(tx pgx.Tx) *UserRepo {
	return &UserRepo{q: tx}
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, queryGetUserByID, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, queryGetUserByEmail, strings.ToLower(strings.TrimSpace(email)))
}

// Upsert по email: существующему пользователю обновляется ник.
func (r *UserRepo) Upsert(ctx context.Context, u domain.User) (*domain.User, error) {
	rows, err := r.q.Query(ctx, queryUpsertUser, strings.ToLower(strings.TrimSpace(u.Email)), u.Nickname)
	if err != nil {
		return nil, mapPgError(err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[domain.User])
	if err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (r *UserRepo) getOne(ctx context.Context, sql string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Email, &u.Nickname)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, mapPgError(err)
	}
	return &u, nil
}

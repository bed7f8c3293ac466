// Package directory превращает идентичность запроса (email или
// access-токен) в пользователя.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/pkg/logger"
)

// Users - хранилище пользователей; not found -> domain.ErrUserNotFound.
type Users interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Directory struct {
	users    Users
	verifier *Verifier
}

// New; verifier может быть nil, тогда принимаются только email.
func New(users Users, verifier *Verifier) *Directory {
	return &Directory{users: users, verifier: verifier}
}

func (d *Directory) Resolve(ctx context.Context, identity string) (*domain.User, error) {
	identity = strings.TrimSpace(identity)
	switch {
	case identity == "":
		return nil, domain.ErrUnauthenticated
	case looksLikeJWT(identity):
		return d.byToken(ctx, identity)
	case strings.Contains(identity, "@"):
		return d.users.GetByEmail(ctx, strings.ToLower(identity))
	default:
		return nil, domain.ErrUnauthenticated
	}
}

func (d *Directory) byToken(ctx context.Context, token string) (*domain.User, error) {
	if d.verifier == nil {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := d.verifier.Parse(token)
	if err != nil {
		logger.FromContext(ctx).Debug("directory.token rejected", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	if id, err := claims.UserID(); err == nil {
		u, err := d.users.GetByID(ctx, id)
		if err == nil || !errors.Is(err, domain.ErrUserNotFound) || claims.Email == "" {
			return u, err
		}
	}
	if claims.Email != "" {
		return d.users.GetByEmail(ctx, strings.ToLower(claims.Email))
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, ErrInvalidSubject)
}

// header.payload.signature без '@'.
func looksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2 && !strings.Contains(s, "@")
}

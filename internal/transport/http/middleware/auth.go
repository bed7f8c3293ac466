package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/pkg/httputil"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// RequireIdentity требует Authorization: Bearer <token|email>. Сам токен
// здесь не проверяется: это делает каталог пользователей в сервисе.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := Bearer(r.Header.Get("Authorization"))
		if !ok {
			httputil.Fail(r.Context(), w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// Bearer достаёт значение из "Bearer <value>".
func Bearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	v := strings.TrimSpace(parts[1])
	return v, v != ""
}

func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, identity)
}

func IdentityFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIdentity).(string); ok {
		return v
	}
	return ""
}

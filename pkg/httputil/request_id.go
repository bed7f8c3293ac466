package httputil

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey struct{}

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"

	maxRequestIDLen = 64
)

// MiddlewareRequestID берёт X-Request-ID (или X-Correlation-ID) клиента,
// если он приличный, иначе выдаёт новый uuid. Ответ всегда несёт id.
func MiddlewareRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderRequestID)
		if raw == "" {
			raw = r.Header.Get(HeaderCorrelationID)
		}
		reqID := NormalizeRequestID(raw)
		w.Header().Set(HeaderRequestID, reqID)

		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), reqID)))
	})
}

// NormalizeRequestID: печатный ASCII без пробелов и не длиннее 64,
// иначе новый uuid. Общий для HTTP и gRPC metadata.
func NormalizeRequestID(raw string) string {
	if raw == "" || len(raw) > maxRequestIDLen {
		return uuid.NewString()
	}
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c <= ' ' || c > '~' {
			return uuid.NewString()
		}
	}
	return raw
}

func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqID)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok && v != ""
}

package httpmw

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/telemetry"
	"github.com/cwrk-planet/lobby-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// Metrics пишет счётчик и латентность по шаблону маршрута chi, а не по
// сырому пути, чтобы коды комнат не раздували кардинальность.
func Metrics(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &httputil.StatusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.ObserveRequest(r.Method, route, sw.Status(), time.Since(start))
		})
	}
}

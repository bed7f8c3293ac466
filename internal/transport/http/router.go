package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/telemetry"
	httpmw "github.com/cwrk-planet/lobby-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/lobby-service/pkg/errs"
	"github.com/cwrk-planet/lobby-service/pkg/httputil"
	"github.com/cwrk-planet/lobby-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Lobby          Lobby
	WS             http.HandlerFunc // GET /ws/rooms/{code}
	Metrics        *telemetry.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	RequestTimeout time.Duration
	// Ready - проверка хранилища для /readyz; nil: всегда готов
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)
	r.Use(httpmw.Metrics(d.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				logger.FromContext(r.Context()).Warn("readiness check failed", logger.Err(err))
				httputil.Fail(r.Context(), w, errs.New(errs.ErrUnavailable, "storage not ready"))
				return
			}
		}
		httputil.OK(w, map[string]string{"status": "ready"})
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// websocket живёт дольше любого таймаута запроса
	if d.WS != nil {
		r.Get("/ws/rooms/{code}", d.WS)
	}

	h := NewHandler(d.Lobby)
	r.Route("/rooms", func(rt chi.Router) {
		rt.Use(middleware.Timeout(d.RequestTimeout))

		rt.Get("/", h.ListRooms)
		rt.Get("/{code}", h.GetRoom)

		rt.Group(func(pr chi.Router) {
			pr.Use(httpmw.RequireIdentity)

			pr.Post("/", h.CreateRoom)
			pr.Post("/{code}/join", h.JoinRoom)
			pr.Post("/{code}/team-composition", h.StartTeamComposition)
			pr.Post("/{code}/matches", h.StartMatches)
		})
	})

	return r
}

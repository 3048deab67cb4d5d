package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/metrics"
	httpmw "github.com/cwrk-planet/interview-room/internal/transport/http/middleware"
	"github.com/cwrk-planet/interview-room/pkg/httputil"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterDeps struct {
	Handler        *Handler
	WS             http.HandlerFunc
	Verifier       httpmw.Verifier
	CORSOrigins    []string
	MetricsEnabled bool
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WS endpoint: без Timeout, соединение живёт долго
	r.Get("/ws", d.WS)

	r.Group(func(api chi.Router) {
		api.Use(middlewareChi.Timeout(30 * time.Second))

		api.Get("/healthz", d.Handler.Liveness)
		api.Get("/readyz", d.Handler.Readiness)
		api.Get("/api/health", d.Handler.Health)
		api.Get("/api/rooms/status", d.Handler.RoomsStatus)

		api.Group(func(admin chi.Router) {
			admin.Use(httpmw.AuthMiddleware(d.Verifier, domain.RoleAdmin))
			admin.Get("/api/rooms/{interviewID}", d.Handler.RoomDetail)
		})

		if d.MetricsEnabled {
			api.Method(http.MethodGet, "/metrics", metrics.Handler())
		}
	})

	return r
}

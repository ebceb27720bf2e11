package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"LiveStore/internal/cart"
	"LiveStore/internal/catalog"
	"LiveStore/internal/realtime"
	"LiveStore/pkg/kit"
)

// Deps carries everything the root handler mounts. The HTTP API and the
// realtime channel are wired to the same managers, so both entry points see
// one consistent catalog.
type Deps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	Catalog  *catalog.Server
	Carts    *cart.Server
	Realtime *realtime.Server

	MetricsEnabled bool
	MetricsToken   string

	RateLimit *kit.IPRateLimiter
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api", func(api chi.Router) {
		if deps.RateLimit != nil {
			api.Use(deps.RateLimit.Middleware)
		}
		api.Mount("/products", deps.Catalog.Routes())
		api.Mount("/carts", deps.Carts.Routes())
	})

	r.Get("/ws", deps.Realtime.ServeWS)

	return r
}

func setupMiddleware(r *chi.Mux, deps Deps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps Deps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/drishti-pos/drishti-pos/internal/catalog"
	"github.com/drishti-pos/drishti-pos/internal/loyalty"
	"github.com/drishti-pos/drishti-pos/internal/observability"
	"github.com/drishti-pos/drishti-pos/internal/orders"
	"github.com/drishti-pos/drishti-pos/internal/stock"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Terminals      *TerminalStore
	CatalogHandler *catalog.Handler
	LoyaltyHandler *loyalty.Handler
	StockHandler   *stock.Handler
	OrdersHandler  *orders.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router for the POS API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:    params.Logger,
		Config:    params.Config,
		Terminals: params.Terminals,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Everything a till touches sits behind terminal auth.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(TerminalAuth(MiddlewareConfig{
			Logger:    params.Logger,
			Config:    params.Config,
			Terminals: params.Terminals,
		}))
		params.CatalogHandler.MountRoutes(r)
		params.LoyaltyHandler.MountRoutes(r)
		params.StockHandler.MountRoutes(r)
		params.OrdersHandler.MountRoutes(r)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

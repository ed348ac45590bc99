// Package httpapi is C7, the transport shell around C6: a chi router
// wiring /graphql, /healthz, /readyz, /metrics, plus the middleware
// chain (correlation id, principal extraction, backpressure) the
// teacher's internal/platform/middleware package models.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syssam/ugc-subgraph/internal/graphapi"
	"github.com/syssam/ugc-subgraph/internal/loader"
	"github.com/syssam/ugc-subgraph/internal/metrics"
	"github.com/syssam/ugc-subgraph/internal/siblingclient"
)

// Pinger is the subset of internal/store.Store the readiness probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config bundles everything the router needs beyond the GraphQL server
// itself.
type Config struct {
	MaxInflight int // server.max_inflight (§5 backpressure gate)
	JWTIssuer   string
}

// NewRouter assembles the full chi.Mux: CORS, panic recovery, correlation
// id, JWT claim extraction, structured logging, backpressure, then the
// GraphQL endpoint and the three ambient probes.
func NewRouter(
	gqlServer *graphapi.Server,
	loaderStore loader.Store,
	clients siblingclient.Clients,
	db Pinger,
	reg *metrics.Registry,
	logger *slog.Logger,
	cfg Config,
) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Correlation-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(PanicRecovery(logger))
	r.Use(CorrelationID())
	r.Use(PrincipalFromJWT(cfg.JWTIssuer))
	r.Use(StructuredLog(logger))
	r.Use(Backpressure(cfg.MaxInflight, reg))

	r.Post("/graphql", graphQLHandler(gqlServer, loaderStore, clients, logger))
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(db, clients))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler reports DB reachability and sibling circuit state, per
// SPEC_FULL §6.
func readyzHandler(db Pinger, clients siblingclient.Clients) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"siblings": map[string]string{
				"users":  clients.Users.State(),
				"offers": clients.Offers.State(),
			},
		})
	}
}

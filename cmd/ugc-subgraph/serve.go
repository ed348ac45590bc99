package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"

	"github.com/syssam/ugc-subgraph/internal/config"
	"github.com/syssam/ugc-subgraph/internal/entity"
	"github.com/syssam/ugc-subgraph/internal/graphapi"
	"github.com/syssam/ugc-subgraph/internal/httpapi"
	"github.com/syssam/ugc-subgraph/internal/loader"
	"github.com/syssam/ugc-subgraph/internal/metrics"
	"github.com/syssam/ugc-subgraph/internal/review"
	"github.com/syssam/ugc-subgraph/internal/siblingclient"
	"github.com/syssam/ugc-subgraph/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL subgraph HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger := newLogger(cfg.Log)

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)

	st, err := store.Open(store.Config{
		URL:            cfg.Database.URL,
		MaxOpenConns:   cfg.Database.Pool.Max,
		MaxIdleConns:   cfg.Database.Pool.Min,
		ConnMaxIdle:    cfg.Database.Pool.IdleTimeout,
		ConnMaxLife:    cfg.Database.Pool.MaxLifetime,
		AcquireTimeout: cfg.Database.Pool.AcquireTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("serve: open store: %w", err)
	}
	defer st.Close()

	clients := siblingclient.Clients{
		Users:  newSiblingClient("users", cfg.Sibling.Users, cfg.CircuitBreaker, reg, logger),
		Offers: newSiblingClient("offers", cfg.Sibling.Offers, cfg.CircuitBreaker, reg, logger),
	}

	svc := review.NewService(st, logger)

	ent := entity.New(func(ctx context.Context, id uuid.UUID) (*review.Review, error) {
		return loader.For(ctx).ReviewByID.Load(ctx, id)()
	})

	resolvers := graphapi.New(svc, st, ent)
	gate := graphapi.Gate{MaxDepth: cfg.Query.MaxDepth, MaxComplexity: cfg.Query.MaxComplexity}
	gqlServer, err := graphapi.NewServer(resolvers, gate)
	if err != nil {
		return fmt.Errorf("serve: build schema: %w", err)
	}

	router := httpapi.NewRouter(gqlServer, st, clients, st, reg, logger, httpapi.Config{
		MaxInflight: cfg.Server.MaxInflight,
		JWTIssuer:   cfg.Auth.JWTIssuer,
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	serveCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", slog.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-serveCtx.Done():
		logger.Info("server_shutting_down")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newSiblingClient(name string, target config.SiblingTargetConfig, cb config.CircuitBreakerConfig, reg *metrics.Registry, logger *slog.Logger) *siblingclient.Client {
	settings := gobreaker.Settings{
		Name:        name,
		Interval:    cb.Window,
		Timeout:     cb.Cooldown,
		MaxRequests: uint32(cb.HalfOpenProbes),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 1 && float64(counts.TotalFailures)/float64(counts.Requests) >= cb.FailureRatio
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_change", slog.String("sibling", breakerName), slog.String("from", from.String()), slog.String("to", to.String()))
			reg.CircuitBreakerState.WithLabelValues(breakerName).Set(metrics.CircuitState(to.String()))
			if to == gobreaker.StateOpen {
				reg.CircuitBreakerTrips.WithLabelValues(breakerName).Inc()
			}
		},
	}
	return siblingclient.NewClient(siblingclient.Config{
		Name:     name,
		URL:      target.URL,
		Timeout:  target.Timeout,
		RetryMax: target.RetryMax,
		Breaker:  settings,
	}, logger)
}

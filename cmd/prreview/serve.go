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
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bkyoung/prreview/internal/adapter/httpapi"
	cfgpkg "github.com/bkyoung/prreview/internal/config"
	"github.com/bkyoung/prreview/internal/scheduler"
	"github.com/bkyoung/prreview/internal/usecase/conversation"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook gateway and admin HTTP surfaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

// runServe starts the internet-facing webhook gateway (C6), the
// operator-facing admin surface, and a Prometheus exposition endpoint,
// and blocks until SIGINT/SIGTERM.
func runServe(cfg cfgpkg.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.store.Close()
	defer a.redisClient.Close()

	queue := scheduler.NewQueue(a.redisClient)
	idempotency := scheduler.NewIdempotencyKeeper(a.redisClient)

	tracker, err := conversation.New(a.conversationDeps())
	if err != nil {
		return fmt.Errorf("build conversation tracker: %w", err)
	}

	gateway, err := httpapi.NewGateway(httpapi.Deps{
		Config:        cfg.Gateway,
		WebhookSecret: []byte(cfg.GitHubApp.WebhookSecret),
		Gatekeeper:    cfg.Gatekeeper,
		Queue:         queue,
		Idempotency:   idempotency,
		Store:         a.store,
		Conversation:  tracker,
		Metrics:       a.metrics,
		Logger:        a.logger,
	})
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	servers := []*http.Server{
		{Addr: cfg.Gateway.ListenAddr, Handler: gateway.Router()},
	}

	if cfg.Admin.Enabled {
		adminRouter := httpapi.NewAdminRouter(httpapi.AdminDeps{
			Config: cfg.Admin,
			Queue:  queue,
			Store:  a.store,
		})
		servers = append(servers, &http.Server{Addr: cfg.Admin.ListenAddr, Handler: adminRouter})
	}

	if cfg.Observability.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: cfg.Observability.Metrics.ListenAddr, Handler: mux})
	}

	return runServers(ctx, a.logger, servers)
}

// runServers starts every server concurrently and shuts all of them
// down together, gracefully, the instant either ctx is cancelled or
// any one of them fails to serve.
func runServers(ctx context.Context, logger *slog.Logger, servers []*http.Server) error {
	errs := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			logger.Info("http server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("%s: %w", srv.Addr, err)
				return
			}
			errs <- nil
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", slog.String("addr", srv.Addr), slog.Any("error", err))
		}
	}

	return nil
}

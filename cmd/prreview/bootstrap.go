package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/bkyoung/prreview/internal/adapter/credential"
	"github.com/bkyoung/prreview/internal/adapter/forge"
	"github.com/bkyoung/prreview/internal/adapter/llm/openai"
	"github.com/bkyoung/prreview/internal/adapter/observability"
	"github.com/bkyoung/prreview/internal/adapter/store/postgres"
	"github.com/bkyoung/prreview/internal/adapter/store/sqlite"
	"github.com/bkyoung/prreview/internal/config"
	"github.com/bkyoung/prreview/internal/redaction"
	"github.com/bkyoung/prreview/internal/store"
	"github.com/bkyoung/prreview/internal/usecase/conversation"
	"github.com/bkyoung/prreview/internal/usecase/orchestrate"
)

// app bundles the collaborators both serve and worker build from the
// same Config, so the two processes never drift in how they construct
// a dependency they happen to share.
type app struct {
	cfg         config.Config
	logger      *slog.Logger
	metrics     *observability.Metrics
	redisClient *redis.Client
	store       store.Store
	credentials *credential.Cache
	breakers    *forge.BreakerManager
	forgeClient *forge.Client
}

// newApp wires every collaborator common to serve and worker: logging,
// metrics, the store, the installation credential cache, and the forge
// client. Each subcommand adds only what it alone needs (the gateway,
// or the orchestrator and conversation tracker).
func newApp(cfg config.Config) (*app, error) {
	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	privateKey, err := parseRSAPrivateKey(cfg.GitHubApp.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse github app private key: %w", err)
	}
	creds := credential.New(cfg.GitHubApp.AppID, privateKey, rdb)
	if cfg.GitHubApp.APIBaseURL != "" {
		creds.SetBaseURL(cfg.GitHubApp.APIBaseURL)
	}

	breakers := forge.NewBreakerManager(func(installationID int64) {
		metrics.CircuitBreakerTrip.WithLabelValues(fmt.Sprintf("%d", installationID)).Inc()
	})
	forgeClient := forge.NewClient(creds, breakers)
	if cfg.GitHubApp.APIBaseURL != "" {
		forgeClient.SetBaseURL(cfg.GitHubApp.APIBaseURL)
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		redisClient: rdb,
		store:       st,
		credentials: creds,
		breakers:    breakers,
		forgeClient: forgeClient,
	}, nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlite.NewStore(cfg.DSN)
	case "postgres":
		return postgres.NewStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in githubApp.privateKeyPEM")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return key, nil
}

// modelClient resolves one of the named collaborator slots (e.g.
// "cheap" or "capable") into a completer, falling back to an offline
// deterministic stub when none is configured so serve/worker still
// start in a dev environment with no model credentials.
func modelClient(cfg config.Config, name string) interface {
	Complete(ctx context.Context, systemPrompt, prompt string, maxTokens int) (string, int64, error)
} {
	modelCfg, ok := cfg.Models[name]
	if !ok || modelCfg.Provider == "" || modelCfg.Provider == "static" {
		return openai.NewStaticClient()
	}
	return openai.NewHTTPClient(modelCfg.APIKey, modelCfg.Model, modelCfg, cfg.HTTP)
}

// orchestratorDeps builds the orchestrator's collaborators from cfg and
// a, without starting anything; the worker command owns the
// Orchestrator's lifetime.
func (a *app) orchestratorDeps() orchestrate.Deps {
	deps := orchestrate.Deps{
		Forge:   a.forgeClient,
		Cheap:   openai.NewOrchestratorClient(modelClient(a.cfg, "cheap")),
		Capable: openai.NewOrchestratorClient(modelClient(a.cfg, "capable")),
		Store:   a.store,
		Logger:  a.logger,
	}
	if a.cfg.Redaction.Enabled {
		deps.Redactor = redaction.NewEngine()
	}
	return deps
}

// conversationDeps builds the conversation tracker's collaborators.
func (a *app) conversationDeps() conversation.Deps {
	return conversation.Deps{
		Forge:  a.forgeClient,
		Model:  openai.NewConversationClient(modelClient(a.cfg, "cheap")),
		Store:  a.store,
		Logger: a.logger,
	}
}

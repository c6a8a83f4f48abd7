package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/forgeflowhq/forgeflow/common/id"
	"github.com/forgeflowhq/forgeflow/common/logger"
	"github.com/forgeflowhq/forgeflow/common/otel"
	"github.com/forgeflowhq/forgeflow/core/config"
	"github.com/forgeflowhq/forgeflow/internal/dedup"
	"github.com/forgeflowhq/forgeflow/internal/flows"
	"github.com/forgeflowhq/forgeflow/internal/gateway"
	"github.com/forgeflowhq/forgeflow/internal/http/handler/webhook"
	"github.com/forgeflowhq/forgeflow/internal/http/middleware"
	httprouter "github.com/forgeflowhq/forgeflow/internal/http/router"
	"github.com/forgeflowhq/forgeflow/internal/workflow"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses the OTel provider in
	// production).
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	}

	slog.InfoContext(ctx, "forgeflow starting", "env", cfg.Env)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	deduper := dedup.Noop()
	if cfg.Dedup.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Dedup.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		deduper = dedup.NewRedis(redisClient, cfg.Dedup.TTL)
		slog.InfoContext(ctx, "delivery dedup enabled", "ttl", cfg.Dedup.TTL)
	}

	var gwOpts []gateway.GitHubOption
	if cfg.Forge.BaseURL != "" {
		gwOpts = append(gwOpts, gateway.WithBaseURL(cfg.Forge.BaseURL))
	}
	gw := gateway.NewGitHubClient(cfg.Forge.Token, gwOpts...)

	loaded, err := flows.Load(cfg.FlowsFile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load workflows", "error", err, "file", cfg.FlowsFile)
		os.Exit(1)
	}

	registry := workflow.NewRegistry(gw)
	for _, w := range loaded {
		registry.Register(w)
	}

	// Fail fast: a workflow that cannot resolve its project must not run
	// half-initialized.
	if err := registry.StartAll(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to start workflows", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "workflows started", "count", registry.Len())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, registry, deduper)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, registry *workflow.Registry, deduper dedup.Deduper) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates the span, Recovery catches panics,
	// Logger logs with trace context.
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	hook := webhook.NewGitHubWebhookHandler(cfg.Webhook.Secret, registry, deduper)
	httprouter.SetupRoutes(router, hook)

	return router
}

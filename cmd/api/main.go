package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/api"
	"github.com/metricboard/engine/internal/api/handlers"
	mw "github.com/metricboard/engine/internal/api/middleware"
	"github.com/metricboard/engine/internal/app"
	"github.com/metricboard/engine/internal/share"
	"github.com/metricboard/engine/pkg/config"
)

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := app.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting metricboard api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("database", cfg.DatabaseDriver),
	)

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer a.Close()
	log.Info("database connected")

	sqlDB, err := a.DB.DB()
	if err != nil {
		log.Fatal("failed to access database pool", zap.Error(err))
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: 0})
	defer rdb.Close()

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: 0})
	defer queue.Close()

	secret := []byte(cfg.ShareSecret)
	if len(secret) == 0 {
		log.Warn("SHARE_SECRET not set, share links are disabled")
	}
	issuer := share.NewIssuer(secret, cfg.ShareTokenTTL)

	router := api.NewRouter(api.Dependencies{
		Issuer:  issuer,
		Limiter: mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		HealthHandler: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": sqlDB,
			"redis":    redisPinger{rdb: rdb},
		}),
		ProjectsHandler:  handlers.NewProjectsHandler(a.Service, handlers.WithFeedQueue(queue)),
		MetricsHandler:   handlers.NewMetricsHandler(a.Dashboards),
		TabsHandler:      handlers.NewTabsHandler(a.Dashboards),
		SnapshotsHandler: handlers.NewSnapshotsHandler(a.Dashboards),
		ShareHandler:     handlers.NewShareHandler(issuer, a.Service, a.Dashboards),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}

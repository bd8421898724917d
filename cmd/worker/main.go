package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/app"
	"github.com/metricboard/engine/internal/queue/tasks"
	"github.com/metricboard/engine/pkg/config"
	"github.com/metricboard/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := app.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues: map[string]int{
			tasks.QueueSnapshots: 6,
			"default":            3,
		},
		Logger: log.Sugar(),
	})

	// Initialize DB and services for task handlers
	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}
	defer a.Close()

	client := asynq.NewClient(redisOpt)
	defer client.Close()

	mux := asynq.NewServeMux()
	handler := tasks.NewSnapshotTaskHandler(a.Dashboards, a.Projects, client)
	handler.Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.Local, Logger: log.Sugar()})
	entryID, err := scheduler.Register(cfg.SnapshotCron, tasks.NewCaptureAllTask())
	if err != nil {
		logger.L().Fatal("invalid SNAPSHOT_CRON", zap.String("cron", cfg.SnapshotCron), zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		logger.L().Fatal("scheduler start failed", zap.Error(err))
	}
	logger.L().Info("daily capture scheduled", zap.String("cron", cfg.SnapshotCron), zap.String("entry_id", entryID))

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	scheduler.Shutdown()
	// Allow in-flight tasks to finish gracefully
	srv.Shutdown()
}

package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/app"
	"github.com/metricboard/engine/internal/repository"
	"github.com/metricboard/engine/pkg/config"
	"github.com/metricboard/engine/pkg/database"
	"github.com/metricboard/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := app.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Open(context.Background(), database.Options{
		Driver:  cfg.DatabaseDriver,
		DSN:     cfg.DatabaseURL,
		Logger:  log,
		Verbose: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := repository.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}

// Package app wires configuration, the database and the services shared by the binaries.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/metricboard/engine/internal/repository"
	"github.com/metricboard/engine/internal/services"
	"github.com/metricboard/engine/pkg/config"
	"github.com/metricboard/engine/pkg/database"
	"github.com/metricboard/engine/pkg/logger"
)

type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Projects   repository.ProjectRepository
	Snapshots  repository.SnapshotRepository
	Dashboards services.DashboardService
	Service    services.ProjectService
}

// InitLogger initializes the global logger from cfg, teeing into LOG_FILE when set.
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	var opts []logger.Option
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	return logger.Init(cfg.LogLevel, cfg.LogFormat, opts...)
}

// New opens the database and builds repositories and services. SQLite databases are
// migrated on open; postgres is migrated by cmd/migrate.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(ctx, database.Options{
		Driver:  cfg.DatabaseDriver,
		DSN:     cfg.DatabaseURL,
		Logger:  logger.L(),
		Verbose: cfg.AppEnv != "production",
	})
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseDriver == "sqlite" {
		if err := repository.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	projectRepo := repository.NewProjectRepository(db)
	layoutRepo := repository.NewLayoutRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	dashboards := services.NewDashboardService(db, projectRepo, repository.NewMetricRepository(db), layoutRepo, snapshotRepo,
		services.WithFeedTimeout(cfg.FeedTimeout),
	)

	return &App{
		Config:     cfg,
		DB:         db,
		Projects:   projectRepo,
		Snapshots:  snapshotRepo,
		Dashboards: dashboards,
		Service:    services.NewProjectService(db, projectRepo, layoutRepo, dashboards),
	}, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

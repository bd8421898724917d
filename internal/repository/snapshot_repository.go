package repository

import (
	"context"
	"errors"
	"iter"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

// SnapshotRepository is the persistent snapshot archive.
type SnapshotRepository interface {
	dashboard.Archive
	// Summaries lists the aggregates of every snapshot, oldest first, without the metric payload.
	Summaries(ctx context.Context, projectID string) ([]models.Snapshot, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Record(ctx context.Context, snap models.Snapshot) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "date"}},
		UpdateAll: true,
	}).Create(&snap).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "record snapshot failed")
	}
	return nil
}

func (r *snapshotRepository) Lookup(ctx context.Context, projectID string, date models.Date) (models.Snapshot, bool, error) {
	var snap models.Snapshot
	err := r.db.WithContext(ctx).Where("project_id = ? AND date = ?", projectID, date).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, appErr.Wrap(err, appErr.CodeInternal, "lookup snapshot failed")
	}
	return snap, true, nil
}

// Dates loads all dates of the project in one query; the sequence walks the loaded slice.
func (r *snapshotRepository) Dates(ctx context.Context, projectID string) (iter.Seq[models.Date], error) {
	var dates []models.Date
	err := r.db.WithContext(ctx).Model(&models.Snapshot{}).Where("project_id = ?", projectID).
		Order("date ASC").Pluck("date", &dates).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list snapshot dates failed")
	}
	return slices.Values(dates), nil
}

func (r *snapshotRepository) Summaries(ctx context.Context, projectID string) ([]models.Snapshot, error) {
	var out []models.Snapshot
	err := r.db.WithContext(ctx).Omit("metrics_data").Where("project_id = ?", projectID).
		Order("date ASC").Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list snapshots failed")
	}
	return out, nil
}

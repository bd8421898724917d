package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

type MetricRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]models.Metric, error)
	Upsert(ctx context.Context, projectID string, metrics []models.Metric) error
	Delete(ctx context.Context, projectID string, ids ...string) error
	WithTx(tx *gorm.DB) MetricRepository
}

type metricRepository struct {
	db *gorm.DB
}

func NewMetricRepository(db *gorm.DB) MetricRepository {
	return &metricRepository{db: db}
}

func (r *metricRepository) WithTx(tx *gorm.DB) MetricRepository {
	return &metricRepository{db: tx}
}

func (r *metricRepository) ListByProject(ctx context.Context, projectID string) ([]models.Metric, error) {
	var out []models.Metric
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list metrics failed")
	}
	return out, nil
}

func (r *metricRepository) Upsert(ctx context.Context, projectID string, metrics []models.Metric) error {
	if len(metrics) == 0 {
		return nil
	}
	rows := make([]models.Metric, len(metrics))
	for i, m := range metrics {
		m.ProjectID = projectID
		rows[i] = m
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "upsert metrics failed")
	}
	return nil
}

func (r *metricRepository) Delete(ctx context.Context, projectID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("project_id = ? AND id IN ?", projectID, ids).Delete(&models.Metric{}).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete metrics failed")
	}
	return nil
}

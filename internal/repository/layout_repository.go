package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

// LayoutRepository stores tab and chart layout rows. Writes always replace a whole tab.
type LayoutRepository interface {
	ListEntries(ctx context.Context, projectID string) ([]models.TabLayoutEntry, error)
	ListCharts(ctx context.Context, projectID string) ([]models.ChartLayoutEntry, error)
	ReplaceTab(ctx context.Context, projectID, tabID string, entries []models.TabLayoutEntry) error
	ReplaceCharts(ctx context.Context, projectID, tabID string, charts []models.ChartLayoutEntry) error
	DeleteMetricEntries(ctx context.Context, projectID string, metricIDs ...string) error
	WithTx(tx *gorm.DB) LayoutRepository
}

type layoutRepository struct {
	db *gorm.DB
}

func NewLayoutRepository(db *gorm.DB) LayoutRepository {
	return &layoutRepository{db: db}
}

func (r *layoutRepository) WithTx(tx *gorm.DB) LayoutRepository {
	return &layoutRepository{db: tx}
}

func (r *layoutRepository) ListEntries(ctx context.Context, projectID string) ([]models.TabLayoutEntry, error) {
	var out []models.TabLayoutEntry
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("tab_id").Order("position").Order("metric_id").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list layout entries failed")
	}
	return out, nil
}

func (r *layoutRepository) ListCharts(ctx context.Context, projectID string) ([]models.ChartLayoutEntry, error) {
	var out []models.ChartLayoutEntry
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("tab_id").Order("seq").Order("chart_id").
		Find(&out).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list chart layout failed")
	}
	return out, nil
}

func (r *layoutRepository) ReplaceTab(ctx context.Context, projectID, tabID string, entries []models.TabLayoutEntry) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("project_id = ? AND tab_id = ?", projectID, tabID).Delete(&models.TabLayoutEntry{}).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "clear tab layout failed")
	}
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.TabLayoutEntry, len(entries))
	for i, e := range entries {
		e.ProjectID, e.TabID = projectID, tabID
		rows[i] = e
	}
	if err := db.Create(&rows).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "write tab layout failed")
	}
	return nil
}

func (r *layoutRepository) ReplaceCharts(ctx context.Context, projectID, tabID string, charts []models.ChartLayoutEntry) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("project_id = ? AND tab_id = ?", projectID, tabID).Delete(&models.ChartLayoutEntry{}).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "clear chart layout failed")
	}
	if len(charts) == 0 {
		return nil
	}
	rows := make([]models.ChartLayoutEntry, len(charts))
	for i, c := range charts {
		c.ProjectID, c.TabID = projectID, tabID
		rows[i] = c
	}
	if err := db.Create(&rows).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "write chart layout failed")
	}
	return nil
}

func (r *layoutRepository) DeleteMetricEntries(ctx context.Context, projectID string, metricIDs ...string) error {
	if len(metricIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("project_id = ? AND metric_id IN ?", projectID, metricIDs).
		Delete(&models.TabLayoutEntry{}).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "delete metric placements failed")
	}
	return nil
}

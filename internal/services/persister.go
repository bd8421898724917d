package services

import (
	"context"
	"maps"
	"slices"

	"gorm.io/gorm"

	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/repository"
)

// gormPersister writes a dashboard change in a single transaction and bumps the
// project version in the same transaction.
type gormPersister struct {
	db       *gorm.DB
	projects repository.ProjectRepository
	metrics  repository.MetricRepository
	layout   repository.LayoutRepository
	// committed receives the version written by each successful Apply.
	committed func(version int64)
}

func newGormPersister(
	db *gorm.DB,
	projects repository.ProjectRepository,
	metrics repository.MetricRepository,
	layout repository.LayoutRepository,
	committed func(version int64),
) *gormPersister {
	return &gormPersister{db: db, projects: projects, metrics: metrics, layout: layout, committed: committed}
}

var _ dashboard.Persister = (*gormPersister)(nil)

func (p *gormPersister) Apply(ctx context.Context, projectID string, ch dashboard.Change) error {
	var version int64
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		metrics, layout := p.metrics.WithTx(tx), p.layout.WithTx(tx)

		if err := metrics.Upsert(ctx, projectID, ch.Metrics); err != nil {
			return err
		}
		if len(ch.DeletedMetrics) > 0 {
			if err := layout.DeleteMetricEntries(ctx, projectID, ch.DeletedMetrics...); err != nil {
				return err
			}
			if err := metrics.Delete(ctx, projectID, ch.DeletedMetrics...); err != nil {
				return err
			}
		}
		for _, tabID := range slices.Sorted(maps.Keys(ch.Tabs)) {
			if err := layout.ReplaceTab(ctx, projectID, tabID, ch.Tabs[tabID]); err != nil {
				return err
			}
		}
		for _, tabID := range slices.Sorted(maps.Keys(ch.Charts)) {
			if err := layout.ReplaceCharts(ctx, projectID, tabID, ch.Charts[tabID]); err != nil {
				return err
			}
		}
		var err error
		version, err = p.projects.WithTx(tx).BumpVersion(ctx, projectID)
		return err
	})
	if err != nil {
		return err
	}
	if p.committed != nil {
		p.committed(version)
	}
	return nil
}

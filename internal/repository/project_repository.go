package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	List(ctx context.Context) ([]models.Project, error)
	ListIDs(ctx context.Context) ([]string, error)
	UpdateSource(ctx context.Context, projectID, url string, mapping datatypes.JSON) error
	// Version reads the project's write counter without loading the row.
	Version(ctx context.Context, projectID string) (int64, error)
	// BumpVersion increments the write counter and returns the new value.
	BumpVersion(ctx context.Context, projectID string) (int64, error)
	// DeleteCascade removes the project with its metrics, layout and snapshots.
	DeleteCascade(ctx context.Context, projectID string) error
	WithTx(tx *gorm.DB) ProjectRepository
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db), db: db}
}

func (r *projectRepository) WithTx(tx *gorm.DB) ProjectRepository {
	return NewProjectRepository(tx)
}

func (r *projectRepository) List(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects failed")
	}
	return out, nil
}

func (r *projectRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list project ids failed")
	}
	return ids, nil
}

func (r *projectRepository) UpdateSource(ctx context.Context, projectID, url string, mapping datatypes.JSON) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).
		Updates(map[string]any{"source_url": url, "source_mapping": mapping})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update project source failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "project not found")
	}
	return nil
}

func (r *projectRepository) DeleteCascade(ctx context.Context, projectID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.TabLayoutEntry{}, &models.ChartLayoutEntry{}, &models.Metric{}, &models.Snapshot{}} {
			if err := tx.Where("project_id = ?", projectID).Delete(m).Error; err != nil {
				return appErr.Wrap(err, appErr.CodeInternal, "delete project rows failed")
			}
		}
		res := tx.Delete(&models.Project{}, "id = ?", projectID)
		if res.Error != nil {
			return appErr.Wrap(res.Error, appErr.CodeInternal, "delete project failed")
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, "project not found")
		}
		return nil
	})
}

func (r *projectRepository) Version(ctx context.Context, projectID string) (int64, error) {
	var versions []int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).
		Pluck("version", &versions).Error; err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "read project version failed")
	}
	if len(versions) == 0 {
		return 0, appErr.New(appErr.CodeNotFound, "project not found")
	}
	return versions[0], nil
}

func (r *projectRepository) BumpVersion(ctx context.Context, projectID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "bump project version failed")
	}
	if res.RowsAffected == 0 {
		return 0, appErr.New(appErr.CodeNotFound, "project not found")
	}
	return r.Version(ctx, projectID)
}

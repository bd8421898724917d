package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/models"
	"github.com/metricboard/engine/internal/repository"
	appErr "github.com/metricboard/engine/pkg/errors"
	"github.com/metricboard/engine/pkg/logger"
)

type ProjectService interface {
	CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpdateSource(ctx context.Context, projectID string, input *UpdateSourceInput) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

type CreateProjectInput struct {
	Name      string `validate:"required,max=200"`
	Template  string `validate:"required,oneof=launch perpetual subscription"`
	Demo      bool
	SourceURL string            `validate:"omitempty,url"`
	Mapping   map[string]string `validate:"omitempty,dive,keys,required,endkeys"`
}

type UpdateSourceInput struct {
	SourceURL string            `validate:"omitempty,url"`
	Mapping   map[string]string `validate:"omitempty,dive,keys,required,endkeys"`
}

type projectService struct {
	db         *gorm.DB
	projects   repository.ProjectRepository
	layout     repository.LayoutRepository
	dashboards DashboardService
	validate   *validator.Validate
}

func NewProjectService(db *gorm.DB, projects repository.ProjectRepository, layout repository.LayoutRepository, dashboards DashboardService) ProjectService {
	return &projectService{
		db:         db,
		projects:   projects,
		layout:     layout,
		dashboards: dashboards,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Ensure interfaces are satisfied at compile time
var _ ProjectService = (*projectService)(nil)

func encodeMapping(m map[string]string) (datatypes.JSON, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid source mapping")
	}
	return datatypes.JSON(b), nil
}

// CreateProject stores a project and seeds every tab with its template's default layout.
// Demo projects are filled with fixture values right away.
func (s *projectService) CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error) {
	input.Name = strings.TrimSpace(input.Name)
	logger.L().Info("create project called", zap.String("name", input.Name), zap.String("template", input.Template))
	if err := s.validate.Struct(input); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid project")
	}
	if !catalog.ValidTemplate(input.Template) {
		return nil, appErr.Newf(appErr.CodeInvalid, "unknown template %q", input.Template)
	}
	mapping, err := encodeMapping(input.Mapping)
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		ID:            uuid.NewString(),
		Name:          input.Name,
		Template:      input.Template,
		Demo:          input.Demo,
		SourceURL:     input.SourceURL,
		SourceMapping: mapping,
	}
	seed := dashboard.Seed(p.ID, p.Template)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.projects.WithTx(tx).Create(ctx, p); err != nil {
			return err
		}
		layout := s.layout.WithTx(tx)
		for _, tabID := range seed.TabIDs() {
			if err := layout.ReplaceTab(ctx, p.ID, tabID, seed.Tabs[tabID]); err != nil {
				return err
			}
			if err := layout.ReplaceCharts(ctx, p.ID, tabID, seed.Charts[tabID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.Demo {
		if _, err := s.dashboards.SyncFeed(ctx, p.ID); err != nil {
			logger.L().Error("seed demo metrics failed", zap.String("project_id", p.ID), zap.Error(err))
			return nil, err
		}
	}

	logger.L().Info("project created", zap.String("project_id", p.ID), zap.String("template", p.Template), zap.Bool("demo", p.Demo))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var p models.Project
	if err := s.projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.projects.List(ctx)
}

func (s *projectService) UpdateSource(ctx context.Context, projectID string, input *UpdateSourceInput) (*models.Project, error) {
	logger.L().Info("update project source", zap.String("project_id", projectID))
	if err := s.validate.Struct(input); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid source")
	}
	mapping, err := encodeMapping(input.Mapping)
	if err != nil {
		return nil, err
	}
	if err := s.projects.UpdateSource(ctx, projectID, input.SourceURL, mapping); err != nil {
		return nil, err
	}
	return s.GetProject(ctx, projectID)
}

func (s *projectService) DeleteProject(ctx context.Context, projectID string) error {
	logger.L().Info("delete project", zap.String("project_id", projectID))
	if err := s.projects.DeleteCascade(ctx, projectID); err != nil {
		return err
	}
	s.dashboards.Close(projectID)
	logger.L().Info("project deleted", zap.String("project_id", projectID))
	return nil
}

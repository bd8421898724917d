package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/api/types"
	"github.com/metricboard/engine/internal/models"
	"github.com/metricboard/engine/internal/queue/tasks"
	"github.com/metricboard/engine/internal/services"
	"github.com/metricboard/engine/pkg/logger"
)

type ProjectsHandler struct {
	projects services.ProjectService
	queue    tasks.Enqueuer
}

type ProjectsOption func(*ProjectsHandler)

// WithFeedQueue enqueues a feed:sync task whenever a project gains a source URL.
func WithFeedQueue(q tasks.Enqueuer) ProjectsOption {
	return func(h *ProjectsHandler) { h.queue = q }
}

func NewProjectsHandler(projects services.ProjectService, opts ...ProjectsOption) *ProjectsHandler {
	h := &ProjectsHandler{projects: projects}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ProjectsHandler) scheduleSync(ctx context.Context, p *models.Project) {
	if h.queue == nil || p.SourceURL == "" {
		return
	}
	task, err := tasks.NewFeedSyncTask(p.ID)
	if err == nil {
		_, err = h.queue.EnqueueContext(ctx, task)
	}
	if err != nil {
		logger.L().Warn("enqueue feed sync failed", zap.String("project_id", p.ID), zap.Error(err))
	}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.projects.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := min((page-1)*size, len(items))
	end := min(start+size, len(items))
	resp := types.APIResponse{Success: true, Data: items[start:end], Meta: &types.Meta{Page: page, PageSize: size, Total: int64(len(items))}}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.CreateProject(r.Context(), &services.CreateProjectInput{
		Name:      req.Name,
		Template:  req.Template,
		Demo:      req.Demo,
		SourceURL: req.SourceURL,
		Mapping:   req.Mapping,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.scheduleSync(r.Context(), p)
	writeData(w, r, http.StatusCreated, p)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	var req types.SourceUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.UpdateSource(r.Context(), chi.URLParam(r, "projectID"), &services.UpdateSourceInput{
		SourceURL: req.SourceURL,
		Mapping:   req.Mapping,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.scheduleSync(r.Context(), p)
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.DeleteProject(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

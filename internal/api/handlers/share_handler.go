package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metricboard/engine/internal/api/middleware"
	"github.com/metricboard/engine/internal/services"
	"github.com/metricboard/engine/internal/share"
)

type ShareHandler struct {
	issuer     *share.Issuer
	projects   services.ProjectService
	dashboards services.DashboardService
}

func NewShareHandler(issuer *share.Issuer, projects services.ProjectService, dashboards services.DashboardService) *ShareHandler {
	return &ShareHandler{issuer: issuer, projects: projects, dashboards: dashboards}
}

// Issue signs a read-only share token for the project.
func (h *ShareHandler) Issue(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.issuer.Issue(p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, tok)
}

// PublicTab renders a tab for a share token holder. Only reads are reachable this way.
func (h *ShareHandler) PublicTab(w http.ResponseWriter, r *http.Request) {
	sess, err := h.dashboards.Session(r.Context(), middleware.GetProjectID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := modeFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := sess.ProjectTab(r.Context(), chi.URLParam(r, "tabID"), mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeProjection(w, r, p)
}

// PublicTabs lists the tabs visible through a share token.
func (h *ShareHandler) PublicTabs(w http.ResponseWriter, r *http.Request) {
	sess, err := h.dashboards.Session(r.Context(), middleware.GetProjectID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, sess.Tabs())
}

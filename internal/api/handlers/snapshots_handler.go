package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metricboard/engine/internal/api/types"
	"github.com/metricboard/engine/internal/models"
	"github.com/metricboard/engine/internal/services"
	appErr "github.com/metricboard/engine/pkg/errors"
)

type SnapshotsHandler struct {
	dashboards services.DashboardService
}

func NewSnapshotsHandler(dashboards services.DashboardService) *SnapshotsHandler {
	return &SnapshotsHandler{dashboards: dashboards}
}

// List returns snapshot summaries in ascending date order, without the frozen metric data.
func (h *SnapshotsHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.dashboards.Snapshots(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, snaps)
}

// Capture freezes the live metrics; an empty date means today on the server clock.
func (h *SnapshotsHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req types.CaptureRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.dashboards.CaptureSnapshot(r.Context(), chi.URLParam(r, "projectID"), models.Date(req.Date))
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap.MetricsData = nil
	writeData(w, r, http.StatusCreated, snap)
}

func (h *SnapshotsHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, r, appErr.New(appErr.CodeInvalid, "date is required"))
		return
	}
	nav, err := h.dashboards.Navigate(r.Context(), chi.URLParam(r, "projectID"), models.Date(raw))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, nav)
}

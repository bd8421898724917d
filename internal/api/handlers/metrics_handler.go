package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metricboard/engine/internal/api/types"
	"github.com/metricboard/engine/internal/services"
)

const maxImport = 8 << 20

type MetricsHandler struct {
	dashboards services.DashboardService
}

func NewMetricsHandler(dashboards services.DashboardService) *MetricsHandler {
	return &MetricsHandler{dashboards: dashboards}
}

func (h *MetricsHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, err := h.dashboards.Session(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, sess.Metrics())
}

// Sync pulls the project's configured feed.
func (h *MetricsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboards.SyncFeed(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, metrics)
}

// Import applies a CSV request body using the project's column mapping.
func (h *MetricsHandler) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImport)
	metrics, err := h.dashboards.ImportCSV(r.Context(), chi.URLParam(r, "projectID"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, metrics)
}

func (h *MetricsHandler) Override(w http.ResponseWriter, r *http.Request) {
	var req types.OverrideRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.dashboards.Session(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := sess.OverrideValue(r.Context(), chi.URLParam(r, "metricID"), *req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, m)
}

func (h *MetricsHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	sess, err := h.dashboards.Session(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := sess.ClearOverride(r.Context(), chi.URLParam(r, "metricID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, m)
}

func (h *MetricsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, err := h.dashboards.Session(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.DeleteMetric(r.Context(), chi.URLParam(r, "metricID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

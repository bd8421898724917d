package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metricboard/engine/internal/api/types"
	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/export"
	"github.com/metricboard/engine/internal/models"
	"github.com/metricboard/engine/internal/services"
	appErr "github.com/metricboard/engine/pkg/errors"
)

type TabsHandler struct {
	dashboards services.DashboardService
}

func NewTabsHandler(dashboards services.DashboardService) *TabsHandler {
	return &TabsHandler{dashboards: dashboards}
}

func (h *TabsHandler) session(w http.ResponseWriter, r *http.Request) (*dashboard.Session, bool) {
	sess, err := h.dashboards.Session(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *TabsHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeData(w, r, http.StatusOK, sess.Tabs())
}

// Project renders the tab, live or replayed with ?date=.
func (h *TabsHandler) Project(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
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

// Layout returns the tab's configuration including hidden entries.
func (h *TabsHandler) Layout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeData(w, r, http.StatusOK, sess.Layout(chi.URLParam(r, "tabID")))
}

func (h *TabsHandler) AddCustomMetric(w http.ResponseWriter, r *http.Request) {
	var req types.CustomMetricRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	m, layout, err := sess.AddCustomMetric(r.Context(), chi.URLParam(r, "tabID"), req.Name, models.ValueType(req.ValueType))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, map[string]any{"metric": m, "layout": layout})
}

func (h *TabsHandler) PlaceMetric(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	layout, err := sess.AddMetricToTab(r.Context(), chi.URLParam(r, "tabID"), chi.URLParam(r, "metricID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, layout)
}

func (h *TabsHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req types.EntryUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Visible == nil && req.Variant == nil {
		writeErrorStr(w, r, "visible or variant is required")
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	update := dashboard.EntryUpdate{Visible: req.Visible}
	if req.Variant != nil {
		v := models.Variant(*req.Variant)
		update.Variant = &v
	}
	layout, err := sess.UpdateEntry(r.Context(), chi.URLParam(r, "tabID"), chi.URLParam(r, "metricID"), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, layout)
}

func (h *TabsHandler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	layout, err := sess.RemoveFromTab(r.Context(), chi.URLParam(r, "tabID"), chi.URLParam(r, "metricID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, layout)
}

func (h *TabsHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req types.MoveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	layout, err := sess.Move(r.Context(), chi.URLParam(r, "tabID"), chi.URLParam(r, "metricID"), dashboard.Direction(req.Direction))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, layout)
}

func (h *TabsHandler) UpdateChart(w http.ResponseWriter, r *http.Request) {
	var req types.ChartUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Visible == nil && req.Type == nil {
		writeErrorStr(w, r, "visible or type is required")
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	update := dashboard.ChartUpdate{Visible: req.Visible}
	if req.Type != nil {
		ct := models.ChartType(*req.Type)
		update.Type = &ct
	}
	layout, err := sess.UpdateChart(r.Context(), chi.URLParam(r, "tabID"), chi.URLParam(r, "chartID"), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, layout)
}

func (h *TabsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	layout, err := sess.ResetTabLayout(r.Context(), chi.URLParam(r, "tabID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, layout)
}

// Export downloads the projection as json, csv or xlsx.
func (h *TabsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := modeFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	p, err := sess.ProjectTab(r.Context(), chi.URLParam(r, "tabID"), mode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, p); err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInternal, "export failed"))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(p)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

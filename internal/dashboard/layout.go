package dashboard

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

// Direction moves an entry one slot towards the top or the bottom of its tab.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func entryNotFound(tabID, id string) *appErr.AppError {
	return appErr.Newf(appErr.CodeEntryNotFound, "no layout entry for %s on tab %s", id, tabID).
		WithMeta("tab_id", tabID).
		WithMeta("id", id)
}

// EntryUpdate lists the fields of a tab entry to change; nil fields are kept.
type EntryUpdate struct {
	Visible *bool
	Variant *models.Variant
}

// SetVisibility shows or hides a metric on a tab.
func (s *Session) SetVisibility(ctx context.Context, tabID, metricID string, visible bool) (Layout, error) {
	return s.UpdateEntry(ctx, tabID, metricID, EntryUpdate{Visible: &visible})
}

// SetVariant changes the presentation variant of a metric on a tab.
func (s *Session) SetVariant(ctx context.Context, tabID, metricID string, variant models.Variant) (Layout, error) {
	return s.UpdateEntry(ctx, tabID, metricID, EntryUpdate{Variant: &variant})
}

// UpdateEntry validates every field of u and then applies them in one commit.
func (s *Session) UpdateEntry(ctx context.Context, tabID, metricID string, u EntryUpdate) (Layout, error) {
	if u.Variant != nil && !u.Variant.Valid() {
		return Layout{}, appErr.Newf(appErr.CodeInvalid, "unknown variant %q", *u.Variant)
	}
	return s.updateEntry(ctx, tabID, metricID, func(e *models.TabLayoutEntry) {
		if u.Visible != nil {
			e.Visible = *u.Visible
		}
		if u.Variant != nil {
			e.Variant = *u.Variant
		}
	})
}

func (s *Session) updateEntry(ctx context.Context, tabID, metricID string, apply func(*models.TabLayoutEntry)) (Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfEntry(s.state.Tabs[tabID], metricID)
	if i < 0 {
		return Layout{}, entryNotFound(tabID, metricID)
	}
	next := s.state.Clone()
	apply(&next.Tabs[tabID][i])
	if err := s.commit(ctx, next, Change{Tabs: tabChange(tabID, next.Tabs[tabID])}); err != nil {
		return Layout{}, err
	}
	return s.layoutLocked(tabID), nil
}

// Move swaps a metric with its neighbour in direction. Moving past either end is a no-op.
func (s *Session) Move(ctx context.Context, tabID, metricID string, dir Direction) (Layout, error) {
	if dir != Up && dir != Down {
		return Layout{}, appErr.Newf(appErr.CodeInvalid, "unknown direction %q", dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.state.Tabs[tabID]
	i := indexOfEntry(entries, metricID)
	if i < 0 {
		return Layout{}, entryNotFound(tabID, metricID)
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(entries) {
		return s.layoutLocked(tabID), nil
	}

	next := s.state.Clone()
	list := next.Tabs[tabID]
	list[i], list[j] = list[j], list[i]
	list[i].Position, list[j].Position = i+1, j+1
	if err := s.commit(ctx, next, Change{Tabs: tabChange(tabID, list)}); err != nil {
		return Layout{}, err
	}
	s.log.Debug("layout entry moved", zap.String("tab_id", tabID), zap.String("metric_id", metricID), zap.String("direction", string(dir)))
	return s.layoutLocked(tabID), nil
}

// AddCustomMetric creates a user-defined metric and appends it, visible, to the end of a tab.
func (s *Session) AddCustomMetric(ctx context.Context, tabID, name string, vt models.ValueType) (models.Metric, Layout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Metric{}, Layout{}, appErr.New(appErr.CodeInvalidName, "metric name is required")
	}
	if !vt.Valid() {
		return models.Metric{}, Layout{}, appErr.Newf(appErr.CodeInvalid, "unknown value type %q", vt)
	}
	if strings.TrimSpace(tabID) == "" {
		return models.Metric{}, Layout{}, appErr.New(appErr.CodeInvalid, "tab id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := models.Metric{
		ProjectID: s.state.ProjectID,
		ID:        s.newID(),
		Name:      name,
		ValueType: vt,
		IsCustom:  true,
	}
	next := s.state.Clone()
	next.Metrics[m.ID] = m
	next.Tabs[tabID] = append(next.Tabs[tabID], models.TabLayoutEntry{
		ProjectID: s.state.ProjectID,
		TabID:     tabID,
		MetricID:  m.ID,
		Visible:   true,
		Position:  len(next.Tabs[tabID]) + 1,
		Variant:   models.VariantCard,
	})
	ch := Change{Metrics: []models.Metric{m}, Tabs: tabChange(tabID, next.Tabs[tabID])}
	if err := s.commit(ctx, next, ch); err != nil {
		return models.Metric{}, Layout{}, err
	}
	s.log.Info("custom metric added", zap.String("tab_id", tabID), zap.String("metric_id", m.ID))
	return m, s.layoutLocked(tabID), nil
}

// AddMetricToTab places an existing metric at the end of a tab.
func (s *Session) AddMetricToTab(ctx context.Context, tabID, metricID string) (Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Metrics[metricID]; !ok {
		return Layout{}, appErr.Newf(appErr.CodeNotFound, "metric %s not found", metricID)
	}
	if indexOfEntry(s.state.Tabs[tabID], metricID) >= 0 {
		return Layout{}, appErr.Newf(appErr.CodeConflict, "metric %s is already on tab %s", metricID, tabID)
	}
	next := s.state.Clone()
	next.Tabs[tabID] = append(next.Tabs[tabID], models.TabLayoutEntry{
		ProjectID: s.state.ProjectID,
		TabID:     tabID,
		MetricID:  metricID,
		Visible:   true,
		Position:  len(next.Tabs[tabID]) + 1,
		Variant:   models.VariantCard,
	})
	if err := s.commit(ctx, next, Change{Tabs: tabChange(tabID, next.Tabs[tabID])}); err != nil {
		return Layout{}, err
	}
	return s.layoutLocked(tabID), nil
}

// RemoveFromTab drops a metric's entry from a tab and closes the gap. The metric itself is kept.
func (s *Session) RemoveFromTab(ctx context.Context, tabID, metricID string) (Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfEntry(s.state.Tabs[tabID], metricID)
	if i < 0 {
		return Layout{}, entryNotFound(tabID, metricID)
	}
	next := s.state.Clone()
	list := append(next.Tabs[tabID][:i], next.Tabs[tabID][i+1:]...)
	list = renumber(list)
	next.setTab(tabID, list, next.Charts[tabID])
	if err := s.commit(ctx, next, Change{Tabs: tabChange(tabID, list)}); err != nil {
		return Layout{}, err
	}
	return s.layoutLocked(tabID), nil
}

// ResetTabLayout replaces a tab's entries and charts with the template default. Custom tabs
// reset to empty. Metric records are not touched.
func (s *Session) ResetTabLayout(ctx context.Context, tabID string) (Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.TabLayoutEntry
	var charts []models.ChartLayoutEntry
	if tl, ok := catalog.DefaultLayout(s.state.Template, tabID); ok {
		entries, charts = tl.SeedEntries(s.state.ProjectID)
	}
	next := s.state.Clone()
	next.setTab(tabID, entries, charts)
	ch := Change{Tabs: tabChange(tabID, entries), Charts: chartChange(tabID, charts)}
	if err := s.commit(ctx, next, ch); err != nil {
		return Layout{}, err
	}
	s.log.Info("tab layout reset", zap.String("tab_id", tabID), zap.Int("entries", len(entries)), zap.Int("charts", len(charts)))
	return s.layoutLocked(tabID), nil
}

// ChartUpdate lists the fields of a chart to change; nil fields are kept.
type ChartUpdate struct {
	Visible *bool
	Type    *models.ChartType
}

// SetChartVisibility shows or hides a chart on a tab.
func (s *Session) SetChartVisibility(ctx context.Context, tabID, chartID string, visible bool) (Layout, error) {
	return s.UpdateChart(ctx, tabID, chartID, ChartUpdate{Visible: &visible})
}

// SetChartType changes a chart's renderer. Funnel charts are only allowed on the funnel tab.
func (s *Session) SetChartType(ctx context.Context, tabID, chartID string, ct models.ChartType) (Layout, error) {
	return s.UpdateChart(ctx, tabID, chartID, ChartUpdate{Type: &ct})
}

// UpdateChart validates every field of u and then applies them in one commit.
func (s *Session) UpdateChart(ctx context.Context, tabID, chartID string, u ChartUpdate) (Layout, error) {
	if u.Type != nil && !u.Type.ValidOn(tabID) {
		return Layout{}, appErr.Newf(appErr.CodeInvalid, "chart type %q is not allowed on tab %s", *u.Type, tabID)
	}
	return s.updateChart(ctx, tabID, chartID, func(c *models.ChartLayoutEntry) {
		if u.Visible != nil {
			c.Visible = *u.Visible
		}
		if u.Type != nil {
			c.Type = *u.Type
		}
	})
}

func (s *Session) updateChart(ctx context.Context, tabID, chartID string, apply func(*models.ChartLayoutEntry)) (Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOfChart(s.state.Charts[tabID], chartID)
	if i < 0 {
		return Layout{}, entryNotFound(tabID, chartID)
	}
	next := s.state.Clone()
	apply(&next.Charts[tabID][i])
	if err := s.commit(ctx, next, Change{Charts: chartChange(tabID, next.Charts[tabID])}); err != nil {
		return Layout{}, err
	}
	return s.layoutLocked(tabID), nil
}

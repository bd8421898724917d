package dashboard

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

// Record is one metric value supplied by a metric source feed.
type Record struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Value     float64          `json:"value"`
	ValueType models.ValueType `json:"value_type"`
}

// normalize fills name and type from the registry when the feed leaves them empty.
func (r Record) normalize() (Record, error) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return r, appErr.New(appErr.CodeInvalid, "feed record without id")
	}
	def, known := catalog.Lookup(r.ID)
	if r.ValueType == "" && known {
		r.ValueType = def.ValueType
	}
	if !r.ValueType.Valid() {
		return r, appErr.Newf(appErr.CodeInvalid, "metric %s has unknown value type %q", r.ID, r.ValueType)
	}
	if strings.TrimSpace(r.Name) == "" {
		r.Name = r.ID
		if known {
			r.Name = def.Name
		}
	}
	return r, nil
}

// ApplyFeed upserts metric values from a source feed. Overridden metrics keep their manual
// value and only record the new source value. The batch is rejected as a whole when any
// record is invalid or an id repeats.
func (s *Session) ApplyFeed(ctx context.Context, records []Record) ([]models.Metric, error) {
	normalized := make([]Record, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		n, err := r.normalize()
		if err != nil {
			return nil, err
		}
		if seen[n.ID] {
			return nil, appErr.Newf(appErr.CodeInvalid, "metric %s appears twice in feed", n.ID)
		}
		seen[n.ID] = true
		normalized = append(normalized, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	var changed []models.Metric
	for _, r := range normalized {
		cur, exists := next.Metrics[r.ID]
		m := cur
		if !exists {
			m = models.Metric{ProjectID: s.state.ProjectID, ID: r.ID}
		}
		m.Name = r.Name
		m.ValueType = r.ValueType
		m.SourceValue = r.Value
		if !m.IsOverridden {
			m.Value = r.Value
		}
		if exists && m == cur {
			continue
		}
		next.Metrics[r.ID] = m
		changed = append(changed, m)
	}
	if err := s.commit(ctx, next, Change{Metrics: changed}); err != nil {
		return nil, err
	}
	s.log.Info("feed applied", zap.Int("records", len(normalized)), zap.Int("changed", len(changed)))
	return s.state.SortedMetrics(), nil
}

// OverrideValue pins a metric to a manual value until ClearOverride.
func (s *Session) OverrideValue(ctx context.Context, metricID string, value float64) (models.Metric, error) {
	return s.updateMetric(ctx, metricID, func(m *models.Metric) {
		m.Value = value
		m.IsOverridden = true
	})
}

// ClearOverride drops a manual value and restores the last source value.
func (s *Session) ClearOverride(ctx context.Context, metricID string) (models.Metric, error) {
	return s.updateMetric(ctx, metricID, func(m *models.Metric) {
		m.Value = m.SourceValue
		m.IsOverridden = false
	})
}

func (s *Session) updateMetric(ctx context.Context, metricID string, apply func(*models.Metric)) (models.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.state.Metrics[metricID]
	if !ok {
		return models.Metric{}, appErr.Newf(appErr.CodeNotFound, "metric %s not found", metricID)
	}
	apply(&m)
	next := s.state.Clone()
	next.Metrics[metricID] = m
	if err := s.commit(ctx, next, Change{Metrics: []models.Metric{m}}); err != nil {
		return models.Metric{}, err
	}
	return m, nil
}

// DeleteMetric removes a metric and its placement on every tab.
func (s *Session) DeleteMetric(ctx context.Context, metricID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Metrics[metricID]; !ok {
		return appErr.Newf(appErr.CodeNotFound, "metric %s not found", metricID)
	}
	next := s.state.Clone()
	delete(next.Metrics, metricID)
	ch := Change{DeletedMetrics: []string{metricID}}
	for tabID, entries := range next.Tabs {
		i := indexOfEntry(entries, metricID)
		if i < 0 {
			continue
		}
		list := renumber(append(entries[:i], entries[i+1:]...))
		next.setTab(tabID, list, next.Charts[tabID])
		if ch.Tabs == nil {
			ch.Tabs = map[string][]models.TabLayoutEntry{}
		}
		ch.Tabs[tabID] = append([]models.TabLayoutEntry(nil), list...)
	}
	if err := s.commit(ctx, next, ch); err != nil {
		return err
	}
	s.log.Info("metric deleted", zap.String("metric_id", metricID), zap.Int("tabs", len(ch.Tabs)))
	return nil
}

package dashboard

import (
	"slices"

	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/models"
)

// Mode selects live data or a replayed snapshot.
type Mode struct {
	date models.Date
}

// Live projects the current metric values.
func Live() Mode { return Mode{} }

// ReplayAt projects the snapshot captured on date.
func ReplayAt(date models.Date) Mode { return Mode{date: date} }

// Replay returns the replay date, if any.
func (m Mode) Replay() (models.Date, bool) { return m.date, m.date != "" }

func (m Mode) String() string {
	if m.date == "" {
		return "live"
	}
	return "replay:" + string(m.date)
}

// Card is a resolved metric plus its presentation variant.
type Card struct {
	Metric   models.Metric  `json:"metric"`
	Variant  models.Variant `json:"variant"`
	Position int            `json:"position"`
}

// ChartItem is a visible chart of a tab.
type ChartItem struct {
	ChartID string           `json:"chart_id"`
	Type    models.ChartType `json:"type"`
}

// Projection is the ordered, visibility-filtered render list of a tab.
type Projection struct {
	TabID  string      `json:"tab_id"`
	Mode   string      `json:"mode"`
	Date   models.Date `json:"date,omitempty"`
	Cards  []Card      `json:"cards"`
	Charts []ChartItem `json:"charts"`
}

// MetricIDs returns the card metric ids in display order.
func (p Projection) MetricIDs() []string {
	out := make([]string, len(p.Cards))
	for i, c := range p.Cards {
		out[i] = c.Metric.ID
	}
	return out
}

// Project joins a tab's layout with a metric set. It is a pure function of its inputs:
// hidden entries are dropped, entries whose metric is absent are skipped with a warning,
// cards are ordered by position then metric id, and charts keep their seed order.
func Project(tabID string, mode Mode, metrics map[string]models.Metric, entries []models.TabLayoutEntry, charts []models.ChartLayoutEntry, log *zap.Logger) Projection {
	if log == nil {
		log = zap.NewNop()
	}
	p := Projection{TabID: tabID, Mode: "live", Cards: []Card{}, Charts: []ChartItem{}}
	if date, ok := mode.Replay(); ok {
		p.Mode = "replay"
		p.Date = date
	}

	visible := make([]models.TabLayoutEntry, 0, len(entries))
	for _, e := range entries {
		if e.Visible {
			visible = append(visible, e)
		}
	}
	slices.SortStableFunc(visible, compareEntries)

	for _, e := range visible {
		m, ok := metrics[e.MetricID]
		if !ok {
			log.Warn("layout entry references unknown metric",
				zap.String("tab_id", tabID),
				zap.String("metric_id", e.MetricID),
				zap.String("mode", mode.String()),
			)
			continue
		}
		p.Cards = append(p.Cards, Card{Metric: m, Variant: e.Variant, Position: e.Position})
	}

	ordered := slices.Clone(charts)
	slices.SortStableFunc(ordered, compareCharts)
	for _, c := range ordered {
		if c.Visible {
			p.Charts = append(p.Charts, ChartItem{ChartID: c.ChartID, Type: c.Type})
		}
	}
	return p
}

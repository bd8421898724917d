// Package dashboard resolves metric values and per-tab layout preferences into the ordered
// render list of a dashboard tab, live or replayed from a dated snapshot.
package dashboard

import (
	"cmp"
	"maps"
	"slices"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/models"
)

// State is the in-memory metric value store and layout configuration store of one project.
type State struct {
	ProjectID string
	Template  string
	Metrics   map[string]models.Metric
	// Tabs holds each tab's entries ordered by Position (1..N).
	Tabs map[string][]models.TabLayoutEntry
	// Charts holds each tab's charts ordered by Seq.
	Charts map[string][]models.ChartLayoutEntry
}

// NewState returns an empty state for a project.
func NewState(projectID, template string) *State {
	return &State{
		ProjectID: projectID,
		Template:  template,
		Metrics:   map[string]models.Metric{},
		Tabs:      map[string][]models.TabLayoutEntry{},
		Charts:    map[string][]models.ChartLayoutEntry{},
	}
}

// Seed returns a state holding the template's default layout for every tab.
func Seed(projectID, template string) *State {
	st := NewState(projectID, template)
	for _, tl := range catalog.Tabs(template) {
		entries, charts := tl.SeedEntries(projectID)
		st.setTab(tl.TabID, entries, charts)
	}
	return st
}

// LoadState builds a state from persisted rows. Tabs whose positions are not exactly 1..N
// are renumbered by (position, metric id).
func LoadState(project models.Project, metrics []models.Metric, entries []models.TabLayoutEntry, charts []models.ChartLayoutEntry) *State {
	st := NewState(project.ID, project.Template)
	for _, m := range metrics {
		st.Metrics[m.ID] = m
	}
	for _, e := range entries {
		st.Tabs[e.TabID] = append(st.Tabs[e.TabID], e)
	}
	for tabID, list := range st.Tabs {
		st.Tabs[tabID] = renumber(list)
	}
	for _, c := range charts {
		st.Charts[c.TabID] = append(st.Charts[c.TabID], c)
	}
	for tabID, list := range st.Charts {
		slices.SortStableFunc(list, compareCharts)
		st.Charts[tabID] = list
	}
	return st
}

// Clone returns a deep copy; mutators work on clones so a failed commit leaves the original intact.
func (s *State) Clone() *State {
	out := &State{
		ProjectID: s.ProjectID,
		Template:  s.Template,
		Metrics:   maps.Clone(s.Metrics),
		Tabs:      make(map[string][]models.TabLayoutEntry, len(s.Tabs)),
		Charts:    make(map[string][]models.ChartLayoutEntry, len(s.Charts)),
	}
	for k, v := range s.Tabs {
		out.Tabs[k] = slices.Clone(v)
	}
	for k, v := range s.Charts {
		out.Charts[k] = slices.Clone(v)
	}
	return out
}

// TabIDs lists the template's tabs in display order followed by custom tabs sorted by id.
func (s *State) TabIDs() []string {
	var out []string
	seen := map[string]bool{}
	for _, tl := range catalog.Tabs(s.Template) {
		out = append(out, tl.TabID)
		seen[tl.TabID] = true
	}
	var custom []string
	for id := range s.Tabs {
		if !seen[id] {
			custom = append(custom, id)
			seen[id] = true
		}
	}
	for id := range s.Charts {
		if !seen[id] {
			custom = append(custom, id)
			seen[id] = true
		}
	}
	slices.Sort(custom)
	return append(out, custom...)
}

// SortedMetrics returns the metric set ordered by id.
func (s *State) SortedMetrics() []models.Metric {
	out := slices.Collect(maps.Values(s.Metrics))
	slices.SortFunc(out, func(a, b models.Metric) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *State) setTab(tabID string, entries []models.TabLayoutEntry, charts []models.ChartLayoutEntry) {
	if len(entries) == 0 {
		delete(s.Tabs, tabID)
	} else {
		s.Tabs[tabID] = entries
	}
	if len(charts) == 0 {
		delete(s.Charts, tabID)
	} else {
		s.Charts[tabID] = charts
	}
}

func compareEntries(a, b models.TabLayoutEntry) int {
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	return cmp.Compare(a.MetricID, b.MetricID)
}

func compareCharts(a, b models.ChartLayoutEntry) int {
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	return cmp.Compare(a.ChartID, b.ChartID)
}

// renumber orders entries by (position, metric id) and reassigns positions 1..N.
func renumber(entries []models.TabLayoutEntry) []models.TabLayoutEntry {
	slices.SortStableFunc(entries, compareEntries)
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

func indexOfEntry(entries []models.TabLayoutEntry, metricID string) int {
	return slices.IndexFunc(entries, func(e models.TabLayoutEntry) bool { return e.MetricID == metricID })
}

func indexOfChart(charts []models.ChartLayoutEntry, chartID string) int {
	return slices.IndexFunc(charts, func(c models.ChartLayoutEntry) bool { return c.ChartID == chartID })
}

package dashboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metricboard/engine/internal/models"
)

const testProject = "p-test"

// overviewSession seeds tab "overview" with Leads, Revenue, ROI at positions 1..3.
func overviewSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	st := NewState(testProject, "launch")
	for _, m := range []models.Metric{
		{ProjectID: testProject, ID: "Leads", Name: "Leads", Value: 420, SourceValue: 420, ValueType: models.ValueNumber},
		{ProjectID: testProject, ID: "Revenue", Name: "Revenue", Value: 18500, SourceValue: 18500, ValueType: models.ValueCurrency},
		{ProjectID: testProject, ID: "ROI", Name: "ROI", Value: 85, SourceValue: 85, ValueType: models.ValuePercent},
	} {
		st.Metrics[m.ID] = m
	}
	for i, id := range []string{"Leads", "Revenue", "ROI"} {
		st.Tabs["overview"] = append(st.Tabs["overview"], models.TabLayoutEntry{
			ProjectID: testProject, TabID: "overview", MetricID: id, Visible: true, Position: i + 1, Variant: models.VariantCard,
		})
	}
	st.Charts["overview"] = []models.ChartLayoutEntry{
		{ProjectID: testProject, TabID: "overview", ChartID: "leads_por_dia", Visible: true, Type: models.ChartLine, Seq: 1},
		{ProjectID: testProject, TabID: "overview", ChartID: "origem_leads", Visible: false, Type: models.ChartPie, Seq: 2},
	}

	n := 0
	opts = append([]Option{WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("custom_%d", n)
	})}, opts...)
	return NewSession(st, opts...)
}

func positionsOf(entries []models.TabLayoutEntry) map[int]string {
	out := make(map[int]string, len(entries))
	for _, e := range entries {
		out[e.Position] = e.MetricID
	}
	return out
}

func requireContiguous(t *testing.T, st *State) {
	t.Helper()
	for tabID, entries := range st.Tabs {
		seen := map[int]bool{}
		for _, e := range entries {
			require.False(t, seen[e.Position], "tab %s has duplicate position %d", tabID, e.Position)
			seen[e.Position] = true
		}
		for p := 1; p <= len(entries); p++ {
			require.True(t, seen[p], "tab %s misses position %d of %d", tabID, p, len(entries))
		}
	}
}

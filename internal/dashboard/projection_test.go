package dashboard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

func TestMoveThenHideScenario(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	layout, err := s.Move(ctx, "overview", "Revenue", Up)
	require.NoError(t, err)
	require.Equal(t, map[int]string{1: "Revenue", 2: "Leads", 3: "ROI"}, positionsOf(layout.Entries))

	_, err = s.SetVisibility(ctx, "overview", "Leads", false)
	require.NoError(t, err)

	p, err := s.ProjectTab(ctx, "overview", Live())
	require.NoError(t, err)
	require.Equal(t, []string{"Revenue", "ROI"}, p.MetricIDs())
}

func TestAddCustomMetricAppearsLast(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	m, layout, err := s.AddCustomMetric(ctx, "overview", "Taxa de Abertura", models.ValuePercent)
	require.NoError(t, err)
	require.Equal(t, "custom_1", m.ID)
	require.False(t, m.IsOverridden)
	require.Zero(t, m.Value)

	last := layout.Entries[len(layout.Entries)-1]
	require.Equal(t, m.ID, last.MetricID)
	require.Equal(t, 4, last.Position)
	require.True(t, last.Visible)
	require.Equal(t, models.VariantCard, last.Variant)

	p, err := s.ProjectTab(ctx, "overview", Live())
	require.NoError(t, err)
	require.Equal(t, []string{"Leads", "Revenue", "ROI", "custom_1"}, p.MetricIDs())
	require.Equal(t, "Taxa de Abertura", p.Cards[3].Metric.Name)
}

func TestResetTabLayoutRestoresDefault(t *testing.T) {
	ctx := context.Background()
	s := NewSession(Seed(testProject, catalog.TemplateLaunch))
	def, ok := catalog.DefaultLayout(catalog.TemplateLaunch, catalog.TabFunil)
	require.True(t, ok)
	wantEntries, wantCharts := def.SeedEntries(testProject)

	_, err := s.Move(ctx, catalog.TabFunil, catalog.Vendas, Up)
	require.NoError(t, err)
	_, err = s.SetVisibility(ctx, catalog.TabFunil, catalog.Leads, false)
	require.NoError(t, err)
	_, err = s.SetVariant(ctx, catalog.TabFunil, catalog.PageViews, models.VariantHero)
	require.NoError(t, err)
	custom, _, err := s.AddCustomMetric(ctx, catalog.TabFunil, "Cliques no WhatsApp", models.ValueNumber)
	require.NoError(t, err)
	_, err = s.RemoveFromTab(ctx, catalog.TabFunil, catalog.ConnectRate)
	require.NoError(t, err)
	_, err = s.SetChartVisibility(ctx, catalog.TabFunil, "funil_conversao", false)
	require.NoError(t, err)

	layout, err := s.ResetTabLayout(ctx, catalog.TabFunil)
	require.NoError(t, err)

	if diff := cmp.Diff(wantEntries, layout.Entries); diff != "" {
		t.Fatalf("entries after reset (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantCharts, layout.Charts); diff != "" {
		t.Fatalf("charts after reset (-want +got):\n%s", diff)
	}
	_, stillThere := s.Metric(custom.ID)
	require.True(t, stillThere, "reset must keep the custom metric record")
}

func TestProjectTabIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	first, err := s.ProjectTab(ctx, "overview", Live())
	require.NoError(t, err)
	second, err := s.ProjectTab(ctx, "overview", Live())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestHiddenEntriesAreNeverProjected(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	for _, id := range []string{"Leads", "ROI"} {
		_, err := s.SetVisibility(ctx, "overview", id, false)
		require.NoError(t, err)
	}
	_, err := s.Move(ctx, "overview", "ROI", Up)
	require.NoError(t, err)

	p, err := s.ProjectTab(ctx, "overview", Live())
	require.NoError(t, err)
	require.Equal(t, []string{"Revenue"}, p.MetricIDs())
	require.Equal(t, []ChartItem{{ChartID: "leads_por_dia", Type: models.ChartLine}}, p.Charts)
}

func TestUnknownMetricIsSkipped(t *testing.T) {
	ctx := context.Background()
	s := NewSession(Seed(testProject, catalog.TemplateLaunch))
	_, err := s.ApplyFeed(ctx, []Record{{ID: catalog.Faturamento, Value: 1000}, {ID: catalog.Leads, Value: 50}})
	require.NoError(t, err)

	p, err := s.ProjectTab(ctx, catalog.TabOverview, Live())
	require.NoError(t, err)
	require.Equal(t, []string{catalog.Faturamento, catalog.Leads}, p.MetricIDs())
}

func TestUnknownTabProjectsEmpty(t *testing.T) {
	s := overviewSession(t)

	p, err := s.ProjectTab(context.Background(), "campanha-black-friday", Live())
	require.NoError(t, err)
	require.Empty(t, p.Cards)
	require.Empty(t, p.Charts)
	require.Equal(t, "live", p.Mode)
}

func TestProjectBreaksPositionTiesByMetricID(t *testing.T) {
	metrics := map[string]models.Metric{
		"b": {ID: "b"}, "a": {ID: "a"}, "c": {ID: "c"},
	}
	entries := []models.TabLayoutEntry{
		{MetricID: "c", Position: 1, Visible: true},
		{MetricID: "b", Position: 2, Visible: true},
		{MetricID: "a", Position: 2, Visible: true},
	}
	p := Project("overview", Live(), metrics, entries, nil, nil)
	require.Equal(t, []string{"c", "a", "b"}, p.MetricIDs())
}

func TestReplayServesSnapshotValues(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)
	day := models.Date("2026-03-01")

	_, err := s.Capture(ctx, day)
	require.NoError(t, err)

	_, err = s.OverrideValue(ctx, "Revenue", 1)
	require.NoError(t, err)
	_, err = s.ApplyFeed(ctx, []Record{{ID: "Leads", Name: "Leads", Value: 9999, ValueType: models.ValueNumber}})
	require.NoError(t, err)
	_, err = s.SetVisibility(ctx, "overview", "ROI", false)
	require.NoError(t, err)

	p, err := s.ProjectTab(ctx, "overview", ReplayAt(day))
	require.NoError(t, err)
	require.Equal(t, "replay", p.Mode)
	require.Equal(t, day, p.Date)
	require.Equal(t, []string{"Leads", "Revenue"}, p.MetricIDs(), "live layout still decides visibility")
	require.Equal(t, 420.0, p.Cards[0].Metric.Value)
	require.Equal(t, 18500.0, p.Cards[1].Metric.Value)
	require.False(t, p.Cards[1].Metric.IsOverridden)

	live, err := s.ProjectTab(ctx, "overview", Live())
	require.NoError(t, err)
	require.Equal(t, 9999.0, live.Cards[0].Metric.Value)
}

func TestReplayWithoutSnapshotFails(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)
	_, err := s.Capture(ctx, "2026-03-01")
	require.NoError(t, err)

	p, err := s.ProjectTab(ctx, "overview", ReplayAt("2026-03-02"))
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeReplayUnavailable))
	require.Empty(t, p.Cards, "no live fallback")
}

func TestRecordSnapshotCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)
	metrics := []models.Metric{{ID: "Leads", Name: "Leads", Value: 10, ValueType: models.ValueNumber}}

	_, err := s.RecordSnapshot(ctx, "2026-02-01", metrics)
	require.NoError(t, err)
	metrics[0].Value = 77

	p, err := s.ProjectTab(ctx, "overview", ReplayAt("2026-02-01"))
	require.NoError(t, err)
	require.Equal(t, []string{"Leads"}, p.MetricIDs())
	require.Equal(t, 10.0, p.Cards[0].Metric.Value)
}

package dashboard

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

func TestPositionsStayContiguous(t *testing.T) {
	ctx := context.Background()
	s := NewSession(Seed(testProject, catalog.TemplateLaunch))
	rng := rand.New(rand.NewPCG(7, 42))
	tabs := []string{catalog.TabOverview, catalog.TabFunil, "custom-tab"}

	pick := func(tabID string) (string, bool) {
		entries := s.Layout(tabID).Entries
		if len(entries) == 0 {
			return "", false
		}
		return entries[rng.IntN(len(entries))].MetricID, true
	}

	for step := range 500 {
		tabID := tabs[rng.IntN(len(tabs))]
		var err error
		switch op := rng.IntN(6); op {
		case 0:
			_, _, err = s.AddCustomMetric(ctx, tabID, fmt.Sprintf("Custom %d", step), models.ValueNumber)
		case 1:
			if id, ok := pick(tabID); ok {
				_, err = s.RemoveFromTab(ctx, tabID, id)
			}
		case 2:
			if id, ok := pick(tabID); ok {
				_, err = s.Move(ctx, tabID, id, Up)
			}
		case 3:
			if id, ok := pick(tabID); ok {
				_, err = s.Move(ctx, tabID, id, Down)
			}
		case 4:
			if id, ok := pick(tabID); ok {
				_, err = s.SetVisibility(ctx, tabID, id, rng.IntN(2) == 0)
			}
		case 5:
			if rng.IntN(10) == 0 {
				_, err = s.ResetTabLayout(ctx, tabID)
			}
		}
		require.NoError(t, err, "step %d", step)
		requireContiguous(t, s.State())
	}
}

func TestMoveAtBoundaryIsNoop(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)
	before := s.Layout("overview")

	after, err := s.Move(ctx, "overview", "Leads", Up)
	require.NoError(t, err)
	require.Equal(t, before, after)

	after, err = s.Move(ctx, "overview", "ROI", Down)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestMoveRejectsUnknownDirection(t *testing.T) {
	_, err := overviewSession(t).Move(context.Background(), "overview", "Leads", Direction("left"))
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestUnknownEntryReportsEntryNotFound(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	_, err := s.SetVisibility(ctx, "overview", "CPL", false)
	require.True(t, appErr.IsCode(err, appErr.CodeEntryNotFound))

	_, err = s.Move(ctx, "trafego", "Leads", Down)
	require.True(t, appErr.IsCode(err, appErr.CodeEntryNotFound))

	_, err = s.RemoveFromTab(ctx, "overview", "nope")
	require.True(t, appErr.IsCode(err, appErr.CodeEntryNotFound))

	_, err = s.SetChartVisibility(ctx, "overview", "nope", true)
	require.True(t, appErr.IsCode(err, appErr.CodeEntryNotFound))
}

func TestAddCustomMetricValidation(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	_, _, err := s.AddCustomMetric(ctx, "overview", "   ", models.ValueNumber)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalidName))

	_, _, err = s.AddCustomMetric(ctx, "overview", "Cliques", models.ValueType("ratio"))
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	require.Len(t, s.Layout("overview").Entries, 3)
	require.Len(t, s.Metrics(), 3)
}

func TestAddCustomMetricToNewTab(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	m, layout, err := s.AddCustomMetric(ctx, "campanha", "  Leads Orgânicos ", models.ValueNumber)
	require.NoError(t, err)
	require.Equal(t, "Leads Orgânicos", m.Name)
	require.True(t, m.IsCustom)
	require.Len(t, layout.Entries, 1)
	require.Equal(t, 1, layout.Entries[0].Position)
	require.Contains(t, s.Tabs(), "campanha")
}

func TestAddMetricToTab(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	layout, err := s.AddMetricToTab(ctx, "vendas", "Revenue")
	require.NoError(t, err)
	require.Equal(t, map[int]string{1: "Revenue"}, positionsOf(layout.Entries))

	_, err = s.AddMetricToTab(ctx, "vendas", "Revenue")
	require.True(t, appErr.IsCode(err, appErr.CodeConflict))

	_, err = s.AddMetricToTab(ctx, "vendas", "Ghost")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestRemoveFromTabClosesGap(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	layout, err := s.RemoveFromTab(ctx, "overview", "Revenue")
	require.NoError(t, err)
	require.Equal(t, map[int]string{1: "Leads", 2: "ROI"}, positionsOf(layout.Entries))

	_, ok := s.Metric("Revenue")
	require.True(t, ok, "metric record survives removal from a tab")
}

func TestResetCustomTabEmptiesIt(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)
	_, _, err := s.AddCustomMetric(ctx, "campanha", "Cupons", models.ValueNumber)
	require.NoError(t, err)

	layout, err := s.ResetTabLayout(ctx, "campanha")
	require.NoError(t, err)
	require.Empty(t, layout.Entries)
	require.Empty(t, layout.Charts)
	require.NotContains(t, s.Tabs(), "campanha")
}

func TestSetVariant(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	layout, err := s.SetVariant(ctx, "overview", "ROI", models.VariantHero)
	require.NoError(t, err)
	require.Equal(t, models.VariantHero, layout.Entries[2].Variant)

	_, err = s.SetVariant(ctx, "overview", "ROI", models.Variant("tile"))
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestSetChartTypeFunnelOnlyOnFunnelTab(t *testing.T) {
	ctx := context.Background()
	s := NewSession(Seed(testProject, catalog.TemplateLaunch))

	_, err := s.SetChartType(ctx, catalog.TabOverview, "leads_por_dia", models.ChartFunnel)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	layout, err := s.SetChartType(ctx, catalog.TabOverview, "leads_por_dia", models.ChartArea)
	require.NoError(t, err)
	require.Equal(t, models.ChartArea, layout.Charts[1].Type)

	layout, err = s.SetChartType(ctx, catalog.TabFunil, "funil_conversao", models.ChartBar)
	require.NoError(t, err)
	require.Equal(t, models.ChartBar, layout.Charts[0].Type)
	_, err = s.SetChartType(ctx, catalog.TabFunil, "funil_conversao", models.ChartFunnel)
	require.NoError(t, err)
}

func TestUpdateEntryIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	p := new(mockPersister)
	p.On("Apply", mock.Anything, testProject, mock.Anything).Return(nil).Once()
	s := overviewSession(t, WithPersister(p))

	hidden, tile := false, models.Variant("tile")
	_, err := s.UpdateEntry(ctx, "overview", "ROI", EntryUpdate{Visible: &hidden, Variant: &tile})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	require.True(t, s.Layout("overview").Entries[2].Visible)
	p.AssertNumberOfCalls(t, "Apply", 0)

	hero := models.VariantHero
	layout, err := s.UpdateEntry(ctx, "overview", "ROI", EntryUpdate{Visible: &hidden, Variant: &hero})
	require.NoError(t, err)
	require.False(t, layout.Entries[2].Visible)
	require.Equal(t, models.VariantHero, layout.Entries[2].Variant)
	p.AssertNumberOfCalls(t, "Apply", 1)
}

func TestUpdateChartIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	p := new(mockPersister)
	p.On("Apply", mock.Anything, testProject, mock.Anything).Return(nil).Once()
	s := overviewSession(t, WithPersister(p))

	hidden, funnel := false, models.ChartFunnel
	_, err := s.UpdateChart(ctx, "overview", "leads_por_dia", ChartUpdate{Visible: &hidden, Type: &funnel})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	chart := s.Layout("overview").Charts[0]
	require.True(t, chart.Visible)
	require.Equal(t, models.ChartLine, chart.Type)
	p.AssertNumberOfCalls(t, "Apply", 0)

	bar := models.ChartBar
	layout, err := s.UpdateChart(ctx, "overview", "leads_por_dia", ChartUpdate{Visible: &hidden, Type: &bar})
	require.NoError(t, err)
	require.False(t, layout.Charts[0].Visible)
	require.Equal(t, models.ChartBar, layout.Charts[0].Type)
	p.AssertNumberOfCalls(t, "Apply", 1)
}

func TestChartOrderSurvivesVisibilityToggles(t *testing.T) {
	ctx := context.Background()
	s := NewSession(Seed(testProject, catalog.TemplateLaunch))

	_, err := s.SetChartVisibility(ctx, catalog.TabOverview, "faturamento_vs_investimento", false)
	require.NoError(t, err)
	_, err = s.SetChartVisibility(ctx, catalog.TabOverview, "origem_leads", true)
	require.NoError(t, err)
	_, err = s.SetChartVisibility(ctx, catalog.TabOverview, "faturamento_vs_investimento", true)
	require.NoError(t, err)

	p, err := s.ProjectTab(ctx, catalog.TabOverview, Live())
	require.NoError(t, err)
	ids := make([]string, len(p.Charts))
	for i, c := range p.Charts {
		ids[i] = c.ChartID
	}
	require.Equal(t, []string{"faturamento_vs_investimento", "leads_por_dia", "origem_leads"}, ids)
}

package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

func TestApplyFeedFillsFromRegistry(t *testing.T) {
	s := NewSession(Seed(testProject, catalog.TemplateLaunch))

	metrics, err := s.ApplyFeed(context.Background(), []Record{{ID: catalog.Faturamento, Value: 1234.5}})
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	def, _ := catalog.Lookup(catalog.Faturamento)
	require.Equal(t, def.Name, metrics[0].Name)
	require.Equal(t, models.ValueCurrency, metrics[0].ValueType)
	require.Equal(t, 1234.5, metrics[0].Value)
	require.Equal(t, 1234.5, metrics[0].SourceValue)
}

func TestApplyFeedKeepsOverrides(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)

	_, err := s.OverrideValue(ctx, "Revenue", 20000)
	require.NoError(t, err)
	_, err = s.ApplyFeed(ctx, []Record{{ID: "Revenue", Name: "Revenue", Value: 19000, ValueType: models.ValueCurrency}})
	require.NoError(t, err)

	m, _ := s.Metric("Revenue")
	require.True(t, m.IsOverridden)
	require.Equal(t, 20000.0, m.Value)
	require.Equal(t, 19000.0, m.SourceValue)

	m, err = s.ClearOverride(ctx, "Revenue")
	require.NoError(t, err)
	require.False(t, m.IsOverridden)
	require.Equal(t, 19000.0, m.Value)
}

func TestApplyFeedRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)
	before := s.State()

	_, err := s.ApplyFeed(ctx, []Record{
		{ID: "Leads", Value: 1, ValueType: models.ValueNumber},
		{ID: "Leads", Value: 2, ValueType: models.ValueNumber},
	})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = s.ApplyFeed(ctx, []Record{
		{ID: "Leads", Value: 1, ValueType: models.ValueNumber},
		{ID: "mystery", Value: 2},
	})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = s.ApplyFeed(ctx, []Record{{ID: " ", Value: 1}})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	require.Equal(t, before, s.State())
}

func TestApplyFeedSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	p := new(mockPersister)
	s := overviewSession(t, WithPersister(p))

	_, err := s.ApplyFeed(ctx, []Record{{ID: "Leads", Name: "Leads", Value: 420, ValueType: models.ValueNumber}})
	require.NoError(t, err)
	p.AssertNumberOfCalls(t, "Apply", 0)
}

func TestOverrideUnknownMetric(t *testing.T) {
	_, err := overviewSession(t).OverrideValue(context.Background(), "ghost", 1)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestDeleteMetricRemovesPlacements(t *testing.T) {
	ctx := context.Background()
	s := overviewSession(t)
	_, err := s.AddMetricToTab(ctx, "vendas", "Leads")
	require.NoError(t, err)

	require.NoError(t, s.DeleteMetric(ctx, "Leads"))

	_, ok := s.Metric("Leads")
	require.False(t, ok)
	require.Equal(t, map[int]string{1: "Revenue", 2: "ROI"}, positionsOf(s.Layout("overview").Entries))
	require.Empty(t, s.Layout("vendas").Entries)
	requireContiguous(t, s.State())

	err = s.DeleteMetric(ctx, "Leads")
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

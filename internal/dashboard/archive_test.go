package dashboard

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metricboard/engine/internal/models"
)

func snapshotOf(t *testing.T, date models.Date, value float64) models.Snapshot {
	t.Helper()
	snap, err := models.NewSnapshot(testProject, date, []models.Metric{{ID: "Leads", Value: value, ValueType: models.ValueNumber}})
	require.NoError(t, err)
	return snap
}

func TestMemoryArchiveUpsertsByDate(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryArchive()

	require.NoError(t, a.Record(ctx, snapshotOf(t, "2026-03-02", 1)))
	require.NoError(t, a.Record(ctx, snapshotOf(t, "2026-03-02", 2)))

	snap, found, err := a.Lookup(ctx, testProject, "2026-03-02")
	require.NoError(t, err)
	require.True(t, found)
	metrics, err := snap.Metrics()
	require.NoError(t, err)
	require.Equal(t, 2.0, metrics[0].Value)

	_, found, err = a.Lookup(ctx, testProject, "2026-03-03")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = a.Lookup(ctx, "other", "2026-03-02")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryArchiveDatesAscendingAndRestartable(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryArchive()
	for _, d := range []models.Date{"2026-03-05", "2026-01-10", "2026-02-28"} {
		require.NoError(t, a.Record(ctx, snapshotOf(t, d, 1)))
	}

	dates, err := a.Dates(ctx, testProject)
	require.NoError(t, err)
	want := []models.Date{"2026-01-10", "2026-02-28", "2026-03-05"}
	require.Equal(t, want, slices.Collect(dates))
	require.Equal(t, want, slices.Collect(dates))

	empty, err := a.Dates(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, slices.Collect(empty))
}

func TestMemoryArchiveIsolatesStoredBytes(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryArchive()
	snap := snapshotOf(t, "2026-03-02", 5)
	require.NoError(t, a.Record(ctx, snap))
	for i := range snap.MetricsData {
		snap.MetricsData[i] = ' '
	}

	got, _, err := a.Lookup(ctx, testProject, "2026-03-02")
	require.NoError(t, err)
	metrics, err := got.Metrics()
	require.NoError(t, err)
	require.Equal(t, 5.0, metrics[0].Value)
}

func TestDateNavigation(t *testing.T) {
	dates := slices.Values([]models.Date{"2026-01-10", "2026-02-28", "2026-03-05"})

	d, ok := Nearest(dates, "2026-03-01")
	require.True(t, ok)
	require.Equal(t, models.Date("2026-02-28"), d)

	d, ok = Nearest(dates, "2026-02-28")
	require.True(t, ok)
	require.Equal(t, models.Date("2026-02-28"), d)

	_, ok = Nearest(dates, "2025-12-31")
	require.False(t, ok)

	d, ok = Previous(dates, "2026-02-28")
	require.True(t, ok)
	require.Equal(t, models.Date("2026-01-10"), d)

	_, ok = Previous(dates, "2026-01-10")
	require.False(t, ok)

	d, ok = Next(dates, "2026-02-28")
	require.True(t, ok)
	require.Equal(t, models.Date("2026-03-05"), d)

	_, ok = Next(dates, "2026-03-05")
	require.False(t, ok)
}

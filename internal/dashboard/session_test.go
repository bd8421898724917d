package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

type mockPersister struct {
	mock.Mock
}

func (m *mockPersister) Apply(ctx context.Context, projectID string, ch Change) error {
	args := m.Called(ctx, projectID, ch)
	return args.Error(0)
}

type failingArchive struct {
	*MemoryArchive
	err error
}

func (a failingArchive) Record(context.Context, models.Snapshot) error { return a.err }

func (a failingArchive) Lookup(context.Context, string, models.Date) (models.Snapshot, bool, error) {
	return models.Snapshot{}, false, a.err
}

func TestFailedPersistLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	p := new(mockPersister)
	p.On("Apply", mock.Anything, testProject, mock.Anything).Return(errors.New("connection refused"))
	s := overviewSession(t, WithPersister(p))
	before := s.State()

	_, err := s.Move(ctx, "overview", "Revenue", Up)
	require.True(t, appErr.IsCode(err, appErr.CodeUpstreamUnavailable))
	require.True(t, appErr.Retryable(err))

	_, err = s.SetVisibility(ctx, "overview", "Leads", false)
	require.Error(t, err)
	_, _, err = s.AddCustomMetric(ctx, "overview", "Taxa de Abertura", models.ValuePercent)
	require.Error(t, err)
	_, err = s.OverrideValue(ctx, "ROI", 1)
	require.Error(t, err)
	require.Error(t, s.DeleteMetric(ctx, "Leads"))
	_, err = s.ResetTabLayout(ctx, "overview")
	require.Error(t, err)

	require.Equal(t, before, s.State())
	p.AssertNumberOfCalls(t, "Apply", 6)
}

func TestMovePersistsWholeTab(t *testing.T) {
	ctx := context.Background()
	p := new(mockPersister)
	p.On("Apply", mock.Anything, testProject, mock.MatchedBy(func(ch Change) bool {
		entries, ok := ch.Tabs["overview"]
		return ok && len(entries) == 3 &&
			entries[0].MetricID == "Revenue" && entries[0].Position == 1 &&
			entries[1].MetricID == "Leads" && entries[1].Position == 2 &&
			len(ch.Metrics) == 0 && len(ch.Charts) == 0
	})).Return(nil).Once()
	s := overviewSession(t, WithPersister(p))

	_, err := s.Move(ctx, "overview", "Revenue", Up)
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestNoopMoveDoesNotPersist(t *testing.T) {
	p := new(mockPersister)
	s := overviewSession(t, WithPersister(p))

	_, err := s.Move(context.Background(), "overview", "Leads", Up)
	require.NoError(t, err)
	p.AssertNumberOfCalls(t, "Apply", 0)
}

func TestCaptureAggregatesAndStamps(t *testing.T) {
	ctx := context.Background()
	stamp := time.Date(2026, 3, 1, 23, 55, 0, 0, time.FixedZone("BRT", -3*3600))
	s := overviewSession(t, WithClock(func() time.Time { return stamp }))

	snap, err := s.Capture(ctx, "2026-03-01")
	require.NoError(t, err)
	require.Equal(t, stamp.UTC(), snap.CapturedAt)
	require.Equal(t, models.Date("2026-03-01"), snap.Date)

	metrics, err := snap.Metrics()
	require.NoError(t, err)
	require.Len(t, metrics, 3)
	require.Equal(t, "Leads", metrics[0].ID)
	require.Equal(t, testProject, metrics[0].ProjectID)

	dates, err := s.SnapshotDates(ctx)
	require.NoError(t, err)
	var got []models.Date
	for d := range dates {
		got = append(got, d)
	}
	require.Equal(t, []models.Date{"2026-03-01"}, got)
}

func TestCaptureRejectsBadDate(t *testing.T) {
	_, err := overviewSession(t).Capture(context.Background(), "01/03/2026")
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestArchiveFailuresAreUpstream(t *testing.T) {
	ctx := context.Background()
	a := failingArchive{MemoryArchive: NewMemoryArchive(), err: errors.New("disk gone")}
	s := overviewSession(t, WithArchive(a))

	_, err := s.Capture(ctx, "2026-03-01")
	require.True(t, appErr.IsCode(err, appErr.CodeUpstreamUnavailable))

	_, err = s.ProjectTab(ctx, "overview", ReplayAt("2026-03-01"))
	require.True(t, appErr.IsCode(err, appErr.CodeUpstreamUnavailable))

	p, err := s.ProjectTab(ctx, "overview", Live())
	require.NoError(t, err)
	require.Len(t, p.Cards, 3, "live projection does not touch the archive")
}

func TestLoadStateRenumbersCorruptTabs(t *testing.T) {
	project := models.Project{ID: testProject, Template: "launch"}
	entries := []models.TabLayoutEntry{
		{TabID: "overview", MetricID: "b", Position: 4, Visible: true},
		{TabID: "overview", MetricID: "a", Position: 4, Visible: true},
		{TabID: "overview", MetricID: "c", Position: 9, Visible: false},
	}
	charts := []models.ChartLayoutEntry{
		{TabID: "overview", ChartID: "z", Seq: 2},
		{TabID: "overview", ChartID: "y", Seq: 1},
	}
	st := LoadState(project, nil, entries, charts)

	requireContiguous(t, st)
	require.Equal(t, map[int]string{1: "a", 2: "b", 3: "c"}, positionsOf(st.Tabs["overview"]))
	require.Equal(t, "y", st.Charts["overview"][0].ChartID)
}

func TestTabsListsTemplateTabsFirst(t *testing.T) {
	s := NewSession(Seed(testProject, "launch"))
	_, _, err := s.AddCustomMetric(context.Background(), "aaa", "Extra", models.ValueNumber)
	require.NoError(t, err)
	require.Equal(t, []string{"overview", "trafego", "funil", "vendas", "aaa"}, s.Tabs())
}

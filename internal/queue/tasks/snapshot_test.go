package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/models"
	"github.com/metricboard/engine/internal/services"
	appErr "github.com/metricboard/engine/pkg/errors"
	"github.com/metricboard/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json", logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockDashboards struct{ mock.Mock }

func (m *mockDashboards) Session(ctx context.Context, projectID string) (*dashboard.Session, error) {
	args := m.Called(ctx, projectID)
	s, _ := args.Get(0).(*dashboard.Session)
	return s, args.Error(1)
}

func (m *mockDashboards) Close(projectID string) { m.Called(projectID) }

func (m *mockDashboards) SyncFeed(ctx context.Context, projectID string) ([]models.Metric, error) {
	args := m.Called(ctx, projectID)
	out, _ := args.Get(0).([]models.Metric)
	return out, args.Error(1)
}

func (m *mockDashboards) ImportCSV(ctx context.Context, projectID string, r io.Reader) ([]models.Metric, error) {
	args := m.Called(ctx, projectID, r)
	out, _ := args.Get(0).([]models.Metric)
	return out, args.Error(1)
}

func (m *mockDashboards) CaptureSnapshot(ctx context.Context, projectID string, date models.Date) (models.Snapshot, error) {
	args := m.Called(ctx, projectID, date)
	return args.Get(0).(models.Snapshot), args.Error(1)
}

func (m *mockDashboards) Snapshots(ctx context.Context, projectID string) ([]models.Snapshot, error) {
	args := m.Called(ctx, projectID)
	out, _ := args.Get(0).([]models.Snapshot)
	return out, args.Error(1)
}

func (m *mockDashboards) Navigate(ctx context.Context, projectID string, date models.Date) (services.Navigation, error) {
	args := m.Called(ctx, projectID, date)
	return args.Get(0).(services.Navigation), args.Error(1)
}

type mockLister struct{ mock.Mock }

func (m *mockLister) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func fixedClock() time.Time { return time.Date(2026, 3, 14, 23, 55, 0, 0, time.UTC) }

func newHandler(d *mockDashboards, l *mockLister, q *mockQueue) *SnapshotTaskHandler {
	h := NewSnapshotTaskHandler(d, l, q)
	h.now = fixedClock
	return h
}

func captureTask(t *testing.T, projectID string, date models.Date) *asynq.Task {
	t.Helper()
	task, err := NewCaptureTask(projectID, date)
	require.NoError(t, err)
	return task
}

func TestHandleCaptureAllEnqueuesPerProject(t *testing.T) {
	d, l, q := new(mockDashboards), new(mockLister), new(mockQueue)
	l.On("ListIDs", mock.Anything).Return([]string{"p-1", "p-2"}, nil)

	var payloads []CapturePayload
	q.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		return task.Type() == TypeCapture
	}), mock.Anything).Run(func(args mock.Arguments) {
		var p CapturePayload
		require.NoError(t, json.Unmarshal(args.Get(1).(*asynq.Task).Payload(), &p))
		payloads = append(payloads, p)
	}).Return(&asynq.TaskInfo{}, nil)

	err := newHandler(d, l, q).HandleCaptureAll(context.Background(), NewCaptureAllTask())
	require.NoError(t, err)

	assert.Equal(t, []CapturePayload{
		{ProjectID: "p-1", Date: "2026-03-14"},
		{ProjectID: "p-2", Date: "2026-03-14"},
	}, payloads)
	mock.AssertExpectationsForObjects(t, l, q)
	d.AssertNotCalled(t, "CaptureSnapshot", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleCaptureAllSkipsDuplicates(t *testing.T) {
	d, l, q := new(mockDashboards), new(mockLister), new(mockQueue)
	l.On("ListIDs", mock.Anything).Return([]string{"p-1"}, nil)
	q.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, asynq.ErrTaskIDConflict)

	require.NoError(t, newHandler(d, l, q).HandleCaptureAll(context.Background(), NewCaptureAllTask()))
	q.AssertNumberOfCalls(t, "EnqueueContext", 1)
}

func TestHandleCaptureAllPropagatesListFailure(t *testing.T) {
	d, l, q := new(mockDashboards), new(mockLister), new(mockQueue)
	l.On("ListIDs", mock.Anything).Return(nil, errors.New("db down"))

	err := newHandler(d, l, q).HandleCaptureAll(context.Background(), NewCaptureAllTask())
	require.Error(t, err)
	q.AssertNumberOfCalls(t, "EnqueueContext", 0)
}

func TestHandleCaptureDefaultsDate(t *testing.T) {
	d, l, q := new(mockDashboards), new(mockLister), new(mockQueue)
	d.On("CaptureSnapshot", mock.Anything, "p-1", models.Date("2026-03-14")).
		Return(models.Snapshot{ProjectID: "p-1", Date: "2026-03-14", Revenue: 18500.5}, nil)

	require.NoError(t, newHandler(d, l, q).HandleCapture(context.Background(), captureTask(t, "p-1", "")))
	d.AssertExpectations(t)
}

func TestHandleCaptureRetryPolicy(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"upstream retried", appErr.New(appErr.CodeUpstreamUnavailable, "database unavailable"), false},
		{"unknown retried", errors.New("boom"), false},
		{"missing project skipped", appErr.New(appErr.CodeNotFound, "project not found"), true},
		{"invalid date skipped", appErr.New(appErr.CodeInvalid, "invalid date"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, l, q := new(mockDashboards), new(mockLister), new(mockQueue)
			d.On("CaptureSnapshot", mock.Anything, "p-1", models.Date("2026-03-10")).Return(models.Snapshot{}, tc.err)

			err := newHandler(d, l, q).HandleCapture(context.Background(), captureTask(t, "p-1", "2026-03-10"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandleCaptureRejectsBadPayload(t *testing.T) {
	d, l, q := new(mockDashboards), new(mockLister), new(mockQueue)
	h := newHandler(d, l, q)

	err := h.HandleCapture(context.Background(), asynq.NewTask(TypeCapture, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleCapture(context.Background(), asynq.NewTask(TypeCapture, []byte(`{"date":"2026-03-10"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	d.AssertNumberOfCalls(t, "CaptureSnapshot", 0)
}

func TestHandleFeedSync(t *testing.T) {
	d, l, q := new(mockDashboards), new(mockLister), new(mockQueue)
	d.On("SyncFeed", mock.Anything, "p-1").Return([]models.Metric{{ID: "leads"}}, nil).Once()
	d.On("SyncFeed", mock.Anything, "p-2").Return(nil, appErr.New(appErr.CodeInvalid, "project has no metric source")).Once()
	h := newHandler(d, l, q)

	task, err := NewFeedSyncTask("p-1")
	require.NoError(t, err)
	require.NoError(t, h.HandleFeedSync(context.Background(), task))

	task, err = NewFeedSyncTask("p-2")
	require.NoError(t, err)
	assert.ErrorIs(t, h.HandleFeedSync(context.Background(), task), asynq.SkipRetry)
	d.AssertExpectations(t)
}

func TestRegisterRoutesAllTypes(t *testing.T) {
	d, l, q := new(mockDashboards), new(mockLister), new(mockQueue)
	d.On("SyncFeed", mock.Anything, "p-1").Return([]models.Metric{}, nil)
	mux := asynq.NewServeMux()
	newHandler(d, l, q).Register(mux)

	task, err := NewFeedSyncTask("p-1")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	d.AssertExpectations(t)
}

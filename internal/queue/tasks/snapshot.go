package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/models"
	"github.com/metricboard/engine/internal/services"
	appErr "github.com/metricboard/engine/pkg/errors"
	"github.com/metricboard/engine/pkg/logger"
)

const (
	TypeCaptureAll = "snapshot:capture_all"
	TypeCapture    = "snapshot:capture"
	TypeFeedSync   = "feed:sync"

	// QueueSnapshots holds per-project capture and sync tasks.
	QueueSnapshots = "snapshots"
)

// CapturePayload is the payload of snapshot:capture. An empty date means the day the task runs.
type CapturePayload struct {
	ProjectID string      `json:"project_id"`
	Date      models.Date `json:"date,omitempty"`
}

// FeedSyncPayload is the payload of feed:sync.
type FeedSyncPayload struct {
	ProjectID string `json:"project_id"`
}

func NewCaptureAllTask() *asynq.Task {
	return asynq.NewTask(TypeCaptureAll, nil, asynq.MaxRetry(3))
}

func NewCaptureTask(projectID string, date models.Date) (*asynq.Task, error) {
	b, err := json.Marshal(CapturePayload{ProjectID: projectID, Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCapture, b, asynq.Queue(QueueSnapshots), asynq.MaxRetry(5)), nil
}

func NewFeedSyncTask(projectID string) (*asynq.Task, error) {
	b, err := json.Marshal(FeedSyncPayload{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFeedSync, b, asynq.Queue(QueueSnapshots), asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}

// Enqueuer is the part of *asynq.Client the handlers use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ProjectLister enumerates projects for the daily fan-out.
type ProjectLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// SnapshotTaskHandler handles snapshot capture and feed sync tasks.
type SnapshotTaskHandler struct {
	dashboards services.DashboardService
	projects   ProjectLister
	queue      Enqueuer
	now        func() time.Time
}

func NewSnapshotTaskHandler(dashboards services.DashboardService, projects ProjectLister, queue Enqueuer) *SnapshotTaskHandler {
	return &SnapshotTaskHandler{dashboards: dashboards, projects: projects, queue: queue, now: time.Now}
}

// Register binds the handlers to mux.
func (h *SnapshotTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCaptureAll, h.HandleCaptureAll)
	mux.HandleFunc(TypeCapture, h.HandleCapture)
	mux.HandleFunc(TypeFeedSync, h.HandleFeedSync)
}

// HandleCaptureAll enqueues one capture per project for today. Task ids make the fan-out
// idempotent when the cron entry fires twice.
func (h *SnapshotTaskHandler) HandleCaptureAll(ctx context.Context, _ *asynq.Task) error {
	date := models.DateOf(h.now())
	ids, err := h.projects.ListIDs(ctx)
	if err != nil {
		logger.L().Error("list projects for capture failed", zap.Error(err))
		return err
	}

	enqueued := 0
	for _, id := range ids {
		task, err := NewCaptureTask(id, date)
		if err != nil {
			return err
		}
		_, err = h.queue.EnqueueContext(ctx, task, asynq.TaskID(fmt.Sprintf("capture:%s:%s", id, date)))
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			continue
		}
		if err != nil {
			logger.L().Error("enqueue capture task failed", zap.String("project_id", id), zap.Error(err))
			return err
		}
		enqueued++
	}
	logger.L().Info("daily capture fanned out", zap.String("date", string(date)), zap.Int("projects", len(ids)), zap.Int("enqueued", enqueued))
	return nil
}

func (h *SnapshotTaskHandler) HandleCapture(ctx context.Context, t *asynq.Task) error {
	var p CapturePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.ProjectID == "" {
		logger.L().Error("invalid capture task payload", zap.Error(err))
		return fmt.Errorf("invalid capture payload: %w", asynq.SkipRetry)
	}
	if p.Date == "" {
		p.Date = models.DateOf(h.now())
	}

	logger.L().Info("handling capture task", zap.String("project_id", p.ProjectID), zap.String("date", string(p.Date)))
	snap, err := h.dashboards.CaptureSnapshot(ctx, p.ProjectID, p.Date)
	if err != nil {
		logger.L().Error("capture snapshot failed", zap.String("project_id", p.ProjectID), zap.Error(err))
		return retryable(err)
	}
	logger.L().Info("snapshot captured", zap.String("project_id", p.ProjectID), zap.String("date", string(snap.Date)), zap.Float64("revenue", snap.Revenue))
	return nil
}

func (h *SnapshotTaskHandler) HandleFeedSync(ctx context.Context, t *asynq.Task) error {
	var p FeedSyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.ProjectID == "" {
		logger.L().Error("invalid feed sync task payload", zap.Error(err))
		return fmt.Errorf("invalid feed sync payload: %w", asynq.SkipRetry)
	}

	logger.L().Info("handling feed sync task", zap.String("project_id", p.ProjectID))
	metrics, err := h.dashboards.SyncFeed(ctx, p.ProjectID)
	if err != nil {
		logger.L().Error("feed sync failed", zap.String("project_id", p.ProjectID), zap.Error(err))
		return retryable(err)
	}
	logger.L().Info("feed synced", zap.String("project_id", p.ProjectID), zap.Int("metrics", len(metrics)))
	return nil
}

// retryable lets asynq retry transient failures only.
func retryable(err error) error {
	if appErr.Retryable(err) || appErr.CodeOf(err) == appErr.CodeUnknown {
		return err
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

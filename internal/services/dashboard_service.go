package services

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/feed"
	"github.com/metricboard/engine/internal/models"
	"github.com/metricboard/engine/internal/repository"
	appErr "github.com/metricboard/engine/pkg/errors"
	"github.com/metricboard/engine/pkg/logger"
)

// DashboardService keeps one editing session per project and runs the flows that span a
// session and the outside world: feed sync, CSV import and snapshot capture.
type DashboardService interface {
	// Session returns the project's session, loading it from the database on first use
	// and again whenever another writer has changed the project since.
	Session(ctx context.Context, projectID string) (*dashboard.Session, error)
	// Close drops the cached session; the next call reloads from the database.
	Close(projectID string)

	SyncFeed(ctx context.Context, projectID string) ([]models.Metric, error)
	ImportCSV(ctx context.Context, projectID string, r io.Reader) ([]models.Metric, error)
	// CaptureSnapshot freezes the live metrics as the snapshot of date, today when date is empty.
	CaptureSnapshot(ctx context.Context, projectID string, date models.Date) (models.Snapshot, error)
	Snapshots(ctx context.Context, projectID string) ([]models.Snapshot, error)
	Navigate(ctx context.Context, projectID string, date models.Date) (Navigation, error)
}

// Navigation locates the snapshots around a date.
type Navigation struct {
	Date     models.Date `json:"date"`
	Nearest  models.Date `json:"nearest,omitempty"`
	Previous models.Date `json:"previous,omitempty"`
	Next     models.Date `json:"next,omitempty"`
}

// SourceFactory builds the metric feed of a project.
type SourceFactory func(p models.Project) (feed.Source, error)

// DashboardOption configures the dashboard service.
type DashboardOption func(*dashboardService)

// WithSourceFactory replaces how feeds are built from a project.
func WithSourceFactory(f SourceFactory) DashboardOption {
	return func(s *dashboardService) { s.sourceFor = f }
}

// WithFeedTimeout bounds published-sheet downloads.
func WithFeedTimeout(d time.Duration) DashboardOption {
	return func(s *dashboardService) { s.feedTimeout = d }
}

// WithClock sets the clock used for default snapshot dates and capture stamps.
func WithClock(now func() time.Time) DashboardOption {
	return func(s *dashboardService) { s.now = now }
}

// WithLoadTimeout bounds how long opening a session may take.
func WithLoadTimeout(d time.Duration) DashboardOption {
	return func(s *dashboardService) { s.loadTimeout = d }
}

type dashboardService struct {
	db          *gorm.DB
	projects    repository.ProjectRepository
	metrics     repository.MetricRepository
	layout      repository.LayoutRepository
	snapshots   repository.SnapshotRepository
	sourceFor   SourceFactory
	feedTimeout time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*cachedSession
	opening  singleflight.Group
}

// cachedSession pairs a session with the project version its state reflects.
type cachedSession struct {
	projectID string
	sess      *dashboard.Session
	version   int64
}

func NewDashboardService(
	db *gorm.DB,
	projects repository.ProjectRepository,
	metrics repository.MetricRepository,
	layout repository.LayoutRepository,
	snapshots repository.SnapshotRepository,
	opts ...DashboardOption,
) DashboardService {
	s := &dashboardService{
		db:          db,
		projects:    projects,
		metrics:     metrics,
		layout:      layout,
		snapshots:   snapshots,
		feedTimeout: 20 * time.Second,
		loadTimeout: 30 * time.Second,
		now:         time.Now,
		sessions:    map[string]*cachedSession{},
	}
	s.sourceFor = s.defaultSource
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ DashboardService = (*dashboardService)(nil)

// Session returns the cached session while its version matches the database. Another
// process writing the project bumps the version, and the session is reloaded.
func (s *dashboardService) Session(ctx context.Context, projectID string) (*dashboard.Session, error) {
	s.mu.Lock()
	c, ok := s.sessions[projectID]
	s.mu.Unlock()
	if ok {
		version, err := s.projects.Version(ctx, projectID)
		if err != nil {
			if appErr.IsCode(err, appErr.CodeNotFound) {
				s.drop(c)
			}
			return nil, err
		}
		s.mu.Lock()
		fresh := s.sessions[projectID] == c && c.version == version
		s.mu.Unlock()
		if fresh {
			return c.sess, nil
		}
		if s.drop(c) {
			logger.L().Info("dashboard session stale, reloading",
				zap.String("project_id", projectID),
				zap.Int64("version", version),
			)
		}
	}

	v, err, _ := s.opening.Do(projectID, func() (any, error) {
		s.mu.Lock()
		if c, ok := s.sessions[projectID]; ok {
			s.mu.Unlock()
			return c.sess, nil
		}
		s.mu.Unlock()

		// Waiters share this load, so one caller going away must not fail the rest.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		c, err := s.load(lctx, projectID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.sessions[projectID] = c
		s.mu.Unlock()
		return c.sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dashboard.Session), nil
}

func (s *dashboardService) load(ctx context.Context, projectID string) (*cachedSession, error) {
	start := time.Now()
	// Read before the rows so a concurrent write can only make the session look older.
	version, err := s.projects.Version(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var (
		project models.Project
		metrics []models.Metric
		entries []models.TabLayoutEntry
		charts  []models.ChartLayoutEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.projects.GetByID(gctx, projectID, &project) })
	g.Go(func() (err error) {
		metrics, err = s.metrics.ListByProject(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		entries, err = s.layout.ListEntries(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		charts, err = s.layout.ListCharts(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &cachedSession{projectID: projectID, version: version}
	persister := newGormPersister(s.db, s.projects, s.metrics, s.layout, func(v int64) { s.committed(c, v) })
	state := dashboard.LoadState(project, metrics, entries, charts)
	c.sess = dashboard.NewSession(state,
		dashboard.WithPersister(persister),
		dashboard.WithArchive(s.snapshots),
		dashboard.WithLogger(logger.L()),
		dashboard.WithClock(s.now),
	)
	logger.L().Info("dashboard session opened",
		zap.String("project_id", projectID),
		zap.Int64("version", version),
		zap.Int("metrics", len(metrics)),
		zap.Int("entries", len(entries)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return c, nil
}

// committed advances the cached version after the session's own write. A gap means
// another process wrote in between, so the session is dropped.
func (s *dashboardService) committed(c *cachedSession, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[c.projectID] != c {
		return
	}
	if version == c.version+1 {
		c.version = version
		return
	}
	delete(s.sessions, c.projectID)
}

// drop removes c if it is still the cached session and reports whether it was.
func (s *dashboardService) drop(c *cachedSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[c.projectID] != c {
		return false
	}
	delete(s.sessions, c.projectID)
	return true
}

func (s *dashboardService) Close(projectID string) {
	s.mu.Lock()
	delete(s.sessions, projectID)
	s.mu.Unlock()
	s.opening.Forget(projectID)
}

func (s *dashboardService) defaultSource(p models.Project) (feed.Source, error) {
	switch {
	case p.SourceURL != "":
		mapping, err := feed.ParseMapping(p.SourceMapping)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid source mapping")
		}
		return feed.NewHTTP(p.SourceURL, mapping, feed.WithTimeout(s.feedTimeout)), nil
	case p.Demo:
		return feed.NewFixtures(p.Template), nil
	}
	return nil, appErr.New(appErr.CodeInvalid, "project has no metric source")
}

func (s *dashboardService) SyncFeed(ctx context.Context, projectID string) ([]models.Metric, error) {
	var p models.Project
	if err := s.projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	src, err := s.sourceFor(p)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, projectID, src, "sync")
}

func (s *dashboardService) ImportCSV(ctx context.Context, projectID string, r io.Reader) ([]models.Metric, error) {
	var p models.Project
	if err := s.projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	mapping, err := feed.ParseMapping(p.SourceMapping)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid source mapping")
	}
	return s.apply(ctx, projectID, feed.NewCSV(r, mapping), "import")
}

func (s *dashboardService) apply(ctx context.Context, projectID string, src feed.Source, how string) ([]models.Metric, error) {
	records, err := src.Fetch(ctx)
	if err != nil {
		logger.L().Warn("metric feed failed", zap.String("project_id", projectID), zap.String("via", how), zap.Error(err))
		return nil, err
	}
	sess, err := s.Session(ctx, projectID)
	if err != nil {
		return nil, err
	}
	metrics, err := sess.ApplyFeed(ctx, records)
	if err != nil {
		return nil, err
	}
	logger.L().Info("metric feed applied", zap.String("project_id", projectID), zap.String("via", how), zap.Int("records", len(records)))
	return metrics, nil
}

func (s *dashboardService) CaptureSnapshot(ctx context.Context, projectID string, date models.Date) (models.Snapshot, error) {
	if date == "" {
		date = models.DateOf(s.now())
	}
	sess, err := s.Session(ctx, projectID)
	if err != nil {
		return models.Snapshot{}, err
	}
	return sess.Capture(ctx, date)
}

func (s *dashboardService) Snapshots(ctx context.Context, projectID string) ([]models.Snapshot, error) {
	if _, err := s.Session(ctx, projectID); err != nil {
		return nil, err
	}
	return s.snapshots.Summaries(ctx, projectID)
}

func (s *dashboardService) Navigate(ctx context.Context, projectID string, date models.Date) (Navigation, error) {
	if _, err := models.ParseDate(string(date)); err != nil {
		return Navigation{}, appErr.Wrap(err, appErr.CodeInvalid, "invalid date")
	}
	sess, err := s.Session(ctx, projectID)
	if err != nil {
		return Navigation{}, err
	}
	dates, err := sess.SnapshotDates(ctx)
	if err != nil {
		return Navigation{}, err
	}
	nav := Navigation{Date: date}
	nav.Nearest, _ = dashboard.Nearest(dates, date)
	nav.Previous, _ = dashboard.Previous(dates, date)
	nav.Next, _ = dashboard.Next(dates, date)
	return nav, nil
}

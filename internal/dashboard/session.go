package dashboard

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

// Change is the persisted effect of one mutation. A key present in Tabs or Charts replaces
// the whole tab, an empty slice clears it.
type Change struct {
	Metrics        []models.Metric
	DeletedMetrics []string
	Tabs           map[string][]models.TabLayoutEntry
	Charts         map[string][]models.ChartLayoutEntry
}

// Empty reports whether the change has nothing to persist.
func (c Change) Empty() bool {
	return len(c.Metrics) == 0 && len(c.DeletedMetrics) == 0 && len(c.Tabs) == 0 && len(c.Charts) == 0
}

// Persister writes a Change atomically: either all of it applies or none of it does.
type Persister interface {
	Apply(ctx context.Context, projectID string, ch Change) error
}

type nopPersister struct{}

func (nopPersister) Apply(context.Context, string, Change) error { return nil }

// Option configures a Session.
type Option func(*Session)

// WithPersister sets the store that mutations are written to before they become visible.
func WithPersister(p Persister) Option { return func(s *Session) { s.persist = p } }

// WithArchive sets the snapshot archive used for replay.
func WithArchive(a Archive) Option { return func(s *Session) { s.archive = a } }

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.log = l } }

// WithClock overrides time.Now for snapshot capture timestamps.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// WithIDGenerator overrides the id generator for custom metrics.
func WithIDGenerator(gen func() string) Option { return func(s *Session) { s.newID = gen } }

// Session owns one project's state for the lifetime of an editing session. Operations are
// serialised and applied in call order.
type Session struct {
	mu      sync.Mutex
	state   *State
	persist Persister
	archive Archive
	log     *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewSession wraps state. Without options it keeps everything in memory.
func NewSession(state *State, opts ...Option) *Session {
	s := &Session{
		state:   state,
		persist: nopPersister{},
		archive: NewMemoryArchive(),
		log:     zap.NewNop(),
		now:     time.Now,
		newID:   func() string { return "custom_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("project_id", state.ProjectID))
	return s
}

// ProjectID returns the id of the project the session edits.
func (s *Session) ProjectID() string { return s.state.ProjectID }

// Template returns the project's dashboard template.
func (s *Session) Template() string { return s.state.Template }

// commit persists ch and then swaps in next. On failure the current state is kept.
func (s *Session) commit(ctx context.Context, next *State, ch Change) error {
	if ch.Empty() {
		s.state = next
		return nil
	}
	if err := s.persist.Apply(ctx, s.state.ProjectID, ch); err != nil {
		s.log.Warn("persist change failed, keeping previous state", zap.Error(err))
		return appErr.Wrap(err, appErr.CodeUpstreamUnavailable, "change was not applied")
	}
	s.state = next
	return nil
}

// ProjectTab returns the render list of tabID. Unknown tabs project as empty.
// In replay mode values come from the snapshot of that exact date while visibility and order
// come from the live layout; a missing snapshot fails with replay_data_unavailable.
func (s *Session) ProjectTab(ctx context.Context, tabID string, mode Mode) (Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics := s.state.Metrics
	if date, ok := mode.Replay(); ok {
		snap, found, err := s.archive.Lookup(ctx, s.state.ProjectID, date)
		if err != nil {
			return Projection{}, appErr.Wrap(err, appErr.CodeUpstreamUnavailable, "snapshot lookup failed")
		}
		if !found {
			return Projection{}, appErr.Newf(appErr.CodeReplayUnavailable, "no snapshot recorded for %s", date).WithMeta("date", string(date))
		}
		list, err := snap.Metrics()
		if err != nil {
			return Projection{}, appErr.Wrap(err, appErr.CodeInternal, "snapshot is unreadable")
		}
		metrics = make(map[string]models.Metric, len(list))
		for _, m := range list {
			metrics[m.ID] = m
		}
	}
	return Project(tabID, mode, metrics, s.state.Tabs[tabID], s.state.Charts[tabID], s.log), nil
}

// Layout is the full layout configuration of one tab, hidden entries included.
type Layout struct {
	TabID   string                    `json:"tab_id"`
	Entries []models.TabLayoutEntry   `json:"entries"`
	Charts  []models.ChartLayoutEntry `json:"charts"`
}

// Layout returns a copy of tabID's layout configuration.
func (s *Session) Layout(tabID string) Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layoutLocked(tabID)
}

func (s *Session) layoutLocked(tabID string) Layout {
	l := Layout{
		TabID:   tabID,
		Entries: slices.Clone(s.state.Tabs[tabID]),
		Charts:  slices.Clone(s.state.Charts[tabID]),
	}
	if l.Entries == nil {
		l.Entries = []models.TabLayoutEntry{}
	}
	if l.Charts == nil {
		l.Charts = []models.ChartLayoutEntry{}
	}
	return l
}

// Tabs lists the project's tabs in display order.
func (s *Session) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TabIDs()
}

// RecordSnapshot freezes a copy of metrics as the snapshot of date, replacing any earlier
// capture of the same date.
func (s *Session) RecordSnapshot(ctx context.Context, date models.Date, metrics []models.Metric) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(ctx, date, slices.Clone(metrics))
}

// Capture records the current live metric set as the snapshot of date.
func (s *Session) Capture(ctx context.Context, date models.Date) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(ctx, date, s.state.SortedMetrics())
}

func (s *Session) recordLocked(ctx context.Context, date models.Date, metrics []models.Metric) (models.Snapshot, error) {
	if _, err := models.ParseDate(string(date)); err != nil {
		return models.Snapshot{}, appErr.Wrap(err, appErr.CodeInvalid, "invalid snapshot date")
	}
	snap, err := models.NewSnapshot(s.state.ProjectID, date, metrics)
	if err != nil {
		return models.Snapshot{}, appErr.Wrap(err, appErr.CodeInternal, "encode snapshot failed")
	}
	catalog.Aggregate(metrics).Apply(&snap)
	snap.CapturedAt = s.now().UTC()

	if err := s.archive.Record(ctx, snap); err != nil {
		return models.Snapshot{}, appErr.Wrap(err, appErr.CodeUpstreamUnavailable, "record snapshot failed")
	}
	s.log.Info("snapshot recorded", zap.String("date", string(date)), zap.Int("metrics", len(metrics)))
	return snap, nil
}

// SnapshotDates returns the recorded snapshot dates in ascending order.
func (s *Session) SnapshotDates(ctx context.Context) (iter.Seq[models.Date], error) {
	dates, err := s.archive.Dates(ctx, s.state.ProjectID)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUpstreamUnavailable, "list snapshot dates failed")
	}
	return dates, nil
}

// Metrics returns the live metric set ordered by id.
func (s *Session) Metrics() []models.Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SortedMetrics()
}

// Metric returns one live metric.
func (s *Session) Metric(id string) (models.Metric, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.Metrics[id]
	return m, ok
}

// State returns a deep copy of the whole state.
func (s *Session) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func tabChange(tabID string, entries []models.TabLayoutEntry) map[string][]models.TabLayoutEntry {
	return map[string][]models.TabLayoutEntry{tabID: slices.Clone(entries)}
}

func chartChange(tabID string, charts []models.ChartLayoutEntry) map[string][]models.ChartLayoutEntry {
	return map[string][]models.ChartLayoutEntry{tabID: slices.Clone(charts)}
}


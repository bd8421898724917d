package dashboard

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/metricboard/engine/internal/models"
)

// Archive stores one frozen metric set per project per calendar date.
type Archive interface {
	// Record upserts the snapshot for (ProjectID, Date).
	Record(ctx context.Context, snap models.Snapshot) error
	// Lookup returns the snapshot for the exact date; found is false when none exists.
	Lookup(ctx context.Context, projectID string, date models.Date) (snap models.Snapshot, found bool, err error)
	// Dates reads every recorded date, ascending, before returning. The sequence ranges
	// over that copy and may be ranged over repeatedly.
	Dates(ctx context.Context, projectID string) (iter.Seq[models.Date], error)
}

// MemoryArchive is an Archive held in process memory.
type MemoryArchive struct {
	mu        sync.RWMutex
	byProject map[string][]models.Snapshot // ascending by Date
}

// NewMemoryArchive returns an empty archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{byProject: map[string][]models.Snapshot{}}
}

var _ Archive = (*MemoryArchive)(nil)

func compareSnapshotDate(s models.Snapshot, d models.Date) int {
	return strings.Compare(string(s.Date), string(d))
}

func (a *MemoryArchive) Record(_ context.Context, snap models.Snapshot) error {
	snap.MetricsData = bytes.Clone(snap.MetricsData)

	a.mu.Lock()
	defer a.mu.Unlock()
	list := a.byProject[snap.ProjectID]
	i, found := slices.BinarySearchFunc(list, snap.Date, compareSnapshotDate)
	if found {
		list[i] = snap
	} else {
		list = slices.Insert(list, i, snap)
	}
	a.byProject[snap.ProjectID] = list
	return nil
}

func (a *MemoryArchive) Lookup(_ context.Context, projectID string, date models.Date) (models.Snapshot, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	list := a.byProject[projectID]
	i, found := slices.BinarySearchFunc(list, date, compareSnapshotDate)
	if !found {
		return models.Snapshot{}, false, nil
	}
	snap := list[i]
	snap.MetricsData = bytes.Clone(snap.MetricsData)
	return snap, true, nil
}

func (a *MemoryArchive) Dates(_ context.Context, projectID string) (iter.Seq[models.Date], error) {
	a.mu.RLock()
	list := a.byProject[projectID]
	dates := make([]models.Date, len(list))
	for i, s := range list {
		dates[i] = s.Date
	}
	a.mu.RUnlock()
	return slices.Values(dates), nil
}

// Nearest returns the latest date on or before d.
func Nearest(dates iter.Seq[models.Date], d models.Date) (models.Date, bool) {
	var best models.Date
	ok := false
	for x := range dates {
		if x > d {
			break
		}
		best, ok = x, true
	}
	return best, ok
}

// Previous returns the latest date strictly before d.
func Previous(dates iter.Seq[models.Date], d models.Date) (models.Date, bool) {
	var best models.Date
	ok := false
	for x := range dates {
		if x >= d {
			break
		}
		best, ok = x, true
	}
	return best, ok
}

// Next returns the earliest date strictly after d.
func Next(dates iter.Seq[models.Date], d models.Date) (models.Date, bool) {
	for x := range dates {
		if x > d {
			return x, true
		}
	}
	return "", false
}

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Date is a calendar date formatted YYYY-MM-DD. Lexical order is chronological order.
type Date string

const dateLayout = "2006-01-02"

// ParseDate validates s as a calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date(t.Format(dateLayout)), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date { return Date(t.Format(dateLayout)) }

func (d Date) String() string { return string(d) }

// Snapshot is the frozen metric set of a project for one day.
type Snapshot struct {
	ProjectID   string         `gorm:"primaryKey;size:64" json:"project_id"`
	Date        Date           `gorm:"primaryKey;type:varchar(10)" json:"date"`
	MetricsData datatypes.JSON `gorm:"not null" json:"metrics_data,omitempty"`
	Revenue     float64        `json:"revenue"`
	Investment  float64        `json:"investment"`
	Leads       float64        `json:"leads"`
	Sales       float64        `json:"sales"`
	ROI         float64        `gorm:"column:roi" json:"roi"`
	Conversion  float64        `json:"conversion"`
	CapturedAt  time.Time      `json:"captured_at"`
}

// NewSnapshot freezes a copy of metrics. Later edits of the slice do not reach the snapshot.
func NewSnapshot(projectID string, date Date, metrics []Metric) (Snapshot, error) {
	b, err := json.Marshal(metrics)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot metrics: %w", err)
	}
	return Snapshot{ProjectID: projectID, Date: date, MetricsData: datatypes.JSON(b)}, nil
}

// Metrics decodes the frozen metric list in capture order.
func (s Snapshot) Metrics() ([]Metric, error) {
	if len(s.MetricsData) == 0 {
		return nil, nil
	}
	var out []Metric
	if err := json.Unmarshal(s.MetricsData, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot %s metrics: %w", s.Date, err)
	}
	for i := range out {
		out[i].ProjectID = s.ProjectID
	}
	return out, nil
}

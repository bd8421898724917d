package models

import "time"

// ValueType tells the presentation layer how to format a metric value.
type ValueType string

const (
	ValueNumber   ValueType = "number"
	ValueCurrency ValueType = "currency"
	ValuePercent  ValueType = "percent"
)

// Valid reports whether v is one of the known value types.
func (v ValueType) Valid() bool {
	switch v {
	case ValueNumber, ValueCurrency, ValuePercent:
		return true
	}
	return false
}

// Metric is a named, typed value tracked for a project.
type Metric struct {
	ProjectID string    `gorm:"primaryKey;size:64" json:"-"`
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"not null;size:200" json:"name"`
	Value     float64   `gorm:"not null;default:0" json:"value"`
	ValueType ValueType `gorm:"type:varchar(16);not null" json:"value_type"`
	// IsOverridden is set when a user supplied Value by hand; the feed then only updates SourceValue.
	IsOverridden bool `gorm:"not null;default:false" json:"is_overridden"`
	// SourceValue is the last value received from the metric feed.
	SourceValue float64   `gorm:"not null;default:0" json:"source_value"`
	IsCustom    bool      `gorm:"not null;default:false" json:"is_custom"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

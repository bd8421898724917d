package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a dashboard built from one template and fed by one metric source.
type Project struct {
	ID       string `gorm:"primaryKey;size:64" json:"id"`
	Name     string `gorm:"not null;size:200" json:"name" validate:"required"`
	Template string `gorm:"type:varchar(32);not null;index" json:"template" validate:"required,oneof=launch perpetual subscription"`
	// SourceURL points at a published spreadsheet CSV. Empty means manual entry or demo data.
	SourceURL string `gorm:"type:text" json:"source_url,omitempty"`
	// SourceMapping maps spreadsheet column headers to metric ids.
	SourceMapping datatypes.JSON `json:"source_mapping,omitempty"`
	Demo          bool           `gorm:"not null;default:false" json:"demo"`
	// Version counts committed dashboard writes; processes compare it to spot stale sessions.
	Version   int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package repository

import (
	"gorm.io/gorm"

	"github.com/metricboard/engine/internal/models"
)

// Migrate creates or updates every table and the indexes AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addLayoutIndexes,
		addSnapshotIndexes,
	}
	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}
	return nil
}

// addLayoutIndexes serves the range read of a project's tabs in display order.
func addLayoutIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tab_layout_entries_order
		ON tab_layout_entries(project_id, tab_id, position)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chart_layout_entries_order
		ON chart_layout_entries(project_id, tab_id, seq)
	`).Error
}

func addSnapshotIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshots_captured_at
		ON snapshots(captured_at)
	`).Error
}

package models

import (
	"time"
)

// SyncCursor is the single-row ingest watermark. Intake rows are processed in
// ascending row-id order, so any row id at or below the watermark has already
// been routed through intake. The watermark lives in the private store; the
// external store is a disposable cache and holds no authoritative state.
type SyncCursor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Watermark string    `gorm:"not null;default:''" json:"watermark"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the SyncCursor model
func (SyncCursor) TableName() string {
	return "sync_cursors"
}

// AllModels lists every model for migration, ordered parents-first
func AllModels() []interface{} {
	return []interface{}{
		&Location{},
		&Customer{},
		&Flavor{},
		&Recipe{},
		&BakeSlot{},
		&Order{},
		&OrderItem{},
		&ExtraProduction{},
		&PrepSheet{},
		&PrepSheetItem{},
		&ProductionRecord{},
		&SyncCursor{},
	}
}

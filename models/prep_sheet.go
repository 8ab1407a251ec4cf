package models

import (
	"time"

	"gorm.io/gorm"
)

// PrepSheet statuses
const (
	PrepSheetStatusDraft     = "draft"
	PrepSheetStatusCompleted = "completed"
)

// PrepSheet is the per-date production plan built from that date's orders and
// extra production. Draft sheets can be edited; a completed sheet is terminal.
type PrepSheet struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	BakeDate  time.Time       `gorm:"not null;uniqueIndex" json:"bake_date"`
	Status    string          `gorm:"not null;default:'draft'" json:"status"`
	Items     []PrepSheetItem `gorm:"foreignKey:PrepSheetID" json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the PrepSheet model
func (PrepSheet) TableName() string {
	return "prep_sheets"
}

// Completed reports whether the sheet has been finalized
func (p *PrepSheet) Completed() bool {
	return p.Status == PrepSheetStatusCompleted
}

// PrepSheetItem is one planned line of a prep sheet: a flavor and quantity,
// optionally tied to the order it fulfills. ActualQuantity is snapshotted at
// completion.
type PrepSheetItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PrepSheetID     uint      `gorm:"not null;index" json:"prep_sheet_id"`
	FlavorID        uint      `gorm:"not null;index" json:"flavor_id"`
	Flavor          Flavor    `gorm:"foreignKey:FlavorID" json:"flavor"`
	OrderID         *uint     `gorm:"index" json:"order_id,omitempty"`
	PlannedQuantity int       `gorm:"not null;check:planned_quantity >= 0" json:"planned_quantity"`
	ActualQuantity  *int      `json:"actual_quantity,omitempty"`
	Position        int       `gorm:"not null;default:0" json:"position"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for the PrepSheetItem model
func (PrepSheetItem) TableName() string {
	return "prep_sheet_items"
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// BakeSlot represents a dated production run with finite capacity measured
// in loaf units. CurrentOrders must never exceed TotalCapacity; the capacity
// service owns all mutations of CurrentOrders.
type BakeSlot struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Date          time.Time      `gorm:"not null;index" json:"date"`
	LocationID    uint           `gorm:"not null;index" json:"location_id"`
	Location      Location       `gorm:"foreignKey:LocationID" json:"location"`
	TotalCapacity int            `gorm:"not null;check:total_capacity >= 0" json:"total_capacity"`
	CurrentOrders int            `gorm:"not null;default:0" json:"current_orders"`
	CutoffTime    time.Time      `json:"cutoff_time"`
	IsOpen        bool           `gorm:"not null;default:true" json:"is_open"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the BakeSlot model
func (BakeSlot) TableName() string {
	return "bake_slots"
}

// Remaining returns the number of unbooked loaf units in the slot
func (s *BakeSlot) Remaining() int {
	return s.TotalCapacity - s.CurrentOrders
}

// AcceptsOrders reports whether new reservations are permitted at the given
// time. A slot whose date has passed never accepts orders, even if still
// flagged open.
func (s *BakeSlot) AcceptsOrders(now time.Time) bool {
	if !s.IsOpen {
		return false
	}
	if dateOnly(s.Date).Before(dateOnly(now)) {
		return false
	}
	if !s.CutoffTime.IsZero() && now.After(s.CutoffTime) {
		return false
	}
	return true
}

// dateOnly truncates a timestamp to midnight in its own location
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameBakeDate reports whether two timestamps fall on the same calendar day
func SameBakeDate(a, b time.Time) bool {
	return dateOnly(a).Equal(dateOnly(b))
}

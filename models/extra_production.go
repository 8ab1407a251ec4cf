package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Dispositions shared by extra production and production records
const (
	DispositionSold     = "sold"
	DispositionGifted   = "gifted"
	DispositionWasted   = "wasted"
	DispositionPersonal = "personal"
)

// ValidDisposition reports whether d is a known disposition
func ValidDisposition(d string) bool {
	switch d {
	case DispositionSold, DispositionGifted, DispositionWasted, DispositionPersonal:
		return true
	}
	return false
}

// ExtraProduction is ad-hoc output not tied to any order: loaves baked for
// walk-in sales, gifts, or the baker's own table. It lives outside the order
// lifecycle but feeds prep-sheet planning for its date.
type ExtraProduction struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Date        time.Time        `gorm:"not null;index" json:"date"`
	FlavorID    uint             `gorm:"not null;index" json:"flavor_id"`
	Flavor      Flavor           `gorm:"foreignKey:FlavorID" json:"flavor"`
	Quantity    int              `gorm:"not null;check:quantity > 0" json:"quantity"`
	Disposition string           `gorm:"not null;default:'sold'" json:"disposition"`
	SalePrice   *decimal.Decimal `gorm:"type:decimal(10,2)" json:"sale_price,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the ExtraProduction model
func (ExtraProduction) TableName() string {
	return "extra_productions"
}

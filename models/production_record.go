package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionRecord statuses. Planned and baked precede disposition; the
// disposition values are shared with ExtraProduction.
const (
	ProductionStatusPlanned = "planned"
	ProductionStatusBaked   = "baked"
)

// ValidProductionStatus reports whether s is a known production status
func ValidProductionStatus(s string) bool {
	switch s {
	case ProductionStatusPlanned, ProductionStatusBaked:
		return true
	}
	return ValidDisposition(s)
}

// ProductionRecord tracks the actual disposition of a planned quantity after
// the bake. A record can be split into two records whose quantities sum to
// the original; quantity is otherwise immutable.
type ProductionRecord struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	PrepSheetID   uint             `gorm:"not null;index" json:"prep_sheet_id"`
	OrderID       *uint            `gorm:"index" json:"order_id,omitempty"`
	FlavorID      uint             `gorm:"not null;index" json:"flavor_id"`
	Flavor        Flavor           `gorm:"foreignKey:FlavorID" json:"flavor"`
	Quantity      int              `gorm:"not null;check:quantity > 0" json:"quantity"`
	Status        string           `gorm:"not null;default:'planned'" json:"status"`
	SalePrice     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"sale_price,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the ProductionRecord model
func (ProductionRecord) TableName() string {
	return "production_records"
}

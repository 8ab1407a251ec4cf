package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FlavorSize is one purchasable size of a flavor with its price
type FlavorSize struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Flavor represents a sellable bread flavor in the catalog. Sizes are stored
// as a serialized JSON column and decoded into typed values at this boundary;
// raw JSON never crosses into the services.
type Flavor struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;uniqueIndex" json:"name"`
	Description string         `json:"description"`
	Sizes       string         `gorm:"type:text;not null;default:'[]'" json:"-"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	Season      string         `gorm:"not null;default:'all'" json:"season"` // all, spring, summer, fall, winter
	SortOrder   int            `gorm:"not null;default:0" json:"sort_order"`
	Recipe      *Recipe        `gorm:"foreignKey:FlavorID" json:"recipe,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Flavor model
func (Flavor) TableName() string {
	return "flavors"
}

// SizeList decodes the serialized sizes column
func (f *Flavor) SizeList() ([]FlavorSize, error) {
	if f.Sizes == "" {
		return nil, nil
	}
	var sizes []FlavorSize
	if err := json.Unmarshal([]byte(f.Sizes), &sizes); err != nil {
		return nil, fmt.Errorf("flavor %d has malformed sizes: %w", f.ID, err)
	}
	for _, s := range sizes {
		if s.Name == "" {
			return nil, fmt.Errorf("flavor %d has a size with no name", f.ID)
		}
		if s.Price.IsNegative() {
			return nil, fmt.Errorf("flavor %d size %q has a negative price", f.ID, s.Name)
		}
	}
	return sizes, nil
}

// SetSizeList encodes the given sizes into the serialized column
func (f *Flavor) SetSizeList(sizes []FlavorSize) error {
	raw, err := json.Marshal(sizes)
	if err != nil {
		return fmt.Errorf("failed to encode sizes: %w", err)
	}
	f.Sizes = string(raw)
	return nil
}

// PriceFor returns the current price for the named size
func (f *Flavor) PriceFor(size string) (decimal.Decimal, bool) {
	sizes, err := f.SizeList()
	if err != nil {
		return decimal.Zero, false
	}
	for _, s := range sizes {
		if strings.EqualFold(s.Name, size) {
			return s.Price, true
		}
	}
	return decimal.Zero, false
}

// SeasonOf returns the calendar season a date falls in
func SeasonOf(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "fall"
	default:
		return "winter"
	}
}

// InSeason reports whether the flavor is offered on the given date
func (f *Flavor) InSeason(t time.Time) bool {
	switch f.Season {
	case "", "all":
		return true
	default:
		return f.Season == SeasonOf(t)
	}
}

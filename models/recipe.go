package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipe phases, in preparation order
const (
	PhaseBase       = "base"
	PhaseFold       = "fold"
	PhaseLamination = "lamination"
)

// Ingredient is one line of a recipe phase. Quantity is in the ingredient's
// own unit (oz, g, each); CostPerUnit prices that unit.
type Ingredient struct {
	Name        string          `json:"name"`
	Quantity    float64         `json:"quantity"`
	Unit        string          `json:"unit"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
}

// RecipePhases holds a recipe's three decoded ingredient lists
type RecipePhases struct {
	Base       []Ingredient `json:"base"`
	Fold       []Ingredient `json:"fold"`
	Lamination []Ingredient `json:"lamination"`
}

// Recipe is the active recipe for a flavor. The phased ingredient lists and
// the ordered steps are serialized JSON columns, decoded with validation at
// this boundary. One active recipe per flavor at a time.
type Recipe struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	FlavorID              uint           `gorm:"not null;uniqueIndex" json:"flavor_id"`
	YieldLoaves           int            `gorm:"not null;check:yield_loaves > 0" json:"yield_loaves"`
	BaseIngredients       string         `gorm:"type:text;not null;default:'[]'" json:"-"`
	FoldIngredients       string         `gorm:"type:text;not null;default:'[]'" json:"-"`
	LaminationIngredients string         `gorm:"type:text;not null;default:'[]'" json:"-"`
	Steps                 string         `gorm:"type:text;not null;default:'[]'" json:"-"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Recipe model
func (Recipe) TableName() string {
	return "recipes"
}

// Phases decodes and validates the three ingredient columns
func (r *Recipe) Phases() (*RecipePhases, error) {
	phases := &RecipePhases{}
	for _, col := range []struct {
		name string
		raw  string
		dst  *[]Ingredient
	}{
		{PhaseBase, r.BaseIngredients, &phases.Base},
		{PhaseFold, r.FoldIngredients, &phases.Fold},
		{PhaseLamination, r.LaminationIngredients, &phases.Lamination},
	} {
		if col.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("recipe %d has malformed %s ingredients: %w", r.ID, col.name, err)
		}
		for _, ing := range *col.dst {
			if ing.Name == "" {
				return nil, fmt.Errorf("recipe %d has a nameless %s ingredient", r.ID, col.name)
			}
			if ing.Quantity < 0 {
				return nil, fmt.Errorf("recipe %d %s ingredient %q has negative quantity", r.ID, col.name, ing.Name)
			}
		}
	}
	return phases, nil
}

// SetPhases encodes the given ingredient lists into the serialized columns
func (r *Recipe) SetPhases(phases *RecipePhases) error {
	for _, col := range []struct {
		src []Ingredient
		dst *string
	}{
		{phases.Base, &r.BaseIngredients},
		{phases.Fold, &r.FoldIngredients},
		{phases.Lamination, &r.LaminationIngredients},
	} {
		src := col.src
		if src == nil {
			src = []Ingredient{}
		}
		raw, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("failed to encode ingredients: %w", err)
		}
		*col.dst = string(raw)
	}
	return nil
}

// StepList decodes the ordered preparation steps
func (r *Recipe) StepList() ([]string, error) {
	if r.Steps == "" {
		return nil, nil
	}
	var steps []string
	if err := json.Unmarshal([]byte(r.Steps), &steps); err != nil {
		return nil, fmt.Errorf("recipe %d has malformed steps: %w", r.ID, err)
	}
	return steps, nil
}

// SetStepList encodes the ordered preparation steps
func (r *Recipe) SetStepList(steps []string) error {
	if steps == nil {
		steps = []string{}
	}
	raw, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}
	r.Steps = string(raw)
	return nil
}

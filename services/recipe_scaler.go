package services

import (
	"fmt"

	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/shopspring/decimal"
)

// ScalerSettings are the planning knobs passed into the scaler as a value,
// so tests can pin them instead of reading ambient state.
type ScalerSettings struct {
	OverheadPerLoaf decimal.Decimal
}

// RecipeScaler scales a recipe's phased ingredient lists to a requested loaf
// count and prices a single loaf.
type RecipeScaler struct {
	Settings ScalerSettings
}

// NewRecipeScaler creates a scaler with the given settings
func NewRecipeScaler(settings ScalerSettings) RecipeScaler {
	return RecipeScaler{Settings: settings}
}

// ScaledIngredient is one ingredient line scaled to the requested loaf count
type ScaledIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ScaledIngredients is a recipe scaled to a loaf count, grouped by phase.
// HasRecipe is false when the flavor has no recipe; planning then shows a
// placeholder instead of failing.
type ScaledIngredients struct {
	HasRecipe  bool               `json:"has_recipe"`
	Loaves     int                `json:"loaves"`
	Base       []ScaledIngredient `json:"base,omitempty"`
	Fold       []ScaledIngredient `json:"fold,omitempty"`
	Lamination []ScaledIngredient `json:"lamination,omitempty"`
}

// Scale multiplies each ingredient quantity by loaves / recipe yield. A nil
// recipe returns the explicit no-recipe marker.
func (s RecipeScaler) Scale(recipe *models.Recipe, loaves int) (ScaledIngredients, error) {
	if loaves < 0 {
		return ScaledIngredients{}, fmt.Errorf("%w: loaf count must not be negative", ErrValidation)
	}
	if recipe == nil {
		return ScaledIngredients{HasRecipe: false, Loaves: loaves}, nil
	}
	if recipe.YieldLoaves <= 0 {
		return ScaledIngredients{}, fmt.Errorf("%w: recipe %d has non-positive yield", ErrValidation, recipe.ID)
	}

	phases, err := recipe.Phases()
	if err != nil {
		return ScaledIngredients{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	factor := float64(loaves) / float64(recipe.YieldLoaves)
	return ScaledIngredients{
		HasRecipe:  true,
		Loaves:     loaves,
		Base:       scalePhase(phases.Base, factor),
		Fold:       scalePhase(phases.Fold, factor),
		Lamination: scalePhase(phases.Lamination, factor),
	}, nil
}

func scalePhase(ingredients []models.Ingredient, factor float64) []ScaledIngredient {
	if len(ingredients) == 0 {
		return nil
	}
	scaled := make([]ScaledIngredient, 0, len(ingredients))
	for _, ing := range ingredients {
		scaled = append(scaled, ScaledIngredient{
			Name:     ing.Name,
			Quantity: ing.Quantity * factor,
			Unit:     ing.Unit,
		})
	}
	return scaled
}

// CostPerLoaf prices one loaf: total ingredient cost across all phases
// divided by the recipe yield, plus the configured overhead per loaf.
// A nil recipe has no cost basis and prices at zero.
func (s RecipeScaler) CostPerLoaf(recipe *models.Recipe) (decimal.Decimal, error) {
	if recipe == nil {
		return decimal.Zero, nil
	}
	if recipe.YieldLoaves <= 0 {
		return decimal.Zero, fmt.Errorf("%w: recipe %d has non-positive yield", ErrValidation, recipe.ID)
	}

	phases, err := recipe.Phases()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	total := decimal.Zero
	for _, phase := range [][]models.Ingredient{phases.Base, phases.Fold, phases.Lamination} {
		for _, ing := range phase {
			total = total.Add(decimal.NewFromFloat(ing.Quantity).Mul(ing.CostPerUnit))
		}
	}

	perLoaf := total.Div(decimal.NewFromInt(int64(recipe.YieldLoaves)))
	return perLoaf.Add(s.Settings.OverheadPerLoaf).Round(4), nil
}

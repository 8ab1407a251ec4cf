package services

import (
	"sort"
	"strings"

	"github.com/hearthline-bakery/hearthline-api/models"
)

// FlavorPlan is one flavor's share of the prep plan: total loaves and the
// recipe scaled to that count, or the no-recipe placeholder.
type FlavorPlan struct {
	FlavorID   uint              `json:"flavor_id"`
	FlavorName string            `json:"flavor_name"`
	Loaves     int               `json:"loaves"`
	Scaled     ScaledIngredients `json:"scaled"`
}

// IngredientTotal is one line of the merged shopping list. Lines from
// different flavors sharing an ingredient name (case/whitespace-insensitive)
// and unit are summed into one.
type IngredientTotal struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// PrepPlan is a sheet's full plan: per-flavor scaled phases plus the single
// merged ingredient list across all flavors.
type PrepPlan struct {
	Sheet       *models.PrepSheet `json:"sheet"`
	Flavors     []FlavorPlan      `json:"flavors"`
	Ingredients []IngredientTotal `json:"ingredients"`
}

// Plan computes a sheet's ingredient plan with the given scaler. Quantities
// are summed per flavor across all items first, so the result is independent
// of the order the items were added in.
func (s *PrepSheetService) Plan(sheetID uint, scaler RecipeScaler) (*PrepPlan, error) {
	sheet, err := s.Get(sheetID)
	if err != nil {
		return nil, err
	}

	loaves := map[uint]int{}
	flavors := map[uint]*models.Flavor{}
	for i := range sheet.Items {
		item := &sheet.Items[i]
		loaves[item.FlavorID] += item.PlannedQuantity
		if _, ok := flavors[item.FlavorID]; !ok {
			flavors[item.FlavorID] = &item.Flavor
		}
	}

	flavorIDs := make([]uint, 0, len(loaves))
	for id := range loaves {
		flavorIDs = append(flavorIDs, id)
	}
	sort.Slice(flavorIDs, func(i, j int) bool { return flavorIDs[i] < flavorIDs[j] })

	plan := &PrepPlan{Sheet: sheet}
	merged := map[string]*IngredientTotal{}
	for _, id := range flavorIDs {
		flavor := flavors[id]
		scaled, err := scaler.Scale(flavor.Recipe, loaves[id])
		if err != nil {
			return nil, err
		}
		plan.Flavors = append(plan.Flavors, FlavorPlan{
			FlavorID:   id,
			FlavorName: flavor.Name,
			Loaves:     loaves[id],
			Scaled:     scaled,
		})
		for _, phase := range [][]ScaledIngredient{scaled.Base, scaled.Fold, scaled.Lamination} {
			for _, ing := range phase {
				key := normalizeIngredientName(ing.Name) + "|" + strings.ToLower(ing.Unit)
				if line, ok := merged[key]; ok {
					line.Quantity += ing.Quantity
				} else {
					merged[key] = &IngredientTotal{
						Name:     ing.Name,
						Quantity: ing.Quantity,
						Unit:     ing.Unit,
					}
				}
			}
		}
	}

	for _, line := range merged {
		plan.Ingredients = append(plan.Ingredients, *line)
	}
	sort.Slice(plan.Ingredients, func(i, j int) bool {
		return normalizeIngredientName(plan.Ingredients[i].Name) < normalizeIngredientName(plan.Ingredients[j].Name)
	})
	return plan, nil
}

// normalizeIngredientName folds case and collapses whitespace so "Bread
// Flour" and " bread  flour " merge into one shopping-list line
func normalizeIngredientName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

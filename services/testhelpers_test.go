package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// setupServiceTest gives the test a fresh in-memory database wired into the
// package-level services
func setupServiceTest(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.OpenTestDB(t)
	config.SetDB(db)
	return db
}

func seedLocation(t *testing.T, db *gorm.DB) models.Location {
	t.Helper()
	location := models.Location{Name: "Farmers Market", Address: "12 Main St", IsActive: true}
	if err := db.Create(&location).Error; err != nil {
		t.Fatalf("Failed to seed location: %v", err)
	}
	return location
}

func seedCustomer(t *testing.T, db *gorm.DB, email string) models.Customer {
	t.Helper()
	customer := models.Customer{Name: "Jo Baker", Email: email}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("Failed to seed customer: %v", err)
	}
	return customer
}

// seedFlavor creates an active all-season flavor with a "regular" size at the
// given price and a "large" size three dollars above it
func seedFlavor(t *testing.T, db *gorm.DB, name string, regularPrice string) models.Flavor {
	t.Helper()
	price := decimal.RequireFromString(regularPrice)
	flavor := models.Flavor{Name: name, IsActive: true, Season: "all"}
	err := flavor.SetSizeList([]models.FlavorSize{
		{Name: "regular", Price: price},
		{Name: "large", Price: price.Add(decimal.NewFromInt(3))},
	})
	if err != nil {
		t.Fatalf("Failed to encode sizes: %v", err)
	}
	if err := db.Create(&flavor).Error; err != nil {
		t.Fatalf("Failed to seed flavor %q: %v", name, err)
	}
	return flavor
}

// seedSlot creates an open slot daysAhead days out with its cutoff twelve
// hours before the bake date
func seedSlot(t *testing.T, db *gorm.DB, locationID uint, daysAhead, capacity int) models.BakeSlot {
	t.Helper()
	date := time.Now().AddDate(0, 0, daysAhead)
	slot := models.BakeSlot{
		Date:          date,
		LocationID:    locationID,
		TotalCapacity: capacity,
		CutoffTime:    date.Add(-12 * time.Hour),
		IsOpen:        true,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("Failed to seed bake slot: %v", err)
	}
	return slot
}

func reloadSlot(t *testing.T, db *gorm.DB, slotID uint) models.BakeSlot {
	t.Helper()
	var slot models.BakeSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		t.Fatalf("Failed to reload bake slot %d: %v", slotID, err)
	}
	return slot
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return count
}

// testRecipe builds a one-loaf-yield recipe with the given base ingredients
func testRecipe(t *testing.T, flavorID uint, yield int, base ...models.Ingredient) models.Recipe {
	t.Helper()
	recipe := models.Recipe{FlavorID: flavorID, YieldLoaves: yield}
	if err := recipe.SetPhases(&models.RecipePhases{Base: base}); err != nil {
		t.Fatalf("Failed to encode recipe phases: %v", err)
	}
	if err := recipe.SetStepList([]string{"mix", "proof", "bake"}); err != nil {
		t.Fatalf("Failed to encode recipe steps: %v", err)
	}
	return recipe
}

func ingredient(name string, quantity float64, unit, costPerUnit string) models.Ingredient {
	return models.Ingredient{
		Name:        name,
		Quantity:    quantity,
		Unit:        unit,
		CostPerUnit: decimal.RequireFromString(costPerUnit),
	}
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

package services

import (
	"github.com/hearthline-bakery/hearthline-api/config"
)

// Package-level service instances, following the same instance/getter/setter
// pattern as the database handle in config. main wires the notifier hooks;
// tests swap nothing because every service reads the database through
// config.GetDB at call time.
var (
	capacityInstance   = NewCapacityService()
	productionInstance = NewProductionService()
	intakeInstance     = NewIntakeService(capacityInstance)
	prepInstance       = NewPrepSheetService(productionInstance)
)

// Capacity returns the capacity ledger instance
func Capacity() *CapacityService {
	return capacityInstance
}

// Intake returns the order intake instance
func Intake() *IntakeService {
	return intakeInstance
}

// Prep returns the prep sheet instance
func Prep() *PrepSheetService {
	return prepInstance
}

// Production returns the production ledger instance
func Production() *ProductionService {
	return productionInstance
}

// Scaler builds a recipe scaler from the current configuration. Settings are
// read here, once per call, so they reach the scaler as a plain value.
func Scaler() RecipeScaler {
	settings := ScalerSettings{}
	if cfg := config.GetConfig(); cfg != nil {
		settings.OverheadPerLoaf = cfg.OverheadPerLoaf
	}
	return NewRecipeScaler(settings)
}

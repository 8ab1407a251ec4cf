package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"gorm.io/gorm"
)

// PrepSheetService builds and finalizes per-date production plans. A sheet
// aggregates every non-canceled order whose bake slot falls on the date plus
// that date's extra production, grouped by flavor.
type PrepSheetService struct {
	production *ProductionService
}

// NewPrepSheetService creates a prep sheet service
func NewPrepSheetService(production *ProductionService) *PrepSheetService {
	return &PrepSheetService{production: production}
}

// Build creates the draft prep sheet for a bake date. One sheet per date;
// building a second one fails with ErrInvalidState.
func (s *PrepSheetService) Build(bakeDate time.Time) (*models.PrepSheet, error) {
	db := config.GetDB()
	start, end := dayRange(bakeDate)

	var existing models.PrepSheet
	err := db.Where("bake_date >= ? AND bake_date < ?", start, end).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: a prep sheet for %s already exists", ErrInvalidState, start.Format("2006-01-02"))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for existing prep sheet: %w", err)
	}

	var orders []models.Order
	if err := db.Joins("JOIN bake_slots ON bake_slots.id = orders.bake_slot_id").
		Where("bake_slots.date >= ? AND bake_slots.date < ?", start, end).
		Where("orders.status <> ?", models.OrderStatusCanceled).
		Preload("Items").
		Order("orders.id asc").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to collect orders for %s: %w", start.Format("2006-01-02"), err)
	}

	var extras []models.ExtraProduction
	if err := db.Where("date >= ? AND date < ?", start, end).
		Order("id asc").Find(&extras).Error; err != nil {
		return nil, fmt.Errorf("failed to collect extra production: %w", err)
	}

	sheet := models.PrepSheet{
		BakeDate: start,
		Status:   models.PrepSheetStatusDraft,
	}
	position := 0
	for i := range orders {
		sheet.Items = append(sheet.Items, orderItems(&orders[i], &position)...)
	}
	sheet.Items = append(sheet.Items, extraItems(extras, &position)...)

	if err := db.Create(&sheet).Error; err != nil {
		return nil, fmt.Errorf("failed to create prep sheet: %w", err)
	}
	return s.Get(sheet.ID)
}

// orderItems aggregates one order's lines per flavor into prep items that
// keep the order reference for later payment propagation
func orderItems(order *models.Order, position *int) []models.PrepSheetItem {
	totals := map[uint]int{}
	var flavorOrder []uint
	for _, line := range order.Items {
		if _, seen := totals[line.FlavorID]; !seen {
			flavorOrder = append(flavorOrder, line.FlavorID)
		}
		totals[line.FlavorID] += line.Quantity
	}

	orderID := order.ID
	items := make([]models.PrepSheetItem, 0, len(flavorOrder))
	for _, flavorID := range flavorOrder {
		items = append(items, models.PrepSheetItem{
			FlavorID:        flavorID,
			OrderID:         &orderID,
			PlannedQuantity: totals[flavorID],
			Position:        *position,
		})
		*position++
	}
	return items
}

// extraItems aggregates the date's extra production per flavor into prep
// items with no order reference
func extraItems(extras []models.ExtraProduction, position *int) []models.PrepSheetItem {
	totals := map[uint]int{}
	var flavorOrder []uint
	for _, extra := range extras {
		if _, seen := totals[extra.FlavorID]; !seen {
			flavorOrder = append(flavorOrder, extra.FlavorID)
		}
		totals[extra.FlavorID] += extra.Quantity
	}

	items := make([]models.PrepSheetItem, 0, len(flavorOrder))
	for _, flavorID := range flavorOrder {
		items = append(items, models.PrepSheetItem{
			FlavorID:        flavorID,
			PlannedQuantity: totals[flavorID],
			Position:        *position,
		})
		*position++
	}
	return items
}

// Get fetches a prep sheet with its items and their flavors
func (s *PrepSheetService) Get(sheetID uint) (*models.PrepSheet, error) {
	db := config.GetDB()
	var sheet models.PrepSheet
	err := db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("prep_sheet_items.position asc")
	}).Preload("Items.Flavor").Preload("Items.Flavor.Recipe").
		First(&sheet, sheetID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: prep sheet %d", ErrNotFound, sheetID)
		}
		return nil, fmt.Errorf("failed to load prep sheet %d: %w", sheetID, err)
	}
	return &sheet, nil
}

// GetByDate fetches the prep sheet for a bake date, if one exists
func (s *PrepSheetService) GetByDate(bakeDate time.Time) (*models.PrepSheet, error) {
	db := config.GetDB()
	start, end := dayRange(bakeDate)
	var sheet models.PrepSheet
	err := db.Where("bake_date >= ? AND bake_date < ?", start, end).First(&sheet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no prep sheet for %s", ErrNotFound, start.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to load prep sheet: %w", err)
	}
	return s.Get(sheet.ID)
}

// AddOrder appends a late order's lines to a draft sheet
func (s *PrepSheetService) AddOrder(sheetID, orderID uint) (*models.PrepSheet, error) {
	sheet, err := s.mutableSheet(sheetID)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var order models.Order
	if err := db.Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	if order.Status == models.OrderStatusCanceled {
		return nil, fmt.Errorf("%w: order %d is canceled", ErrInvalidState, orderID)
	}
	for _, item := range sheet.Items {
		if item.OrderID != nil && *item.OrderID == orderID {
			return nil, fmt.Errorf("%w: order %d is already on the sheet", ErrInvalidState, orderID)
		}
	}

	position := len(sheet.Items)
	items := orderItems(&order, &position)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order %d has no items", ErrValidation, orderID)
	}
	for i := range items {
		items[i].PrepSheetID = sheet.ID
	}
	if err := db.Create(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to add order %d to sheet: %w", orderID, err)
	}
	return s.Get(sheetID)
}

// RemoveOrder drops an order's lines from a draft sheet
func (s *PrepSheetService) RemoveOrder(sheetID, orderID uint) (*models.PrepSheet, error) {
	if _, err := s.mutableSheet(sheetID); err != nil {
		return nil, err
	}

	db := config.GetDB()
	res := db.Where("prep_sheet_id = ? AND order_id = ?", sheetID, orderID).
		Delete(&models.PrepSheetItem{})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to remove order %d from sheet: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: order %d is not on the sheet", ErrNotFound, orderID)
	}
	return s.Get(sheetID)
}

// AddExtra merges extra loaves of a flavor into a draft sheet's unordered line
func (s *PrepSheetService) AddExtra(sheetID, flavorID uint, quantity int) (*models.PrepSheet, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: extra quantity must be positive", ErrValidation)
	}
	sheet, err := s.mutableSheet(sheetID)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var flavor models.Flavor
	if err := db.First(&flavor, flavorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: flavor %d", ErrNotFound, flavorID)
		}
		return nil, fmt.Errorf("failed to load flavor %d: %w", flavorID, err)
	}

	for _, item := range sheet.Items {
		if item.OrderID == nil && item.FlavorID == flavorID {
			if err := db.Model(&models.PrepSheetItem{}).Where("id = ?", item.ID).
				Update("planned_quantity", item.PlannedQuantity+quantity).Error; err != nil {
				return nil, fmt.Errorf("failed to update extra line: %w", err)
			}
			return s.Get(sheetID)
		}
	}

	item := models.PrepSheetItem{
		PrepSheetID:     sheet.ID,
		FlavorID:        flavorID,
		PlannedQuantity: quantity,
		Position:        len(sheet.Items),
	}
	if err := db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to add extra line: %w", err)
	}
	return s.Get(sheetID)
}

// UpdateExtraItem sets the planned quantity of a draft sheet's unordered
// line. Order-backed lines change only through AddOrder/RemoveOrder.
func (s *PrepSheetService) UpdateExtraItem(sheetID, itemID uint, quantity int) (*models.PrepSheet, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: planned quantity must be positive", ErrValidation)
	}
	sheet, err := s.mutableSheet(sheetID)
	if err != nil {
		return nil, err
	}

	for _, item := range sheet.Items {
		if item.ID != itemID {
			continue
		}
		if item.OrderID != nil {
			return nil, fmt.Errorf("%w: item %d belongs to order %d", ErrValidation, itemID, *item.OrderID)
		}
		db := config.GetDB()
		if err := db.Model(&models.PrepSheetItem{}).Where("id = ?", itemID).
			Update("planned_quantity", quantity).Error; err != nil {
			return nil, fmt.Errorf("failed to update item %d: %w", itemID, err)
		}
		return s.Get(sheetID)
	}
	return nil, fmt.Errorf("%w: item %d is not on sheet %d", ErrNotFound, itemID, sheetID)
}

// Complete finalizes a draft sheet: snapshots actual quantities (defaulting
// to planned), creates one production record per produced item, and marks
// the sheet completed — all in one transaction, so a failure leaves the
// sheet in draft. Re-completing fails with ErrInvalidState.
func (s *PrepSheetService) Complete(sheetID uint, actuals map[uint]int) (*models.PrepSheet, error) {
	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		var sheet models.PrepSheet
		if err := tx.Preload("Items").First(&sheet, sheetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: prep sheet %d", ErrNotFound, sheetID)
			}
			return fmt.Errorf("failed to load prep sheet %d: %w", sheetID, err)
		}
		if sheet.Completed() {
			return fmt.Errorf("%w: prep sheet %d is already completed", ErrInvalidState, sheetID)
		}

		itemIDs := map[uint]bool{}
		for _, item := range sheet.Items {
			itemIDs[item.ID] = true
		}
		for itemID, actual := range actuals {
			if !itemIDs[itemID] {
				return fmt.Errorf("%w: item %d is not on sheet %d", ErrValidation, itemID, sheetID)
			}
			if actual < 0 {
				return fmt.Errorf("%w: actual quantity must not be negative", ErrValidation)
			}
		}

		for i := range sheet.Items {
			item := &sheet.Items[i]
			actual := item.PlannedQuantity
			if v, ok := actuals[item.ID]; ok {
				actual = v
			}
			item.ActualQuantity = &actual
			if err := tx.Model(&models.PrepSheetItem{}).Where("id = ?", item.ID).
				Update("actual_quantity", actual).Error; err != nil {
				return fmt.Errorf("failed to snapshot item %d: %w", item.ID, err)
			}
			if actual > 0 {
				if _, err := s.production.RecordFromPrepItem(tx, item); err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&models.PrepSheet{}).Where("id = ?", sheetID).
			Update("status", models.PrepSheetStatusCompleted).Error; err != nil {
			return fmt.Errorf("failed to complete prep sheet %d: %w", sheetID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(sheetID)
}

// mutableSheet loads a sheet and rejects mutation after completion
func (s *PrepSheetService) mutableSheet(sheetID uint) (*models.PrepSheet, error) {
	sheet, err := s.Get(sheetID)
	if err != nil {
		return nil, err
	}
	if sheet.Completed() {
		return nil, fmt.Errorf("%w: prep sheet %d is completed", ErrInvalidState, sheetID)
	}
	return sheet, nil
}

// dayRange returns the [midnight, next midnight) window around a timestamp
func dayRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

package services

import (
	"errors"
	"fmt"

	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionService is the post-bake ledger: one record per planned prep
// item, tracking what actually happened to those loaves. Quantities are
// immutable except through Split, which preserves the sum invariant.
type ProductionService struct{}

// NewProductionService creates a production ledger service
func NewProductionService() *ProductionService {
	return &ProductionService{}
}

// RecordFromPrepItem materializes a production record from a completed prep
// sheet item, inside the caller's transaction. The item must carry its
// snapshotted actual quantity.
func (s *ProductionService) RecordFromPrepItem(tx *gorm.DB, item *models.PrepSheetItem) (*models.ProductionRecord, error) {
	if item.ActualQuantity == nil {
		return nil, fmt.Errorf("%w: prep item %d has no actual quantity", ErrValidation, item.ID)
	}
	if *item.ActualQuantity <= 0 {
		return nil, fmt.Errorf("%w: prep item %d produced nothing", ErrInvalidQuantity, item.ID)
	}

	record := models.ProductionRecord{
		PrepSheetID: item.PrepSheetID,
		OrderID:     item.OrderID,
		FlavorID:    item.FlavorID,
		Quantity:    *item.ActualQuantity,
		Status:      models.ProductionStatusPlanned,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create production record: %w", err)
	}
	return &record, nil
}

// Get fetches one production record
func (s *ProductionService) Get(recordID uint) (*models.ProductionRecord, error) {
	db := config.GetDB()
	var record models.ProductionRecord
	if err := db.Preload("Flavor").First(&record, recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: production record %d", ErrNotFound, recordID)
		}
		return nil, fmt.Errorf("failed to load production record %d: %w", recordID, err)
	}
	return &record, nil
}

// ListBySheet returns all production records for a prep sheet
func (s *ProductionService) ListBySheet(prepSheetID uint) ([]models.ProductionRecord, error) {
	db := config.GetDB()
	var records []models.ProductionRecord
	if err := db.Preload("Flavor").Where("prep_sheet_id = ?", prepSheetID).
		Order("id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list production records: %w", err)
	}
	return records, nil
}

// UpdateStatus moves a record between statuses. No ordering is enforced
// between them; only the quantity is protected, and that changes solely via
// Split.
func (s *ProductionService) UpdateStatus(recordID uint, status string) (*models.ProductionRecord, error) {
	if !models.ValidProductionStatus(status) {
		return nil, fmt.Errorf("%w: unknown production status %q", ErrValidation, status)
	}

	record, err := s.Get(recordID)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.Model(&models.ProductionRecord{}).Where("id = ?", record.ID).
		Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update production record %d: %w", recordID, err)
	}
	return s.Get(recordID)
}

// Split carves splitQuantity loaves off a record into a new record with the
// given status. The original's quantity is reduced so the two always sum to
// the pre-split quantity.
func (s *ProductionService) Split(recordID uint, splitQuantity int, newStatus string) (*models.ProductionRecord, error) {
	if !models.ValidProductionStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown production status %q", ErrValidation, newStatus)
	}

	db := config.GetDB()
	var created models.ProductionRecord
	err := db.Transaction(func(tx *gorm.DB) error {
		var original models.ProductionRecord
		if err := tx.First(&original, recordID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: production record %d", ErrNotFound, recordID)
			}
			return fmt.Errorf("failed to load production record %d: %w", recordID, err)
		}

		if splitQuantity <= 0 || splitQuantity >= original.Quantity {
			return fmt.Errorf("%w: cannot split %d of %d loaves",
				ErrInvalidQuantity, splitQuantity, original.Quantity)
		}

		if err := tx.Model(&models.ProductionRecord{}).Where("id = ?", original.ID).
			Update("quantity", original.Quantity-splitQuantity).Error; err != nil {
			return fmt.Errorf("failed to reduce original record: %w", err)
		}

		created = models.ProductionRecord{
			PrepSheetID: original.PrepSheetID,
			OrderID:     original.OrderID,
			FlavorID:    original.FlavorID,
			Quantity:    splitQuantity,
			Status:      newStatus,
			SalePrice:   original.SalePrice,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create split record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(created.ID)
}

// MarkSold records a sale on a production record and, when the record traces
// back to an order, propagates the payment onto that order.
func (s *ProductionService) MarkSold(recordID uint, salePrice *decimal.Decimal, paymentMethod string) (*models.ProductionRecord, error) {
	record, err := s.Get(recordID)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	updates := map[string]interface{}{"status": models.DispositionSold}
	if salePrice != nil {
		updates["sale_price"] = salePrice
	}
	if paymentMethod != "" {
		updates["payment_method"] = paymentMethod
	}
	if err := db.Model(&models.ProductionRecord{}).Where("id = ?", record.ID).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to mark production record %d sold: %w", recordID, err)
	}

	if record.OrderID != nil {
		if err := s.UpdateOrderPaymentFromProduction(recordID, paymentMethod); err != nil {
			return nil, err
		}
	}
	return s.Get(recordID)
}

// UpdateOrderPaymentFromProduction marks the originating order paid when one
// of its production records is sold. Records without an order reference are
// walk-in sales and touch nothing.
func (s *ProductionService) UpdateOrderPaymentFromProduction(recordID uint, paymentMethod string) error {
	record, err := s.Get(recordID)
	if err != nil {
		return err
	}
	if record.OrderID == nil {
		return nil
	}

	db := config.GetDB()
	updates := map[string]interface{}{"payment_status": models.PaymentStatusPaid}
	if paymentMethod != "" {
		updates["payment_method"] = paymentMethod
	}
	if err := db.Model(&models.Order{}).Where("id = ?", *record.OrderID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to propagate payment to order %d: %w", *record.OrderID, err)
	}
	return nil
}

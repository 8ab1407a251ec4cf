package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IntakeService validates incoming orders, prices them against the current
// catalog, books capacity, and persists them. An order is written only after
// its reservation succeeds; a capacity failure leaves no rows behind.
type IntakeService struct {
	capacity *CapacityService
	notify   func(slotID uint)
}

// NewIntakeService creates an intake service on top of the capacity ledger
func NewIntakeService(capacity *CapacityService) *IntakeService {
	return &IntakeService{capacity: capacity}
}

// SetPublishNotifier registers a hook called after any capacity change, so
// the sync bridge can push fresh availability to the public store. The hook
// must not block.
func (s *IntakeService) SetPublishNotifier(fn func(slotID uint)) {
	s.notify = fn
}

// OrderLine is one requested flavor/size/quantity of an incoming order
type OrderLine struct {
	FlavorID uint   `json:"flavor_id"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// OrderIntake is a validated-shape order request. PickupLocationID of zero
// defaults to the bake slot's location. ExternalRowID is set for orders
// pulled from the public intake area and dedups replays.
type OrderIntake struct {
	CustomerID       uint        `json:"customer_id"`
	BakeSlotID       uint        `json:"bake_slot_id"`
	PickupLocationID uint        `json:"pickup_location_id"`
	Lines            []OrderLine `json:"lines"`
	ExternalRowID    *string     `json:"external_row_id,omitempty"`
}

// CreateOrder validates, prices, reserves capacity for, and persists an
// order. Replaying an intake with the same external row id returns the
// already-created order instead of booking twice.
func (s *IntakeService) CreateOrder(in OrderIntake, now time.Time) (*models.Order, error) {
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrValidation)
	}
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", ErrValidation)
		}
		if line.Size == "" {
			return nil, fmt.Errorf("%w: item size is required", ErrValidation)
		}
	}

	db := config.GetDB()

	if in.ExternalRowID != nil && *in.ExternalRowID != "" {
		var existing models.Order
		err := db.Where("external_row_id = ?", *in.ExternalRowID).First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check intake dedup: %w", err)
		}
	}

	var customer models.Customer
	if err := db.First(&customer, in.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: customer %d", ErrNotFound, in.CustomerID)
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	var slot models.BakeSlot
	if err := db.First(&slot, in.BakeSlotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bake slot %d", ErrNotFound, in.BakeSlotID)
		}
		return nil, fmt.Errorf("failed to load bake slot: %w", err)
	}

	pickupLocationID := in.PickupLocationID
	if pickupLocationID == 0 {
		pickupLocationID = slot.LocationID
	}

	// Price each line from the current catalog; the order snapshots these
	// prices so later flavor edits don't rewrite it.
	items := make([]models.OrderItem, 0, len(in.Lines))
	total := decimal.Zero
	units := 0
	for _, line := range in.Lines {
		var flavor models.Flavor
		if err := db.First(&flavor, line.FlavorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: flavor %d", ErrNotFound, line.FlavorID)
			}
			return nil, fmt.Errorf("failed to load flavor: %w", err)
		}
		if !flavor.IsActive {
			return nil, fmt.Errorf("%w: flavor %q is not available", ErrValidation, flavor.Name)
		}
		price, ok := flavor.PriceFor(line.Size)
		if !ok {
			return nil, fmt.Errorf("%w: flavor %q has no size %q", ErrValidation, flavor.Name, line.Size)
		}
		items = append(items, models.OrderItem{
			FlavorID:  flavor.ID,
			Size:      line.Size,
			Quantity:  line.Quantity,
			UnitPrice: price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		units += line.Quantity
	}

	reservation, err := s.capacity.Reserve(in.BakeSlotID, units, now)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		CustomerID:       customer.ID,
		BakeSlotID:       slot.ID,
		PickupLocationID: pickupLocationID,
		Items:            items,
		TotalAmount:      total,
		Status:           models.OrderStatusSubmitted,
		PaymentStatus:    models.PaymentStatusPending,
		ExternalRowID:    in.ExternalRowID,
	}
	if err := db.Create(&order).Error; err != nil {
		// The order never existed; hand the units straight back.
		if relErr := s.capacity.Release(reservation); relErr != nil {
			return nil, fmt.Errorf("failed to persist order (%v) and to release its units: %w", err, relErr)
		}
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.slotChanged(order.BakeSlotID)

	if err := db.Preload("Customer").Preload("BakeSlot").Preload("PickupLocation").
		Preload("Items.Flavor").First(&order, order.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	return &order, nil
}

// CancelOrder sets the order to canceled and releases its reserved units
// exactly once. Canceling an already-canceled order is a no-op, not a double
// release; a fulfilled order cannot be canceled.
func (s *IntakeService) CancelOrder(orderID uint) (*models.Order, error) {
	db := config.GetDB()

	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCanceled {
		return order, nil
	}
	if order.Status == models.OrderStatusPickedUp {
		return nil, fmt.Errorf("%w: order %d is already picked up", ErrInvalidState, orderID)
	}

	// The guarded update claims the release; only the claimer returns units.
	res := db.Model(&models.Order{}).
		Where("id = ? AND capacity_released = ?", orderID, false).
		Updates(map[string]interface{}{
			"status":            models.OrderStatusCanceled,
			"capacity_released": true,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to cancel order %d: %w", orderID, res.Error)
	}
	if res.RowsAffected == 1 {
		if err := s.capacity.ReleaseUnits(order.BakeSlotID, order.UnitCount()); err != nil {
			return nil, fmt.Errorf("order %d canceled but units not released: %w", orderID, err)
		}
		s.slotChanged(order.BakeSlotID)
	} else if err := db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("status", models.OrderStatusCanceled).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}

	return s.loadOrder(orderID)
}

// UpdateStatus moves an order between staff-facing statuses. Cancellation is
// routed through CancelOrder so capacity release stays single-sourced.
func (s *IntakeService) UpdateStatus(orderID uint, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrValidation, status)
	}
	if status == models.OrderStatusCanceled {
		return s.CancelOrder(orderID)
	}

	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCanceled {
		return nil, fmt.Errorf("%w: order %d is canceled", ErrInvalidState, orderID)
	}

	db := config.GetDB()
	if err := db.Model(&models.Order{}).Where("id = ?", orderID).
		Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}
	return s.loadOrder(orderID)
}

// MarkPaid records payment on an order
func (s *IntakeService) MarkPaid(orderID uint, method string) (*models.Order, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCanceled {
		return nil, fmt.Errorf("%w: order %d is canceled", ErrInvalidState, orderID)
	}

	db := config.GetDB()
	updates := map[string]interface{}{"payment_status": models.PaymentStatusPaid}
	if method != "" {
		updates["payment_method"] = method
	}
	if err := db.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to mark order %d paid: %w", orderID, err)
	}
	return s.loadOrder(orderID)
}

// DeleteOrder soft-deletes an order. Policy: deletion is permitted only
// pre-fulfillment; picked-up or paid orders are history and stay.
func (s *IntakeService) DeleteOrder(orderID uint) error {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return err
	}
	if order.Fulfilled() {
		return fmt.Errorf("%w: order %d is fulfilled and cannot be deleted", ErrInvalidState, orderID)
	}

	// A live order still holds units; cancel first so they return exactly once.
	if order.Status != models.OrderStatusCanceled {
		if _, err := s.CancelOrder(orderID); err != nil {
			return err
		}
	}

	db := config.GetDB()
	if err := db.Delete(&models.Order{}, orderID).Error; err != nil {
		return fmt.Errorf("failed to delete order %d: %w", orderID, err)
	}
	return nil
}

// loadOrder fetches an order with its associations
func (s *IntakeService) loadOrder(orderID uint) (*models.Order, error) {
	db := config.GetDB()
	var order models.Order
	err := db.Preload("Customer").Preload("BakeSlot").Preload("PickupLocation").
		Preload("Items.Flavor").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &order, nil
}

func (s *IntakeService) slotChanged(slotID uint) {
	if s.notify != nil {
		s.notify(slotID)
	}
}

package syncbridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"github.com/hearthline-bakery/hearthline-api/services"
	"gorm.io/gorm"
)

// Bridge runs the two one-way sync flows against the external public store:
// publish (private catalog out) and ingest (public orders in). It lives on
// its own goroutine, decoupled from the request path; sync failures are
// logged and retried, never surfaced to interactive callers, and the private
// store stays authoritative throughout.
type Bridge struct {
	store    RowStore
	intake   *services.IntakeService
	interval time.Duration
	deltas   chan uint
	now      func() time.Time
}

// NewBridge creates a sync bridge polling at the given interval
func NewBridge(store RowStore, intake *services.IntakeService, interval time.Duration) *Bridge {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Bridge{
		store:    store,
		intake:   intake,
		interval: interval,
		deltas:   make(chan uint, 256),
		now:      time.Now,
	}
}

// NotifySlotChanged queues a slot for out-of-cycle publish. Never blocks: if
// the queue is full the periodic full publish reconciles the slot anyway.
func (b *Bridge) NotifySlotChanged(slotID uint) {
	select {
	case b.deltas <- slotID:
	default:
	}
}

// Run drives the bridge until the context is canceled. The external store is
// a disposable cache, so the loop starts with a full publish to rebuild it.
func (b *Bridge) Run(ctx context.Context) {
	log.Printf("Sync bridge started (interval %s)", b.interval)

	if err := b.PublishAll(ctx); err != nil {
		log.Printf("Sync publish failed (will retry): %v", err)
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Sync bridge stopped: %v", ctx.Err())
			return
		case slotID := <-b.deltas:
			if err := b.PublishSlot(ctx, slotID); err != nil {
				log.Printf("Sync publish of slot %d failed (will retry): %v", slotID, err)
			}
		case <-ticker.C:
			if err := b.PublishAll(ctx); err != nil {
				log.Printf("Sync publish failed (will retry): %v", err)
			}
			if err := b.IngestOnce(ctx); err != nil {
				log.Printf("Sync ingest failed (will retry): %v", err)
			}
		}
	}
}

// PublishAll upserts every location, flavor and bake slot into the external
// store. Idempotent: rows are keyed by record id and resending the same
// state rewrites the same row.
func (b *Bridge) PublishAll(ctx context.Context) error {
	db := config.GetDB()

	var locations []models.Location
	if err := db.Find(&locations).Error; err != nil {
		return fmt.Errorf("failed to load locations: %w", err)
	}
	for i := range locations {
		if err := b.store.UpsertRow(ctx, TableLocations,
			fmt.Sprint(locations[i].ID), locationRow(&locations[i])); err != nil {
			return err
		}
	}

	var flavors []models.Flavor
	if err := db.Find(&flavors).Error; err != nil {
		return fmt.Errorf("failed to load flavors: %w", err)
	}
	for i := range flavors {
		row, err := flavorRow(&flavors[i])
		if err != nil {
			log.Printf("Skipping publish of flavor %d: %v", flavors[i].ID, err)
			continue
		}
		if err := b.store.UpsertRow(ctx, TableFlavors,
			fmt.Sprint(flavors[i].ID), row); err != nil {
			return err
		}
	}

	var slots []models.BakeSlot
	if err := db.Find(&slots).Error; err != nil {
		return fmt.Errorf("failed to load bake slots: %w", err)
	}
	for i := range slots {
		if err := b.store.UpsertRow(ctx, TableBakeSlots,
			fmt.Sprint(slots[i].ID), slotRow(&slots[i])); err != nil {
			return err
		}
	}
	return nil
}

// PublishSlot upserts one slot's availability
func (b *Bridge) PublishSlot(ctx context.Context, slotID uint) error {
	db := config.GetDB()
	var slot models.BakeSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Deleted between notify and publish; full publish reconciles.
			return nil
		}
		return fmt.Errorf("failed to load bake slot %d: %w", slotID, err)
	}
	return b.store.UpsertRow(ctx, TableBakeSlots, fmt.Sprint(slot.ID), slotRow(&slot))
}

// IngestOnce pulls newly submitted public orders and routes each through
// intake exactly once. Rows are processed in ascending row-id order, which
// is also the tie-break when two public orders race for a slot's last unit:
// the lower row id wins. The watermark advances per row and lives in the
// private store; replaying rows after a crash is dedup'd both by the
// watermark and by the order's unique external row id.
func (b *Bridge) IngestOnce(ctx context.Context) error {
	db := config.GetDB()

	cursor := models.SyncCursor{ID: 1}
	if err := db.FirstOrCreate(&cursor, models.SyncCursor{ID: 1}).Error; err != nil {
		return fmt.Errorf("failed to load sync cursor: %w", err)
	}

	rows, err := b.store.ListIntakeRows(ctx, cursor.Watermark)
	if err != nil {
		return err
	}
	// External row ids are zero-padded and monotonic, so lexicographic order
	// is submission order.
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	for _, row := range rows {
		if row.ID <= cursor.Watermark {
			continue
		}

		result, err := b.ingestRow(ctx, row)
		if err != nil {
			return err
		}
		if err := b.store.MarkIntakeProcessed(ctx, row.ID, result); err != nil {
			// The order is already dedup'd by external row id; losing the
			// status report is safe to retry.
			return err
		}
		cursor.Watermark = row.ID
		if err := db.Model(&models.SyncCursor{}).Where("id = ?", cursor.ID).
			Update("watermark", row.ID).Error; err != nil {
			return fmt.Errorf("failed to advance sync watermark: %w", err)
		}
	}
	return nil
}

// ingestRow routes one public order through intake. Business rejections
// (full slot, bad references) resolve the row as rejected; infrastructure
// errors propagate so the row is retried next cycle.
func (b *Bridge) ingestRow(ctx context.Context, row IntakeRow) (string, error) {
	customer, err := b.findOrCreateCustomer(row.Order)
	if err != nil {
		if isRejection(err) {
			return rejectionResult(err), nil
		}
		return "", err
	}

	lines := make([]services.OrderLine, 0, len(row.Order.Items))
	for _, item := range row.Order.Items {
		lines = append(lines, services.OrderLine{
			FlavorID: item.FlavorID,
			Size:     item.Size,
			Quantity: item.Quantity,
		})
	}

	rowID := row.ID
	_, err = b.intake.CreateOrder(services.OrderIntake{
		CustomerID:       customer.ID,
		BakeSlotID:       row.Order.BakeSlotID,
		PickupLocationID: row.Order.PickupLocationID,
		Lines:            lines,
		ExternalRowID:    &rowID,
	}, b.now())
	if err != nil {
		if isRejection(err) {
			return rejectionResult(err), nil
		}
		return "", err
	}
	return IntakeResultProcessed, nil
}

// findOrCreateCustomer matches a public order to a customer by email
func (b *Bridge) findOrCreateCustomer(order IntakeOrder) (*models.Customer, error) {
	if order.CustomerEmail == "" {
		return nil, fmt.Errorf("%w: public order has no customer email", services.ErrValidation)
	}

	db := config.GetDB()
	var customer models.Customer
	err := db.Where("email = ?", order.CustomerEmail).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	name := order.CustomerName
	if name == "" {
		name = order.CustomerEmail
	}
	customer = models.Customer{
		Name:  name,
		Email: order.CustomerEmail,
		Phone: order.CustomerPhone,
	}
	if err := db.Create(&customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &customer, nil
}

// isRejection reports whether an intake error is a business rejection rather
// than an infrastructure failure
func isRejection(err error) bool {
	return errors.Is(err, services.ErrValidation) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrCapacityExceeded) ||
		errors.Is(err, services.ErrSlotClosed) ||
		errors.Is(err, services.ErrInvalidState)
}

func rejectionResult(err error) string {
	return fmt.Sprintf("%s: %v", IntakeResultRejected, err)
}

// locationRow maps a location onto its external catalog row
func locationRow(l *models.Location) map[string]interface{} {
	return map[string]interface{}{
		"id":        l.ID,
		"name":      l.Name,
		"address":   l.Address,
		"is_active": l.IsActive,
	}
}

// flavorRow maps a flavor onto its external catalog row, with sizes decoded
// so the public front end receives a JSON array, not a serialized string
func flavorRow(f *models.Flavor) (map[string]interface{}, error) {
	sizes, err := f.SizeList()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":          f.ID,
		"name":        f.Name,
		"description": f.Description,
		"sizes":       sizes,
		"is_active":   f.IsActive,
		"season":      f.Season,
		"sort_order":  f.SortOrder,
	}, nil
}

// slotRow maps a bake slot onto its external catalog row
func slotRow(s *models.BakeSlot) map[string]interface{} {
	return map[string]interface{}{
		"id":             s.ID,
		"date":           s.Date.Format("2006-01-02"),
		"location_id":    s.LocationID,
		"total_capacity": s.TotalCapacity,
		"current_orders": s.CurrentOrders,
		"cutoff_time":    s.CutoffTime.Format(time.RFC3339),
		"is_open":        s.IsOpen,
	}
}

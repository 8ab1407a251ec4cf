package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveBooksUnits(t *testing.T) {
	db := setupServiceTest(t)
	location := seedLocation(t, db)
	slot := seedSlot(t, db, location.ID, 3, 10)

	svc := NewCapacityService()
	reservation, err := svc.Reserve(slot.ID, 4, time.Now())
	require.NoError(t, err)
	assert.Equal(t, slot.ID, reservation.SlotID)
	assert.Equal(t, 4, reservation.Units)

	reloaded := reloadSlot(t, db, slot.ID)
	assert.Equal(t, 4, reloaded.CurrentOrders)
	assert.Equal(t, 6, reloaded.Remaining())
}

func TestReserveRejections(t *testing.T) {
	db := setupServiceTest(t)
	location := seedLocation(t, db)

	openSlot := seedSlot(t, db, location.ID, 3, 5)

	closedSlot := seedSlot(t, db, location.ID, 3, 5)
	require.NoError(t, db.Model(&closedSlot).Update("is_open", false).Error)

	pastSlot := seedSlot(t, db, location.ID, 3, 5)
	require.NoError(t, db.Model(&pastSlot).Updates(map[string]interface{}{
		"date":        time.Now().AddDate(0, 0, -2),
		"cutoff_time": time.Now().AddDate(0, 0, -3),
	}).Error)

	svc := NewCapacityService()

	tests := []struct {
		name        string
		slotID      uint
		units       int
		expectedErr error
	}{
		{"zero units", openSlot.ID, 0, ErrValidation},
		{"negative units", openSlot.ID, -1, ErrValidation},
		{"unknown slot", 9999, 1, ErrNotFound},
		{"more units than capacity", openSlot.ID, 6, ErrCapacityExceeded},
		{"closed slot", closedSlot.ID, 1, ErrSlotClosed},
		{"past slot", pastSlot.ID, 1, ErrSlotClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Reserve(tt.slotID, tt.units, time.Now())
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}

	// None of the rejections booked anything
	assert.Equal(t, 0, reloadSlot(t, db, openSlot.ID).CurrentOrders)
}

func TestReserveAfterCutoff(t *testing.T) {
	db := setupServiceTest(t)
	location := seedLocation(t, db)
	slot := seedSlot(t, db, location.ID, 3, 5)

	svc := NewCapacityService()

	// Same date, but the order arrives after the cutoff
	afterCutoff := slot.CutoffTime.Add(time.Hour)
	_, err := svc.Reserve(slot.ID, 1, afterCutoff)
	assert.ErrorIs(t, err, ErrSlotClosed)
}

func TestReleaseIsIdempotentPerHandle(t *testing.T) {
	db := setupServiceTest(t)
	location := seedLocation(t, db)
	slot := seedSlot(t, db, location.ID, 3, 10)

	svc := NewCapacityService()
	reservation, err := svc.Reserve(slot.ID, 3, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, reloadSlot(t, db, slot.ID).CurrentOrders)

	require.NoError(t, svc.Release(reservation))
	assert.Equal(t, 0, reloadSlot(t, db, slot.ID).CurrentOrders)

	// The second release through the same handle must not double-credit
	require.NoError(t, svc.Release(reservation))
	assert.Equal(t, 0, reloadSlot(t, db, slot.ID).CurrentOrders)

	// A nil handle is a no-op too
	require.NoError(t, svc.Release(nil))
}

func TestReleaseUnitsNeverGoesNegative(t *testing.T) {
	db := setupServiceTest(t)
	location := seedLocation(t, db)
	slot := seedSlot(t, db, location.ID, 3, 10)

	svc := NewCapacityService()
	_, err := svc.Reserve(slot.ID, 2, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.ReleaseUnits(slot.ID, 5))
	assert.Equal(t, 0, reloadSlot(t, db, slot.ID).CurrentOrders)
}

func TestConcurrentReservationsNeverOverbook(t *testing.T) {
	db := setupServiceTest(t)
	location := seedLocation(t, db)
	slot := seedSlot(t, db, location.ID, 3, 10)

	svc := NewCapacityService()
	now := time.Now()

	const contenders = 16
	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(slot.ID, 1, now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrCapacityExceeded)
		}
	}

	// Exactly the capacity wins; everyone else is turned away
	assert.Equal(t, 10, succeeded)
	reloaded := reloadSlot(t, db, slot.ID)
	assert.Equal(t, 10, reloaded.CurrentOrders)
	assert.LessOrEqual(t, reloaded.CurrentOrders, reloaded.TotalCapacity)
}

func TestCurrentAvailability(t *testing.T) {
	db := setupServiceTest(t)
	location := seedLocation(t, db)
	slot := seedSlot(t, db, location.ID, 3, 8)

	svc := NewCapacityService()
	_, err := svc.Reserve(slot.ID, 3, time.Now())
	require.NoError(t, err)

	availability, err := svc.CurrentAvailability(slot.ID)
	require.NoError(t, err)
	assert.Equal(t, Availability{Total: 8, Booked: 3, Remaining: 5}, availability)

	_, err = svc.CurrentAvailability(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

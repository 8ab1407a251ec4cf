package services

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hearthline-bakery/hearthline-api/config"
	"github.com/hearthline-bakery/hearthline-api/models"
	"gorm.io/gorm"
)

// CapacityService is the capacity ledger for bake slots. Every mutation of a
// slot's booked count goes through a per-slot lock, so the availability check
// and the booked-count write are one atomic unit even under concurrent
// reservations for the same slot.
type CapacityService struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewCapacityService creates a capacity service
func NewCapacityService() *CapacityService {
	return &CapacityService{locks: make(map[uint]*sync.Mutex)}
}

// Reservation is a handle for booked units, usable to release them later.
// A handle releases at most once.
type Reservation struct {
	SlotID   uint
	Units    int
	released atomic.Bool
}

// Availability is a snapshot of a slot's booked vs. total capacity
type Availability struct {
	Total     int `json:"total"`
	Booked    int `json:"booked"`
	Remaining int `json:"remaining"`
}

// slotLock returns the mutex guarding one slot's booked count
func (s *CapacityService) slotLock(slotID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[slotID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[slotID] = lock
	}
	return lock
}

// Reserve books units against a slot. It fails with ErrCapacityExceeded when
// the slot cannot hold the units, ErrSlotClosed when the slot is closed or
// its date has passed, and ErrNotFound for an unknown slot. On success the
// booked count is already incremented and the returned handle can release
// the units again.
func (s *CapacityService) Reserve(slotID uint, units int, now time.Time) (*Reservation, error) {
	if units <= 0 {
		return nil, fmt.Errorf("%w: reservation units must be positive", ErrValidation)
	}

	lock := s.slotLock(slotID)
	lock.Lock()
	defer lock.Unlock()

	db := config.GetDB()
	var slot models.BakeSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bake slot %d", ErrNotFound, slotID)
		}
		return nil, fmt.Errorf("failed to load bake slot %d: %w", slotID, err)
	}

	if !slot.AcceptsOrders(now) {
		return nil, fmt.Errorf("%w: bake slot %d", ErrSlotClosed, slotID)
	}
	if slot.CurrentOrders+units > slot.TotalCapacity {
		return nil, fmt.Errorf("%w: slot %d has %d of %d units booked, cannot add %d",
			ErrCapacityExceeded, slotID, slot.CurrentOrders, slot.TotalCapacity, units)
	}

	if err := db.Model(&models.BakeSlot{}).Where("id = ?", slotID).
		Update("current_orders", slot.CurrentOrders+units).Error; err != nil {
		return nil, fmt.Errorf("failed to book units on slot %d: %w", slotID, err)
	}

	return &Reservation{SlotID: slotID, Units: units}, nil
}

// Release returns a reservation's units to its slot. Idempotent per handle:
// a second call is a no-op.
func (s *CapacityService) Release(r *Reservation) error {
	if r == nil {
		return nil
	}
	if !r.released.CompareAndSwap(false, true) {
		return nil
	}
	return s.ReleaseUnits(r.SlotID, r.Units)
}

// ReleaseUnits returns units to a slot directly, for callers that track
// release state themselves (order cancellation). The booked count never
// drops below zero.
func (s *CapacityService) ReleaseUnits(slotID uint, units int) error {
	if units <= 0 {
		return nil
	}

	lock := s.slotLock(slotID)
	lock.Lock()
	defer lock.Unlock()

	db := config.GetDB()
	var slot models.BakeSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: bake slot %d", ErrNotFound, slotID)
		}
		return fmt.Errorf("failed to load bake slot %d: %w", slotID, err)
	}

	booked := slot.CurrentOrders - units
	if booked < 0 {
		booked = 0
	}
	if err := db.Model(&models.BakeSlot{}).Where("id = ?", slotID).
		Update("current_orders", booked).Error; err != nil {
		return fmt.Errorf("failed to release units on slot %d: %w", slotID, err)
	}
	return nil
}

// CurrentAvailability returns the slot's booked vs. total capacity
func (s *CapacityService) CurrentAvailability(slotID uint) (Availability, error) {
	db := config.GetDB()
	var slot models.BakeSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Availability{}, fmt.Errorf("%w: bake slot %d", ErrNotFound, slotID)
		}
		return Availability{}, fmt.Errorf("failed to load bake slot %d: %w", slotID, err)
	}
	return Availability{
		Total:     slot.TotalCapacity,
		Booked:    slot.CurrentOrders,
		Remaining: slot.Remaining(),
	}, nil
}

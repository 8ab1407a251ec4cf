package services

import "errors"

// Sentinel errors for the core services. Controllers map these to HTTP
// statuses and stable error-code strings; services wrap them with context
// using fmt.Errorf and %w so errors.Is keeps working.
var (
	// ErrValidation marks malformed or missing input, rejected before any mutation
	ErrValidation = errors.New("validation failed")

	// ErrCapacityExceeded marks a reservation that would overbook a bake slot
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrSlotClosed marks a reservation against a closed or past bake slot
	ErrSlotClosed = errors.New("bake slot closed")

	// ErrNotFound marks a stale or invalid reference
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks an operation against an entity in a terminal or
	// incompatible state, such as mutating a completed prep sheet
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidQuantity marks bad split arguments
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrSyncUnavailable marks a transient external-store failure after
	// retries are exhausted. Non-fatal: the private store stays authoritative.
	ErrSyncUnavailable = errors.New("sync unavailable")

	// ErrConfigMissing marks absent sync credentials, fatal for the sync
	// bridge only
	ErrConfigMissing = errors.New("configuration missing")
)

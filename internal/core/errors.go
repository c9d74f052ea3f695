package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is. The structured error types below
// wrap these so callers can branch on category without losing the context
// needed to render an actionable message.
var (
	// ErrValidation is returned for malformed input: non-positive quantity,
	// missing required field, unknown operation kind.
	ErrValidation = errors.New("validation failed")

	// ErrBadReference is returned when a referenced item, warehouse, or
	// supplier is missing or inactive.
	ErrBadReference = errors.New("missing or inactive reference")

	// ErrInsufficientStock is returned when an outbound or transfer quantity
	// exceeds the item's on-hand stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrCapacityExceeded is returned when an accepted delta would push a
	// warehouse's aggregate usage past its declared capacity.
	ErrCapacityExceeded = errors.New("warehouse capacity exceeded")

	// ErrReauthenticationFailed is returned by the soft-delete path when the
	// acting user's password does not verify. Distinct from ordinary
	// authorization failures on purpose: deleting ledger history requires
	// fresh proof of identity, not just a live session.
	ErrReauthenticationFailed = errors.New("reauthentication failed")

	// ErrAlreadyDeleted is returned when soft-deleting an entry that is
	// already marked deleted. Explicitly an error, never a no-op, so repeated
	// attempts stay visible to the caller.
	ErrAlreadyDeleted = errors.New("entry already deleted")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a bad input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ReferenceError reports a missing or inactive referenced record.
type ReferenceError struct {
	Entity string // "item", "warehouse", "supplier"
	ID     int
	Reason string // "not found" or "inactive"
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %d %s", e.Entity, e.ID, e.Reason)
}

func (e *ReferenceError) Unwrap() error { return ErrBadReference }

// InsufficientStockError carries the current balance so the caller can show
// the exact deficit.
type InsufficientStockError struct {
	ItemID    int
	Current   int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: current %d, requested %d",
		e.ItemID, e.Current, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// CapacityExceededError carries the capacity arithmetic for caller display.
// Used is the live aggregate stock of the warehouse excluding the item being
// moved, so it never double counts the subject's prior contribution.
type CapacityExceededError struct {
	WarehouseID   int
	WarehouseName string
	Capacity      int
	Used          int
	Requested     int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("warehouse %q capacity exceeded: capacity %d, used %d, requested %d, available %d",
		e.WarehouseName, e.Capacity, e.Used, e.Requested, e.Available())
}

// Available returns the remaining space, floored at zero.
func (e *CapacityExceededError) Available() int {
	if a := e.Capacity - e.Used; a > 0 {
		return a
	}
	return 0
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// AlreadyDeletedError identifies the entry a repeated soft-delete targeted.
type AlreadyDeletedError struct {
	EntryID int
}

func (e *AlreadyDeletedError) Error() string {
	return fmt.Sprintf("ledger entry %d is already deleted", e.EntryID)
}

func (e *AlreadyDeletedError) Unwrap() error { return ErrAlreadyDeleted }

// NotFoundError identifies the absent record.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

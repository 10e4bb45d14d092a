package service

import (
	"errors"
	"fmt"

	"github.com/techhind/fulfillment-api/internal/domain"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrUnknownStage is returned when a stage key is not in the registry
	ErrUnknownStage = errors.New("unknown stage key")

	// ErrOrderCancelled is returned when a stage transition is attempted on a cancelled order
	ErrOrderCancelled = errors.New("order is cancelled")
)

// ValidationError reports a missing or invalid required field on stage completion.
// The field name is surfaced to the caller so the end user can correct it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q is required", e.Field)
}

// OutOfOrderError reports an attempt to complete a stage that is not the
// order's current stage. Stages cannot be skipped or completed out of order.
type OutOfOrderError struct {
	Requested domain.StageKey
	Current   domain.StageKey
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("stage %q is not the current stage (current: %q)", e.Requested, e.Current)
}

// AlreadyTerminalError reports an attempt to advance an order whose terminal
// stage has already completed.
type AlreadyTerminalError struct {
	OrderID string
}

func (e *AlreadyTerminalError) Error() string {
	return fmt.Sprintf("order %s has completed its terminal stage", e.OrderID)
}

// InvalidDeltaError reports a challan event whose quantity cannot be applied:
// a negative delta, or a return that would drive total shipped below zero.
type InvalidDeltaError struct {
	Quantity float64
	Reason   string
}

func (e *InvalidDeltaError) Error() string {
	return fmt.Sprintf("invalid challan quantity %.2f: %s", e.Quantity, e.Reason)
}

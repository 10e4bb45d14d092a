package service

import (
	"github.com/techhind/fulfillment-api/internal/domain"
)

// ApplyChallanEvent folds one challan event into an order's delivery metrics.
//
// Dispatch events add to total shipped, return events subtract from it; a
// negative quantity is rejected either way, and a return may not drive total
// shipped below zero. After every application:
//
//	total_shipped + total_pending == total_required (pending floored at 0)
//
// Events may arrive out of order; last_challan_date tracks the maximum
// occurred-at timestamp seen rather than assuming monotonic arrival.
// Over-dispatch (shipped > required) is tolerated and classifies as complete.
func ApplyChallanEvent(order *domain.Order, event domain.ChallanEvent) error {
	if event.Quantity < 0 {
		return &InvalidDeltaError{Quantity: event.Quantity, Reason: "quantity must not be negative"}
	}

	switch event.Type {
	case domain.ChallanEventReturn:
		if event.Quantity > order.TotalShipped {
			return &InvalidDeltaError{Quantity: event.Quantity, Reason: "return exceeds total shipped"}
		}
		order.TotalShipped -= event.Quantity
	case domain.ChallanEventDispatch, "":
		order.TotalShipped += event.Quantity
	default:
		return &InvalidDeltaError{Quantity: event.Quantity, Reason: "unknown event type " + string(event.Type)}
	}

	order.TotalPending = order.TotalRequired - order.TotalShipped
	if order.TotalPending < 0 {
		order.TotalPending = 0
	}

	order.ChallanCount++
	if order.LastChallanDate == nil || event.OccurredAt.After(*order.LastChallanDate) {
		at := event.OccurredAt
		order.LastChallanDate = &at
	}

	order.DeliveryStatus = deriveDeliveryStatus(order.TotalShipped, order.TotalRequired)
	return nil
}

// deriveDeliveryStatus computes the tri-state classification from shipped vs.
// required quantity.
func deriveDeliveryStatus(shipped, required float64) domain.DeliveryStatus {
	switch {
	case shipped <= 0:
		return domain.DeliveryStatusPending
	case shipped < required:
		return domain.DeliveryStatusPartial
	default:
		return domain.DeliveryStatusComplete
	}
}

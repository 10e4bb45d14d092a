package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techhind/fulfillment-api/internal/domain"
)

func dispatchAt(quantity float64, at time.Time) domain.ChallanEvent {
	return domain.ChallanEvent{Type: domain.ChallanEventDispatch, Quantity: quantity, OccurredAt: at}
}

func returnAt(quantity float64, at time.Time) domain.ChallanEvent {
	return domain.ChallanEvent{Type: domain.ChallanEventReturn, Quantity: quantity, OccurredAt: at}
}

func TestApplyChallanEvent_StatusBoundaries(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10, DeliveryStatus: domain.DeliveryStatusPending}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, ApplyChallanEvent(order, dispatchAt(4, now)))
	assert.Equal(t, 4.0, order.TotalShipped)
	assert.Equal(t, 6.0, order.TotalPending)
	assert.Equal(t, domain.DeliveryStatusPartial, order.DeliveryStatus)

	require.NoError(t, ApplyChallanEvent(order, dispatchAt(6, now.Add(time.Hour))))
	assert.Equal(t, 10.0, order.TotalShipped)
	assert.Equal(t, 0.0, order.TotalPending)
	assert.Equal(t, domain.DeliveryStatusComplete, order.DeliveryStatus)
}

func TestApplyChallanEvent_Invariant(t *testing.T) {
	order := &domain.Order{TotalRequired: 25, TotalPending: 25, DeliveryStatus: domain.DeliveryStatusPending}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	quantities := []float64{3, 0, 7.5, 2.5, 1}
	for i, q := range quantities {
		require.NoError(t, ApplyChallanEvent(order, dispatchAt(q, now.Add(time.Duration(i)*time.Minute))))
		assert.Equal(t, order.TotalRequired, order.TotalShipped+order.TotalPending)
	}
	assert.Equal(t, len(quantities), order.ChallanCount)
}

func TestApplyChallanEvent_ZeroQuantityStaysPending(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10, DeliveryStatus: domain.DeliveryStatusPending}

	require.NoError(t, ApplyChallanEvent(order, dispatchAt(0, time.Now())))
	assert.Equal(t, domain.DeliveryStatusPending, order.DeliveryStatus)
	assert.Equal(t, 1, order.ChallanCount)
}

func TestApplyChallanEvent_OverDispatchIsComplete(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10}

	require.NoError(t, ApplyChallanEvent(order, dispatchAt(12, time.Now())))
	assert.Equal(t, 12.0, order.TotalShipped)
	assert.Equal(t, 0.0, order.TotalPending, "pending is floored at zero")
	assert.Equal(t, domain.DeliveryStatusComplete, order.DeliveryStatus)
}

func TestApplyChallanEvent_NegativeQuantity(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10}

	err := ApplyChallanEvent(order, dispatchAt(-1, time.Now()))

	var deltaErr *InvalidDeltaError
	require.ErrorAs(t, err, &deltaErr)
	assert.Equal(t, -1.0, deltaErr.Quantity)
	assert.Equal(t, 0.0, order.TotalShipped)
	assert.Equal(t, 0, order.ChallanCount)
}

func TestApplyChallanEvent_ReturnUnderflow(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10}
	now := time.Now()

	require.NoError(t, ApplyChallanEvent(order, dispatchAt(4, now)))

	err := ApplyChallanEvent(order, returnAt(5, now.Add(time.Hour)))

	var deltaErr *InvalidDeltaError
	require.ErrorAs(t, err, &deltaErr)
	assert.Equal(t, 4.0, order.TotalShipped, "rejected return must not change metrics")
	assert.Equal(t, 1, order.ChallanCount)
}

func TestApplyChallanEvent_ReturnRevertsStatus(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10}
	now := time.Now()

	require.NoError(t, ApplyChallanEvent(order, dispatchAt(10, now)))
	require.Equal(t, domain.DeliveryStatusComplete, order.DeliveryStatus)

	require.NoError(t, ApplyChallanEvent(order, returnAt(3, now.Add(time.Hour))))
	assert.Equal(t, 7.0, order.TotalShipped)
	assert.Equal(t, 3.0, order.TotalPending)
	assert.Equal(t, domain.DeliveryStatusPartial, order.DeliveryStatus)

	require.NoError(t, ApplyChallanEvent(order, returnAt(7, now.Add(2*time.Hour))))
	assert.Equal(t, domain.DeliveryStatusPending, order.DeliveryStatus)
}

func TestApplyChallanEvent_LastChallanDateTracksMaximum(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10}
	early := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)

	// Events arriving out of order must not move the date backwards
	require.NoError(t, ApplyChallanEvent(order, dispatchAt(2, late)))
	require.NoError(t, ApplyChallanEvent(order, dispatchAt(3, early)))

	require.NotNil(t, order.LastChallanDate)
	assert.Equal(t, late, *order.LastChallanDate)
}

func TestApplyChallanEvent_UntypedEventIsDispatch(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10}

	err := ApplyChallanEvent(order, domain.ChallanEvent{Quantity: 5, OccurredAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 5.0, order.TotalShipped)
}

func TestApplyChallanEvent_UnknownTypeRejected(t *testing.T) {
	order := &domain.Order{TotalRequired: 10, TotalPending: 10}

	err := ApplyChallanEvent(order, domain.ChallanEvent{Type: "transfer", Quantity: 5, OccurredAt: time.Now()})

	var deltaErr *InvalidDeltaError
	require.ErrorAs(t, err, &deltaErr)
	assert.Equal(t, 0.0, order.TotalShipped)
}

// Package kanban groups orders into board columns and ranks them for triage.
// Classification and ranking are pure functions over an order snapshot; the
// package holds no state and performs no I/O.
package kanban

import (
	"sort"

	"github.com/techhind/fulfillment-api/internal/domain"
)

// Classify assigns an order to a board column from its delivery status.
// Orders with a missing or unrecognized status default to the pending column.
func Classify(order *domain.Order) domain.BoardColumn {
	switch order.DeliveryStatus {
	case domain.DeliveryStatusPartial:
		return domain.BoardColumnPartial
	case domain.DeliveryStatusComplete:
		return domain.BoardColumnComplete
	default:
		return domain.BoardColumnPending
	}
}

// RankWithinColumn orders the given orders for display within one column.
//
// Pending and partial columns sort ascending by planned delivery date so firm
// commitments are triaged first; orders without a planned date sink to the
// bottom. The complete column sorts descending by last challan date so
// recently fulfilled work stays visible; orders without a challan date sort
// last there too.
//
// The sort is stable: equal keys retain their relative input order, so
// re-ranking unchanged input is deterministic. The input slice is not
// modified; a fresh slice is returned.
func RankWithinColumn(column domain.BoardColumn, orders []domain.Order) []domain.Order {
	ranked := make([]domain.Order, len(orders))
	copy(ranked, orders)

	var less func(a, b *domain.Order) bool
	if column == domain.BoardColumnComplete {
		less = func(a, b *domain.Order) bool {
			if a.LastChallanDate == nil {
				return false
			}
			if b.LastChallanDate == nil {
				return true
			}
			return a.LastChallanDate.After(*b.LastChallanDate)
		}
	} else {
		less = func(a, b *domain.Order) bool {
			if a.PlannedDeliveryDate == nil {
				return false
			}
			if b.PlannedDeliveryDate == nil {
				return true
			}
			return a.PlannedDeliveryDate.Before(*b.PlannedDeliveryDate)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(&ranked[i], &ranked[j])
	})
	return ranked
}

// ColumnSummary aggregates the capacity numbers shown in a column header
type ColumnSummary struct {
	OrderCount    int
	TotalRequired float64
	TotalShipped  float64
	TotalPending  float64
}

// Board groups orders into ranked columns with per-column summaries
type Board struct {
	Columns   map[domain.BoardColumn][]domain.Order
	Summaries map[domain.BoardColumn]ColumnSummary
}

// BuildBoard classifies every order into exactly one column, ranks each
// column and computes its summary. The input snapshot is not modified.
func BuildBoard(orders []domain.Order) *Board {
	board := &Board{
		Columns:   make(map[domain.BoardColumn][]domain.Order, 3),
		Summaries: make(map[domain.BoardColumn]ColumnSummary, 3),
	}
	for _, column := range domain.BoardColumns() {
		board.Columns[column] = nil
		board.Summaries[column] = ColumnSummary{}
	}

	for i := range orders {
		column := Classify(&orders[i])
		board.Columns[column] = append(board.Columns[column], orders[i])

		summary := board.Summaries[column]
		summary.OrderCount++
		summary.TotalRequired += orders[i].TotalRequired
		summary.TotalShipped += orders[i].TotalShipped
		summary.TotalPending += orders[i].TotalPending
		board.Summaries[column] = summary
	}

	for column, members := range board.Columns {
		board.Columns[column] = RankWithinColumn(column, members)
	}
	return board
}

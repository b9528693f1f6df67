// Package billing computes order totals. All functions are pure; persistence
// of the computed amounts is the caller's concern.
package billing

import (
	"errors"

	"github.com/dinecore/dinecore/internal/entity"
)

// ErrDiscountRange is returned when the discount percent is outside [0,100].
var ErrDiscountRange = errors.New("discount percent must be between 0 and 100")

// Totals holds the computed monetary breakdown of an order.
type Totals struct {
	TotalAmount    float64
	DiscountAmount float64
	FinalAmount    float64
}

// ComputeTotals sums line totals (unit price * quantity) and applies the
// percentage discount. finalAmount = totalAmount - totalAmount*discount/100;
// callers persist all three together so settlement always validates against a
// recomputed final amount.
func ComputeTotals(items []*entity.OrderItem, discountPercent float64) (Totals, error) {
	if discountPercent < 0 || discountPercent > 100 {
		return Totals{}, ErrDiscountRange
	}

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}

	discount := total * discountPercent / 100
	return Totals{
		TotalAmount:    total,
		DiscountAmount: discount,
		FinalAmount:    total - discount,
	}, nil
}

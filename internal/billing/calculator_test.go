package billing

import (
	"errors"
	"testing"

	"github.com/dinecore/dinecore/internal/entity"
)

func items(pairs ...[2]float64) []*entity.OrderItem {
	out := make([]*entity.OrderItem, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, &entity.OrderItem{Price: p[0], Quantity: int(p[1])})
	}
	return out
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []*entity.OrderItem
		discount float64
		want     Totals
	}{
		{
			name:  "no items",
			items: nil,
			want:  Totals{},
		},
		{
			name:     "discounted order",
			items:    items([2]float64{50, 2}, [2]float64{30, 1}),
			discount: 10,
			want:     Totals{TotalAmount: 130, DiscountAmount: 13, FinalAmount: 117},
		},
		{
			name:  "zero discount",
			items: items([2]float64{25, 4}),
			want:  Totals{TotalAmount: 100, DiscountAmount: 0, FinalAmount: 100},
		},
		{
			name:     "full discount",
			items:    items([2]float64{10, 3}),
			discount: 100,
			want:     Totals{TotalAmount: 30, DiscountAmount: 30, FinalAmount: 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeTotals(tc.items, tc.discount)
			if err != nil {
				t.Fatalf("ComputeTotals returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ComputeTotals = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestComputeTotalsDiscountRange(t *testing.T) {
	for _, discount := range []float64{-1, 100.5, 200} {
		if _, err := ComputeTotals(items([2]float64{10, 1}), discount); !errors.Is(err, ErrDiscountRange) {
			t.Fatalf("discount %v: got err %v, want ErrDiscountRange", discount, err)
		}
	}
}

func TestComputeTotalsLinear(t *testing.T) {
	a := items([2]float64{50, 2}, [2]float64{30, 1})
	b := items([2]float64{12.5, 4}, [2]float64{7, 3})

	ta, err := ComputeTotals(a, 0)
	if err != nil {
		t.Fatalf("ComputeTotals(a): %v", err)
	}
	tb, err := ComputeTotals(b, 0)
	if err != nil {
		t.Fatalf("ComputeTotals(b): %v", err)
	}
	tc, err := ComputeTotals(append(append([]*entity.OrderItem{}, a...), b...), 0)
	if err != nil {
		t.Fatalf("ComputeTotals(a+b): %v", err)
	}

	if tc.TotalAmount != ta.TotalAmount+tb.TotalAmount {
		t.Fatalf("concatenated total %v != %v + %v", tc.TotalAmount, ta.TotalAmount, tb.TotalAmount)
	}
}

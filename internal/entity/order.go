package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is the aggregate of record for one dine-in transaction.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID          int64  `bun:",pk,autoincrement" json:"id"`
	TableNumber int    `bun:"table_number" json:"table_number"`
	ServerID    int64  `bun:"server_id" json:"server_id"`
	CashierID   *int64 `bun:"cashier_id" json:"cashier_id,omitempty"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items"`

	TotalAmount   float64 `bun:"total_amount" json:"total_amount"`
	Discount      float64 `bun:"discount" json:"discount"`
	FinalAmount   float64 `bun:"final_amount" json:"final_amount"`
	PaidAmount    float64 `bun:"paid_amount" json:"paid_amount"`
	Change        float64 `bun:"change" json:"change"`
	PaymentMethod string  `bun:"payment_method" json:"payment_method"`

	Status OrderStatus `bun:"status" json:"status"`

	// MergedFrom and SplitTo record merge/split provenance. Audit lineage
	// only; no merge or split operation mutates live orders. The array
	// columns tie the shipped schema to postgres.
	MergedFrom []int64 `bun:"merged_from,array" json:"merged_from,omitempty"`
	SplitTo    []int64 `bun:"split_to,array" json:"split_to,omitempty"`

	CancelReason string `bun:"cancel_reason" json:"cancel_reason,omitempty"`

	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	PaidAt      *time.Time `bun:"paid_at" json:"paid_at,omitempty"`
	CancelledAt *time.Time `bun:"cancelled_at" json:"cancelled_at,omitempty"`

	// Version backs optimistic concurrency on read-modify-write cycles.
	Version int64 `bun:"version" json:"version"`
}

// OrderItem is one line of an order. Price is the unit price snapshotted at
// order time; line totals are always recomputed as price * quantity.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID         int64      `bun:",pk,autoincrement" json:"id"`
	OrderID    int64      `bun:"order_id" json:"order_id"`
	Position   int        `bun:"position" json:"position"`
	MenuItemID int64      `bun:"menu_item_id" json:"menu_item_id"`
	Quantity   int        `bun:"quantity" json:"quantity"`
	Price      float64    `bun:"price" json:"price"`
	Status     ItemStatus `bun:"status" json:"status"`
}

// ItemStatuses collects the status of every line item in serving order.
func (o *Order) ItemStatuses() []ItemStatus {
	statuses := make([]ItemStatus, len(o.Items))
	for i, item := range o.Items {
		statuses[i] = item.Status
	}
	return statuses
}

// FindItem returns the line item with the given id, or nil.
func (o *Order) FindItem(itemID int64) *OrderItem {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// SetAllItemStatuses applies one status to every line item.
func (o *Order) SetAllItemStatuses(status ItemStatus) {
	for _, item := range o.Items {
		item.Status = status
	}
}

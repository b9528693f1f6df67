package dto

import (
	"time"

	"github.com/dinecore/dinecore/internal/entity"
)

// UserRef is the display projection of a staff member.
type UserRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

// OrderItemResponse is one order line with joined menu details.
type OrderItemResponse struct {
	ID         int64             `json:"id"`
	MenuItemID int64             `json:"menu_item_id"`
	Name       string            `json:"name"`
	ImageURL   string            `json:"image_url,omitempty"`
	Quantity   int               `json:"quantity"`
	Price      float64           `json:"price"`
	LineTotal  float64           `json:"line_total"`
	Status     entity.ItemStatus `json:"status"`
}

// OrderResponse represents an order as exposed via transport layers, with
// server/cashier and menu display fields resolved.
type OrderResponse struct {
	ID            int64               `json:"id"`
	TableNumber   int                 `json:"table_number"`
	Server        UserRef             `json:"server"`
	Cashier       *UserRef            `json:"cashier,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	TotalAmount   float64             `json:"total_amount"`
	Discount      float64             `json:"discount"`
	FinalAmount   float64             `json:"final_amount"`
	PaidAmount    float64             `json:"paid_amount"`
	Change        float64             `json:"change"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	Status        entity.OrderStatus  `json:"status"`
	MergedFrom    []int64             `json:"merged_from,omitempty"`
	SplitTo       []int64             `json:"split_to,omitempty"`
	CancelReason  string              `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
}

// CreateOrderItem is one requested line on a new order. Price is resolved
// from the menu catalog at creation time, not taken from the client.
type CreateOrderItem struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

// CreateOrderRequest opens a new order on a table.
type CreateOrderRequest struct {
	TableNumber int               `json:"table_number"`
	ServerID    int64             `json:"server_id"`
	Items       []CreateOrderItem `json:"items"`
	Discount    float64           `json:"discount"`
}

// ItemStatusRequest updates the status of one line item or of all items.
type ItemStatusRequest struct {
	Status entity.ItemStatus `json:"status"`
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	TableNumber *int
	Status      entity.OrderStatus
}

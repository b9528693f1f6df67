package order

import (
	"time"

	"github.com/dinecore/dinecore/internal/entity"
)

// Event types carried in the Type field of every order event payload.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderCreatedEvent is emitted when a new order is persisted and its table
// occupied.
type OrderCreatedEvent struct {
	Type        string             `json:"type"`
	OrderID     int64              `json:"order_id"`
	TableNumber int                `json:"table_number"`
	Status      entity.OrderStatus `json:"status"`
	At          time.Time          `json:"at"`
}

// OrderStatusChangedEvent is emitted when the aggregate status of an order
// moves, including kitchen-driven transitions.
type OrderStatusChangedEvent struct {
	Type        string             `json:"type"`
	OrderID     int64              `json:"order_id"`
	TableNumber int                `json:"table_number"`
	Status      entity.OrderStatus `json:"status"`
	Previous    entity.OrderStatus `json:"previous"`
	At          time.Time          `json:"at"`
}

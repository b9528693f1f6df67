package settlement

import "time"

// EventOrderSettled marks a successful payment; the table-release
// reconciler and the inventory collaborator both consume it.
const EventOrderSettled = "order.settled"

// OrderSettledEvent is emitted after an order reaches the paid state.
type OrderSettledEvent struct {
	Type        string    `json:"type"`
	OrderID     int64     `json:"order_id"`
	TableNumber int       `json:"table_number"`
	FinalAmount float64   `json:"final_amount"`
	PaidAmount  float64   `json:"paid_amount"`
	Change      float64   `json:"change"`
	At          time.Time `json:"at"`
}

package dto

import (
	"time"

	"github.com/dinecore/dinecore/internal/entity"
)

// TableResponse represents a dining table as exposed via transport layers.
type TableResponse struct {
	ID             int64              `json:"id"`
	TableNumber    int                `json:"table_number"`
	Capacity       int                `json:"capacity"`
	Location       string             `json:"location,omitempty"`
	Status         entity.TableStatus `json:"status"`
	CurrentOrderID *int64             `json:"current_order_id,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TableStatusRequest updates a table's occupancy status administratively.
type TableStatusRequest struct {
	Status entity.TableStatus `json:"status"`
}

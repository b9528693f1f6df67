package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Table represents one physical dining table. At most one open order may be
// bound to a table at a time; CurrentOrderID is the occupant pointer enforcing
// that, and status==available implies CurrentOrderID==nil.
type Table struct {
	bun.BaseModel `bun:"table:tables,alias:t"`

	ID             int64       `bun:",pk,autoincrement" json:"id"`
	TableNumber    int         `bun:"table_number" json:"table_number"`
	Capacity       int         `bun:"capacity" json:"capacity"`
	Location       string      `bun:"location" json:"location"`
	Status         TableStatus `bun:"status" json:"status"`
	CurrentOrderID *int64      `bun:"current_order_id" json:"current_order_id,omitempty"`
	UpdatedAt      time.Time   `bun:"updated_at,nullzero" json:"updated_at"`
}

package entity

import "github.com/uptrace/bun"

// MenuItem is the read model of a menu catalog entry. The catalog itself is
// owned by an external collaborator; orders only snapshot its unit price.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID       int64   `bun:",pk,autoincrement" json:"id"`
	Name     string  `bun:"name" json:"name"`
	Price    float64 `bun:"price" json:"price"`
	Category string  `bun:"category" json:"category"`
	ImageURL string  `bun:"image_url" json:"image_url"`
}

// User is the read model of a staff directory entry, resolved for the
// server/cashier display fields. Account management lives elsewhere.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:",pk,autoincrement" json:"id"`
	Name     string `bun:"name" json:"name"`
	Username string `bun:"username" json:"username"`
	Role     string `bun:"role" json:"role"`
}

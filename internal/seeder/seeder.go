package seeder

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dinecore/dinecore/internal/database"
	"github.com/dinecore/dinecore/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Floor seeds demo tables, menu entries, and staff if they are missing.
func (s *Seeder) Floor(ctx context.Context) error {
	tables := []entity.Table{
		{TableNumber: 1, Capacity: 2, Location: "window", Status: entity.TableAvailable},
		{TableNumber: 2, Capacity: 4, Location: "window", Status: entity.TableAvailable},
		{TableNumber: 3, Capacity: 4, Location: "center", Status: entity.TableAvailable},
		{TableNumber: 4, Capacity: 6, Location: "patio", Status: entity.TableAvailable},
		{TableNumber: 5, Capacity: 8, Location: "private", Status: entity.TableReserved},
	}
	for _, sample := range tables {
		table := sample
		_, err := s.db.NewInsert().Model(&table).
			On("CONFLICT (table_number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	menu := []entity.MenuItem{
		{Name: "Pho Bo", Price: 50, Category: "mains", ImageURL: "/img/pho-bo.jpg"},
		{Name: "Bun Cha", Price: 45, Category: "mains", ImageURL: "/img/bun-cha.jpg"},
		{Name: "Goi Cuon", Price: 30, Category: "starters", ImageURL: "/img/goi-cuon.jpg"},
		{Name: "Ca Phe Sua Da", Price: 20, Category: "drinks", ImageURL: "/img/cafe.jpg"},
	}
	for _, sample := range menu {
		item := sample
		_, err := s.db.NewInsert().Model(&item).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	staff := []entity.User{
		{Name: "Linh Tran", Username: "linh", Role: "server"},
		{Name: "Minh Pham", Username: "minh", Role: "cashier"},
	}
	for _, sample := range staff {
		user := sample
		_, err := s.db.NewInsert().Model(&user).
			On("CONFLICT (username) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded floor data",
			zap.Int("tables", len(tables)),
			zap.Int("menu_items", len(menu)),
			zap.Int("staff", len(staff)),
		)
	}
	return nil
}

// Package catalog is the read-only boundary to the menu catalog and the
// staff directory. Both are owned by external collaborators; this package
// only resolves display fields and price snapshots from their read models.
package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dinecore/dinecore/internal/database"
	"github.com/dinecore/dinecore/internal/entity"
)

var catalogTracer = otel.Tracer("github.com/dinecore/dinecore/catalog")

// ErrNotFound is returned when a menu item or staff member is missing.
var ErrNotFound = errors.New("catalog entry not found")

// Directory exposes the lookups the order core consumes.
type Directory interface {
	MenuItem(ctx context.Context, id int64) (*entity.MenuItem, error)
	User(ctx context.Context, id int64) (*entity.User, error)
}

// Store is the database-backed Directory implementation.
type Store struct {
	reader *bun.DB
}

// NewStore wires a Store against the read connection.
func NewStore(conns *database.Connections) *Store {
	return &Store{reader: conns.Reader}
}

// MenuItem looks up one menu catalog entry.
func (s *Store) MenuItem(ctx context.Context, id int64) (*entity.MenuItem, error) {
	ctx, span := catalogTracer.Start(ctx, "Catalog.MenuItem", trace.WithAttributes(attribute.Int64("menu_item.id", id)))
	defer span.End()

	item := new(entity.MenuItem)
	err := s.reader.NewSelect().Model(item).Where("mi.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return item, nil
}

// User looks up one staff directory entry.
func (s *Store) User(ctx context.Context, id int64) (*entity.User, error) {
	ctx, span := catalogTracer.Start(ctx, "Catalog.User", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	user := new(entity.User)
	err := s.reader.NewSelect().Model(user).Where("u.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return user, nil
}

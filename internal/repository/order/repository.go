package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dinecore/dinecore/internal/database"
	"github.com/dinecore/dinecore/internal/entity"
)

var repoTracer = otel.Tracer("github.com/dinecore/dinecore/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrVersionConflict is returned when an optimistic write loses the race
// against a concurrent update; callers reload and retry.
var ErrVersionConflict = errors.New("order version conflict")

// Filter narrows List results. Listings default to newest first; OldestFirst
// flips that for kitchen queue views.
type Filter struct {
	TableNumber *int
	Status      entity.OrderStatus
	Statuses    []entity.OrderStatus
	OldestFirst bool
}

// Repository encapsulates read/write access for orders and their items.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order together with its items in one transaction.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.Int("order.table_number", order.TableNumber)))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		for i, item := range order.Items {
			item.OrderID = order.ID
			item.Position = i
		}
		if len(order.Items) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&order.Items).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order with its items, using the read replica when
// available. Items come back in serving order.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Items", sortItems).
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns orders matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	ordering := "o.created_at DESC"
	if filter.OldestFirst {
		ordering = "o.created_at ASC"
	}

	var orders []*entity.Order
	q := r.reader.NewSelect().Model(&orders).
		Relation("Items", sortItems).
		Order(ordering)
	if filter.TableNumber != nil {
		q = q.Where("o.table_number = ?", *filter.TableNumber)
	}
	if filter.Status != "" {
		q = q.Where("o.status = ?", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("o.status IN (?)", bun.In(filter.Statuses))
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// OpenByTable returns the single non-terminal order bound to a table.
func (r *Repository) OpenByTable(ctx context.Context, tableNumber int) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.OpenByTable", trace.WithAttributes(attribute.Int("order.table_number", tableNumber)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Items", sortItems).
		Where("o.table_number = ?", tableNumber).
		Where("o.status NOT IN (?)", bun.In([]entity.OrderStatus{entity.OrderPaid, entity.OrderCancelled})).
		Order("o.created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// PaidBetween returns settled orders whose paid_at falls in [from, to],
// the raw stream consumed by reporting.
func (r *Repository) PaidBetween(ctx context.Context, from, to time.Time) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.PaidBetween")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Items", sortItems).
		Where("o.status = ?", entity.OrderPaid).
		Where("o.paid_at BETWEEN ? AND ?", from, to).
		Order("o.paid_at ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Update rewrites the order row and its items, guarded by the version the
// order was loaded at. A concurrent writer having bumped the version since
// yields ErrVersionConflict without touching the row.
func (r *Repository) Update(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	loadedVersion := order.Version
	order.Version++

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(order).
			WherePK().
			Where("version = ?", loadedVersion).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			exists, err := tx.NewSelect().Model((*entity.Order)(nil)).Where("id = ?", order.ID).Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		if _, err := tx.NewDelete().Model((*entity.OrderItem)(nil)).Where("order_id = ?", order.ID).Exec(ctx); err != nil {
			return err
		}
		for i, item := range order.Items {
			item.OrderID = order.ID
			item.Position = i
		}
		if len(order.Items) == 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(&order.Items).Exec(ctx)
		return err
	})
	if err != nil {
		order.Version = loadedVersion
		if !errors.Is(err, ErrVersionConflict) && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update failed")
		}
	}
	return err
}

func sortItems(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("position ASC")
}

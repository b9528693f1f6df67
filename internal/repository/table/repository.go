package table

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

var repoTracer = otel.Tracer("github.com/dinecore/dinecore/repository/table")

// ErrNotFound is returned when a table is missing.
var ErrNotFound = errors.New("table not found")

// ErrOccupied is returned when Occupy targets a table that is not available.
var ErrOccupied = errors.New("table not available")

// Repository encapsulates read/write access for dining tables.
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

// GetByID fetches a table by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Table, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.GetByID", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table := new(entity.Table)
	err := r.reader.NewSelect().Model(table).Where("t.id = ?", id).Scan(ctx)
	return r.wrap(span, table, err)
}

// GetByNumber fetches a table by its unique table number.
func (r *Repository) GetByNumber(ctx context.Context, tableNumber int) (*entity.Table, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.GetByNumber", trace.WithAttributes(attribute.Int("table.number", tableNumber)))
	defer span.End()

	table := new(entity.Table)
	err := r.reader.NewSelect().Model(table).Where("t.table_number = ?", tableNumber).Scan(ctx)
	return r.wrap(span, table, err)
}

// List returns all tables, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status entity.TableStatus) ([]*entity.Table, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.List")
	defer span.End()

	var tables []*entity.Table
	q := r.reader.NewSelect().Model(&tables).Order("t.table_number ASC")
	if status != "" {
		q = q.Where("t.status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return tables, nil
}

// Occupy binds an open order to an available table in one atomic swap. A
// table already occupied or reserved yields ErrOccupied.
func (r *Repository) Occupy(ctx context.Context, tableNumber int, orderID int64) error {
	ctx, span := repoTracer.Start(ctx, "TableRepository.Occupy", trace.WithAttributes(
		attribute.Int("table.number", tableNumber),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Table)(nil)).
		Set("status = ?", entity.TableOccupied).
		Set("current_order_id = ?", orderID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("table_number = ?", tableNumber).
		Where("status = ?", entity.TableAvailable).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := r.writer.NewSelect().Model((*entity.Table)(nil)).Where("table_number = ?", tableNumber).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return ErrNotFound
		}
		span.SetStatus(codes.Error, "occupied")
		return ErrOccupied
	}
	return nil
}

// Release clears the occupant pointer and marks the table available. Keyed by
// order id so a retried release is a no-op rather than freeing a table a
// newer order has since claimed.
func (r *Repository) Release(ctx context.Context, tableNumber int, orderID int64) error {
	ctx, span := repoTracer.Start(ctx, "TableRepository.Release", trace.WithAttributes(
		attribute.Int("table.number", tableNumber),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.Table)(nil)).
		Set("status = ?", entity.TableAvailable).
		Set("current_order_id = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("table_number = ?", tableNumber).
		Where("current_order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// SetStatus updates a table's status administratively. Refused while an open
// order still occupies the table.
func (r *Repository) SetStatus(ctx context.Context, id int64, status entity.TableStatus) (*entity.Table, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.SetStatus", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Table)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("current_order_id IS NULL").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		table, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if table.CurrentOrderID != nil {
			return nil, ErrOccupied
		}
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) wrap(span trace.Span, table *entity.Table, err error) (*entity.Table, error) {
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return table, nil
}

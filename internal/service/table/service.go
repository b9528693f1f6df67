// Package table exposes read and administrative operations on dining
// tables. Occupancy is never set here directly; the lifecycle, settlement,
// and cancellation services own the occupant pointer.
package table

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dinecore/dinecore/internal/dto"
	"github.com/dinecore/dinecore/internal/entity"
	tablerepo "github.com/dinecore/dinecore/internal/repository/table"
	"github.com/dinecore/dinecore/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/dinecore/dinecore/service/table")

// Store is the persistence surface the table service needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (*entity.Table, error)
	List(ctx context.Context, status entity.TableStatus) ([]*entity.Table, error)
	SetStatus(ctx context.Context, id int64, status entity.TableStatus) (*entity.Table, error)
}

// Service answers floor-facing table queries.
type Service struct {
	tables Store
}

// NewService wires a new table Service instance.
func NewService(tables Store) *Service {
	return &Service{tables: tables}
}

// List returns all tables, optionally filtered by status.
func (s *Service) List(ctx context.Context, status entity.TableStatus) ([]dto.TableResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.List")
	defer span.End()

	if status != "" && !status.Valid() {
		return nil, errorbank.BadRequest("invalid table status",
			errorbank.WithDetail("status", string(status)))
	}

	tables, err := s.tables.List(ctx, status)
	if err != nil {
		return nil, errorbank.Unavailable("failed to list tables", errorbank.WithCause(err))
	}

	out := make([]dto.TableResponse, 0, len(tables))
	for _, table := range tables {
		out = append(out, toResponse(table))
	}
	return out, nil
}

// Get returns one table by id.
func (s *Service) Get(ctx context.Context, id int64) (dto.TableResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.Get", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table, err := s.tables.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, tablerepo.ErrNotFound) {
			return dto.TableResponse{}, errorbank.NotFound("table not found")
		}
		return dto.TableResponse{}, errorbank.Unavailable("failed to load table", errorbank.WithCause(err))
	}
	return toResponse(table), nil
}

// SetStatus updates a table's status administratively, e.g. marking a table
// reserved. Tables with an open order are refused.
func (s *Service) SetStatus(ctx context.Context, id int64, status entity.TableStatus) (dto.TableResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "TableService.SetStatus", trace.WithAttributes(
		attribute.Int64("table.id", id),
		attribute.String("table.status", string(status)),
	))
	defer span.End()

	if !status.Valid() {
		return dto.TableResponse{}, errorbank.BadRequest("invalid table status",
			errorbank.WithDetail("status", string(status)))
	}

	table, err := s.tables.SetStatus(ctx, id, status)
	if err != nil {
		switch {
		case errors.Is(err, tablerepo.ErrNotFound):
			return dto.TableResponse{}, errorbank.NotFound("table not found")
		case errors.Is(err, tablerepo.ErrOccupied):
			return dto.TableResponse{}, errorbank.Conflict("table has an open order")
		default:
			return dto.TableResponse{}, errorbank.Unavailable("failed to update table", errorbank.WithCause(err))
		}
	}
	return toResponse(table), nil
}

func toResponse(table *entity.Table) dto.TableResponse {
	return dto.TableResponse{
		ID:             table.ID,
		TableNumber:    table.TableNumber,
		Capacity:       table.Capacity,
		Location:       table.Location,
		Status:         table.Status,
		CurrentOrderID: table.CurrentOrderID,
		UpdatedAt:      table.UpdatedAt,
	}
}

// Package cancellation implements the void path of the order lifecycle.
package cancellation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dinecore/dinecore/internal/cache"
	"github.com/dinecore/dinecore/internal/catalog"
	"github.com/dinecore/dinecore/internal/dto"
	"github.com/dinecore/dinecore/internal/entity"
	orderrepo "github.com/dinecore/dinecore/internal/repository/order"
	ordersvc "github.com/dinecore/dinecore/internal/service/order"
	"github.com/dinecore/dinecore/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/dinecore/dinecore/service/cancellation")

const maxUpdateAttempts = 3

// EventOrderCancelled marks a voided order; the table-release reconciler
// consumes it.
const EventOrderCancelled = "order.cancelled"

// OrderCancelledEvent is emitted after an order reaches the cancelled state.
type OrderCancelledEvent struct {
	Type        string    `json:"type"`
	OrderID     int64     `json:"order_id"`
	TableNumber int       `json:"table_number"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}

// OrderStore is the persistence surface cancellation needs.
type OrderStore interface {
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
}

// TableStore covers the table release side effect of cancellation.
type TableStore interface {
	Release(ctx context.Context, tableNumber int, orderID int64) error
}

// Publisher sends domain events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte) error
}

// Service validates and executes order voids.
type Service struct {
	orders    OrderStore
	tables    TableStore
	catalog   catalog.Directory
	cache     cache.Store
	logger    *zap.Logger
	publisher Publisher
	publish   bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	Orders        OrderStore
	Tables        TableStore
	Catalog       catalog.Directory
	Cache         cache.Store
	Logger        *zap.Logger
	Publisher     Publisher
	PublishEvents bool
}

// NewService wires a new cancellation Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:    p.Orders,
		tables:    p.Tables,
		catalog:   p.Catalog,
		cache:     p.Cache,
		logger:    p.Logger,
		publisher: p.Publisher,
		publish:   p.PublishEvents,
	}
}

// Cancel voids an order and releases its table. Paid orders cannot be
// cancelled; cancellation is a terminal state, not a deletion.
func (s *Service) Cancel(ctx context.Context, orderID int64, reason string) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "CancellationService.Cancel", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var order *entity.Order
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		loaded, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				return dto.OrderResponse{}, errorbank.NotFound("order not found")
			}
			return dto.OrderResponse{}, errorbank.Unavailable("failed to load order", errorbank.WithCause(err))
		}
		if loaded.Status == entity.OrderPaid {
			return dto.OrderResponse{}, errorbank.Conflict("cannot cancel a paid order")
		}
		if loaded.Status == entity.OrderCancelled {
			return dto.OrderResponse{}, errorbank.Conflict("order is already cancelled")
		}

		now := time.Now().UTC()
		loaded.Status = entity.OrderCancelled
		loaded.CancelReason = reason
		loaded.CancelledAt = &now

		err = s.orders.Update(ctx, loaded)
		if errors.Is(err, orderrepo.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, orderrepo.ErrNotFound) {
			return dto.OrderResponse{}, errorbank.NotFound("order not found")
		}
		if err != nil {
			return dto.OrderResponse{}, errorbank.Unavailable("failed to persist order", errorbank.WithCause(err))
		}
		order = loaded
		break
	}
	if order == nil {
		return dto.OrderResponse{}, errorbank.Conflict("order is being updated concurrently; try again")
	}

	s.invalidateCache(ctx, order.ID)

	releaseErr := s.tables.Release(ctx, order.TableNumber, order.ID)

	s.publishEvent(ctx, order.ID, OrderCancelledEvent{
		Type:        EventOrderCancelled,
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		Reason:      reason,
		At:          *order.CancelledAt,
	})

	if releaseErr != nil {
		span.RecordError(releaseErr)
		span.SetStatus(codes.Error, "table release failed")
		return dto.OrderResponse{}, errorbank.Unavailable("order cancelled but table release failed",
			errorbank.WithCause(releaseErr),
			errorbank.WithDetail("order_id", order.ID),
			errorbank.WithDetail("table_number", order.TableNumber))
	}

	resp, err := catalog.ResolveOrder(ctx, s.catalog, order)
	if err != nil {
		return dto.OrderResponse{}, errorbank.Unavailable("failed to resolve order display fields", errorbank.WithCause(err))
	}
	return resp, nil
}

func (s *Service) invalidateCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ordersvc.CacheKey(id)); err != nil && s.logger != nil {
		s.logger.Warn("orders cache invalidate failed", zap.Int64("id", id), zap.Error(err))
	}
}

func (s *Service) publishEvent(ctx context.Context, orderID int64, event any) {
	if !s.publish || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal cancellation event", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", orderID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish cancellation event", zap.Int64("id", orderID), zap.Error(err))
		}
	}
}

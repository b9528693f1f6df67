package order

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

	"github.com/dinecore/dinecore/internal/billing"
	"github.com/dinecore/dinecore/internal/cache"
	"github.com/dinecore/dinecore/internal/catalog"
	"github.com/dinecore/dinecore/internal/dto"
	"github.com/dinecore/dinecore/internal/entity"
	orderrepo "github.com/dinecore/dinecore/internal/repository/order"
	tablerepo "github.com/dinecore/dinecore/internal/repository/table"
	"github.com/dinecore/dinecore/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/dinecore/dinecore/service/order")

// maxUpdateAttempts bounds optimistic-concurrency retries on a contended
// order before giving up with a conflict.
const maxUpdateAttempts = 3

// OrderStore is the persistence surface the lifecycle service needs.
type OrderStore interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
	List(ctx context.Context, filter orderrepo.Filter) ([]*entity.Order, error)
	OpenByTable(ctx context.Context, tableNumber int) (*entity.Order, error)
}

// TableStore covers the occupancy writes tied to the order lifecycle.
type TableStore interface {
	GetByNumber(ctx context.Context, tableNumber int) (*entity.Table, error)
	Occupy(ctx context.Context, tableNumber int, orderID int64) error
	Release(ctx context.Context, tableNumber int, orderID int64) error
}

// Publisher sends domain events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte) error
}

// Service orchestrates the order lifecycle: it is the only component that
// moves an order between kitchen-driven states.
type Service struct {
	orders    OrderStore
	tables    TableStore
	catalog   catalog.Directory
	cache     cache.Store
	cacheTTL  time.Duration
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
	CacheTTL      time.Duration
	Logger        *zap.Logger
	Publisher     Publisher
	PublishEvents bool
}

// NewService wires a new lifecycle Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:    p.Orders,
		tables:    p.Tables,
		catalog:   p.Catalog,
		cache:     p.Cache,
		cacheTTL:  p.CacheTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		publish:   p.PublishEvents,
	}
}

// Create opens a new order on an available table, snapshotting menu prices
// and occupying the table. The table occupation is a second write; if it
// loses a race the freshly created order is voided as compensation.
func (s *Service) Create(ctx context.Context, req dto.CreateOrderRequest) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.Int("order.table_number", req.TableNumber)))
	defer span.End()

	if req.TableNumber <= 0 {
		return dto.OrderResponse{}, errorbank.BadRequest("table number is required")
	}
	if req.ServerID <= 0 {
		return dto.OrderResponse{}, errorbank.BadRequest("server id is required")
	}
	if len(req.Items) == 0 {
		return dto.OrderResponse{}, errorbank.BadRequest("at least one item is required")
	}

	table, err := s.tables.GetByNumber(ctx, req.TableNumber)
	if err != nil {
		if errors.Is(err, tablerepo.ErrNotFound) {
			return dto.OrderResponse{}, errorbank.NotFound("table not found")
		}
		return dto.OrderResponse{}, errorbank.Unavailable("failed to load table", errorbank.WithCause(err))
	}
	if table.Status != entity.TableAvailable {
		return dto.OrderResponse{}, errorbank.Conflict("table is not available",
			errorbank.WithDetail("table_status", string(table.Status)))
	}

	items := make([]*entity.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return dto.OrderResponse{}, errorbank.BadRequest("item quantity must be positive",
				errorbank.WithDetail("menu_item_id", line.MenuItemID))
		}
		menu, err := s.catalog.MenuItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return dto.OrderResponse{}, errorbank.BadRequest("unknown menu item",
					errorbank.WithDetail("menu_item_id", line.MenuItemID))
			}
			return dto.OrderResponse{}, errorbank.Unavailable("failed to load menu item", errorbank.WithCause(err))
		}
		items = append(items, &entity.OrderItem{
			MenuItemID: menu.ID,
			Quantity:   line.Quantity,
			Price:      menu.Price,
			Status:     entity.ItemPending,
		})
	}

	totals, err := billing.ComputeTotals(items, req.Discount)
	if err != nil {
		return dto.OrderResponse{}, errorbank.BadRequest(err.Error())
	}

	order := &entity.Order{
		TableNumber: req.TableNumber,
		ServerID:    req.ServerID,
		Items:       items,
		TotalAmount: totals.TotalAmount,
		Discount:    req.Discount,
		FinalAmount: totals.FinalAmount,
		Status:      entity.OrderPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return dto.OrderResponse{}, errorbank.Unavailable("failed to create order", errorbank.WithCause(err))
	}

	if err := s.tables.Occupy(ctx, req.TableNumber, order.ID); err != nil {
		s.voidAfterFailedOccupy(ctx, order)
		if errors.Is(err, tablerepo.ErrOccupied) {
			return dto.OrderResponse{}, errorbank.Conflict("table was claimed by another order")
		}
		return dto.OrderResponse{}, errorbank.Unavailable("failed to occupy table", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	s.publishEvent(ctx, order.ID, OrderCreatedEvent{
		Type:        EventOrderCreated,
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		Status:      order.Status,
		At:          order.CreatedAt,
	})

	return s.resolve(ctx, order)
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return s.resolve(ctx, order)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return dto.OrderResponse{}, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return dto.OrderResponse{}, errorbank.Unavailable("failed to load order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	return s.resolve(ctx, order)
}

// List returns orders matching the filter with display fields resolved.
func (s *Service) List(ctx context.Context, filter dto.OrderFilter) ([]dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errorbank.BadRequest("invalid order status",
			errorbank.WithDetail("status", string(filter.Status)))
	}

	orders, err := s.orders.List(ctx, orderrepo.Filter{
		TableNumber: filter.TableNumber,
		Status:      filter.Status,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to list orders", errorbank.WithCause(err))
	}
	return s.resolveAll(ctx, orders)
}

// ListKitchen returns open pending/preparing orders, oldest first, the queue
// the kitchen works through.
func (s *Service) ListKitchen(ctx context.Context) ([]dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListKitchen")
	defer span.End()

	orders, err := s.orders.List(ctx, orderrepo.Filter{
		Statuses:    []entity.OrderStatus{entity.OrderPending, entity.OrderPreparing},
		OldestFirst: true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to list kitchen orders", errorbank.WithCause(err))
	}
	return s.resolveAll(ctx, orders)
}

// OpenByTable returns the open (non-terminal) order bound to a table.
func (s *Service) OpenByTable(ctx context.Context, tableNumber int) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.OpenByTable", trace.WithAttributes(attribute.Int("order.table_number", tableNumber)))
	defer span.End()

	order, err := s.orders.OpenByTable(ctx, tableNumber)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return dto.OrderResponse{}, errorbank.NotFound("no open order for this table")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return dto.OrderResponse{}, errorbank.Unavailable("failed to load order", errorbank.WithCause(err))
	}
	return s.resolve(ctx, order)
}

// SetItemStatus updates one line item and re-derives the aggregate status.
func (s *Service) SetItemStatus(ctx context.Context, orderID, itemID int64, status entity.ItemStatus) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.SetItemStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("order.item_id", itemID),
		attribute.String("item.status", string(status)),
	))
	defer span.End()

	if !status.Valid() {
		return dto.OrderResponse{}, errorbank.BadRequest("invalid item status",
			errorbank.WithDetail("status", string(status)))
	}

	return s.mutate(ctx, orderID, func(order *entity.Order) error {
		item := order.FindItem(itemID)
		if item == nil {
			return errorbank.NotFound("item not found in order")
		}
		item.Status = status
		if derived, ok := entity.Reduce(order.ItemStatuses()); ok {
			order.Status = derived
		}
		return nil
	})
}

// SetAllItemsStatus applies one status to every line item and re-derives the
// aggregate status.
func (s *Service) SetAllItemsStatus(ctx context.Context, orderID int64, status entity.ItemStatus) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.SetAllItemsStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("item.status", string(status)),
	))
	defer span.End()

	if !status.Valid() {
		return dto.OrderResponse{}, errorbank.BadRequest("invalid item status",
			errorbank.WithDetail("status", string(status)))
	}

	return s.mutate(ctx, orderID, func(order *entity.Order) error {
		order.SetAllItemStatuses(status)
		if derived, ok := entity.Reduce(order.ItemStatuses()); ok {
			order.Status = derived
		}
		return nil
	})
}

// StartPreparing moves every still-pending item to preparing and forces the
// aggregate to preparing. Items past pending keep their progress; the forced
// aggregate is deliberate, not a Reduce call.
func (s *Service) StartPreparing(ctx context.Context, orderID int64) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.StartPreparing", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	return s.mutate(ctx, orderID, func(order *entity.Order) error {
		for _, item := range order.Items {
			if item.Status == entity.ItemPending {
				item.Status = entity.ItemPreparing
			}
		}
		order.Status = entity.OrderPreparing
		return nil
	})
}

// MarkReady forces every item and the aggregate to ready.
func (s *Service) MarkReady(ctx context.Context, orderID int64) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.MarkReady", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	return s.mutate(ctx, orderID, func(order *entity.Order) error {
		order.SetAllItemStatuses(entity.ItemReady)
		order.Status = entity.OrderReady
		return nil
	})
}

// mutate runs one read-modify-write cycle against a non-terminal order,
// retrying on optimistic-concurrency conflicts so the Reducer always sees
// the latest item list. apply must only touch in-memory state.
func (s *Service) mutate(ctx context.Context, orderID int64, apply func(*entity.Order) error) (dto.OrderResponse, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				return dto.OrderResponse{}, errorbank.NotFound("order not found")
			}
			return dto.OrderResponse{}, errorbank.Unavailable("failed to load order", errorbank.WithCause(err))
		}
		if order.Status.Terminal() {
			return dto.OrderResponse{}, errorbank.Conflict("order is already closed",
				errorbank.WithDetail("order_status", string(order.Status)))
		}

		previous := order.Status
		if err := apply(order); err != nil {
			return dto.OrderResponse{}, err
		}

		err = s.orders.Update(ctx, order)
		if errors.Is(err, orderrepo.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, orderrepo.ErrNotFound) {
			return dto.OrderResponse{}, errorbank.NotFound("order not found")
		}
		if err != nil {
			return dto.OrderResponse{}, errorbank.Unavailable("failed to persist order", errorbank.WithCause(err))
		}

		s.invalidateCache(ctx, order.ID)
		if order.Status != previous {
			s.publishEvent(ctx, order.ID, OrderStatusChangedEvent{
				Type:        EventOrderStatusChanged,
				OrderID:     order.ID,
				TableNumber: order.TableNumber,
				Status:      order.Status,
				Previous:    previous,
				At:          time.Now().UTC(),
			})
		}
		return s.resolve(ctx, order)
	}
	return dto.OrderResponse{}, errorbank.Conflict("order is being updated concurrently; try again")
}

// voidAfterFailedOccupy compensates for a lost table-occupation race by
// voiding the order that was just created.
func (s *Service) voidAfterFailedOccupy(ctx context.Context, order *entity.Order) {
	now := time.Now().UTC()
	order.Status = entity.OrderCancelled
	order.CancelReason = "table occupied at creation"
	order.CancelledAt = &now
	if err := s.orders.Update(ctx, order); err != nil && s.logger != nil {
		s.logger.Error("failed to void order after occupy race",
			zap.Int64("id", order.ID), zap.Error(err))
	}
}

func (s *Service) resolve(ctx context.Context, order *entity.Order) (dto.OrderResponse, error) {
	resp, err := catalog.ResolveOrder(ctx, s.catalog, order)
	if err != nil {
		return dto.OrderResponse{}, errorbank.Unavailable("failed to resolve order display fields", errorbank.WithCause(err))
	}
	return resp, nil
}

func (s *Service) resolveAll(ctx context.Context, orders []*entity.Order) ([]dto.OrderResponse, error) {
	out, err := catalog.ResolveOrders(ctx, s.catalog, orders)
	if err != nil {
		return nil, errorbank.Unavailable("failed to resolve order display fields", errorbank.WithCause(err))
	}
	return out, nil
}

// CacheKey is the cache key for an order snapshot; shared with the
// settlement and cancellation services for invalidation.
func CacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, CacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	bytes, err := json.Marshal(order)
	if err == nil {
		err = s.cache.Set(ctx, CacheKey(order.ID), bytes, s.cacheTTL)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}
}

func (s *Service) invalidateCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKey(id)); err != nil && s.logger != nil {
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
			s.logger.Error("marshal order event", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", orderID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish order event", zap.Int64("id", orderID), zap.Error(err))
		}
	}
}

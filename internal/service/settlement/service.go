// Package settlement implements the cashier side of the order lifecycle:
// total calculation, payment, invoice printing, and the raw settled-order
// stream consumed by reporting.
package settlement

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
	ordersvc "github.com/dinecore/dinecore/internal/service/order"
	"github.com/dinecore/dinecore/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/dinecore/dinecore/service/settlement")

const maxUpdateAttempts = 3

// OrderStore is the persistence surface settlement needs.
type OrderStore interface {
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
	PaidBetween(ctx context.Context, from, to time.Time) ([]*entity.Order, error)
}

// TableStore covers the table release side effect of settlement.
type TableStore interface {
	Release(ctx context.Context, tableNumber int, orderID int64) error
}

// Publisher sends domain events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte) error
}

// Service validates and executes payment against open orders.
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

// NewService wires a new settlement Service instance.
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

// CalculateTotal recomputes and persists an order's totals from its line
// items and the given discount. FinalAmount is what Pay later validates
// against, so this must run before settlement.
func (s *Service) CalculateTotal(ctx context.Context, orderID int64, discount float64) (dto.TotalsResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "SettlementService.CalculateTotal", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var totals billing.Totals
	_, err := s.update(ctx, orderID, func(order *entity.Order) error {
		if order.Status.Terminal() {
			return errorbank.Conflict("order is already closed",
				errorbank.WithDetail("order_status", string(order.Status)))
		}
		computed, err := billing.ComputeTotals(order.Items, discount)
		if err != nil {
			return errorbank.BadRequest(err.Error())
		}
		totals = computed
		order.TotalAmount = computed.TotalAmount
		order.Discount = discount
		order.FinalAmount = computed.FinalAmount
		return nil
	})
	if err != nil {
		return dto.TotalsResponse{}, err
	}

	return dto.TotalsResponse{
		TotalAmount:    totals.TotalAmount,
		Discount:       discount,
		DiscountAmount: totals.DiscountAmount,
		FinalAmount:    totals.FinalAmount,
	}, nil
}

// Pay settles an order: validates the tendered amount, computes change,
// stamps payment fields, then releases the table. The order write and the
// table release are two separate writes; a failed release leaves the order
// settled and is reported distinctly so the operator knows the table may
// still show occupied. The emitted settled event drives retry of the
// release in the background.
func (s *Service) Pay(ctx context.Context, orderID int64, req dto.PayRequest) (dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "SettlementService.Pay", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("payment.method", req.PaymentMethod),
	))
	defer span.End()

	if req.PaymentMethod == "" {
		return dto.OrderResponse{}, errorbank.BadRequest("payment method is required")
	}

	order, err := s.update(ctx, orderID, func(order *entity.Order) error {
		if order.Status == entity.OrderPaid {
			return errorbank.Conflict("order is already paid")
		}
		if order.Status == entity.OrderCancelled {
			return errorbank.Conflict("cannot pay a cancelled order")
		}
		if req.PaidAmount < order.FinalAmount {
			return errorbank.PaymentRequired("paid amount is below the final amount",
				errorbank.WithDetail("final_amount", order.FinalAmount),
				errorbank.WithDetail("paid_amount", req.PaidAmount))
		}

		now := time.Now().UTC()
		order.PaymentMethod = req.PaymentMethod
		order.PaidAmount = req.PaidAmount
		order.Change = req.PaidAmount - order.FinalAmount
		order.Status = entity.OrderPaid
		order.PaidAt = &now
		if req.CashierID != nil {
			order.CashierID = req.CashierID
		}
		return nil
	})
	if err != nil {
		return dto.OrderResponse{}, err
	}

	releaseErr := s.tables.Release(ctx, order.TableNumber, order.ID)

	s.publishEvent(ctx, order.ID, OrderSettledEvent{
		Type:        EventOrderSettled,
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		FinalAmount: order.FinalAmount,
		PaidAmount:  order.PaidAmount,
		Change:      order.Change,
		At:          *order.PaidAt,
	})

	if releaseErr != nil {
		span.RecordError(releaseErr)
		span.SetStatus(codes.Error, "table release failed")
		return dto.OrderResponse{}, errorbank.Unavailable("order settled but table release failed",
			errorbank.WithCause(releaseErr),
			errorbank.WithDetail("order_id", order.ID),
			errorbank.WithDetail("table_number", order.TableNumber))
	}

	return s.resolve(ctx, order)
}

// Invoice builds the print payload for an order.
func (s *Service) Invoice(ctx context.Context, orderID int64) (dto.Invoice, error) {
	ctx, span := serviceTracer.Start(ctx, "SettlementService.Invoice", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return dto.Invoice{}, errorbank.NotFound("order not found")
		}
		return dto.Invoice{}, errorbank.Unavailable("failed to load order", errorbank.WithCause(err))
	}

	invoice := dto.Invoice{
		InvoiceNumber:  fmt.Sprintf("INV-%08d", order.ID),
		Date:           order.CreatedAt,
		PaidAt:         order.PaidAt,
		TableNumber:    order.TableNumber,
		Server:         s.userName(ctx, order.ServerID),
		TotalAmount:    order.TotalAmount,
		Discount:       order.Discount,
		DiscountAmount: order.TotalAmount * order.Discount / 100,
		FinalAmount:    order.FinalAmount,
		PaymentMethod:  order.PaymentMethod,
		PaidAmount:     order.PaidAmount,
		Change:         order.Change,
	}
	if order.CashierID != nil {
		invoice.Cashier = s.userName(ctx, *order.CashierID)
	}

	invoice.Items = make([]dto.InvoiceLine, 0, len(order.Items))
	for _, item := range order.Items {
		line := dto.InvoiceLine{
			Quantity: item.Quantity,
			Price:    item.Price,
			Total:    item.Price * float64(item.Quantity),
		}
		if menu, err := s.catalog.MenuItem(ctx, item.MenuItemID); err == nil {
			line.Name = menu.Name
		}
		invoice.Items = append(invoice.Items, line)
	}

	return invoice, nil
}

// DailySales aggregates settled orders for one calendar day (UTC).
func (s *Service) DailySales(ctx context.Context, day time.Time) (dto.DailySales, error) {
	ctx, span := serviceTracer.Start(ctx, "SettlementService.DailySales")
	defer span.End()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)

	orders, err := s.orders.PaidBetween(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return dto.DailySales{}, errorbank.Unavailable("failed to load settled orders", errorbank.WithCause(err))
	}

	sales := dto.DailySales{Date: start, TotalOrders: len(orders)}
	for _, order := range orders {
		sales.TotalSales += order.FinalAmount
	}

	resolved, err := catalog.ResolveOrders(ctx, s.catalog, orders)
	if err != nil {
		return dto.DailySales{}, errorbank.Unavailable("failed to resolve order display fields", errorbank.WithCause(err))
	}
	sales.Orders = resolved

	return sales, nil
}

// update is the settlement-side read-modify-write loop with optimistic
// concurrency retries. apply validates preconditions before mutating, so a
// rejected request leaves the order untouched.
func (s *Service) update(ctx context.Context, orderID int64, apply func(*entity.Order) error) (*entity.Order, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, orderrepo.ErrNotFound) {
				return nil, errorbank.NotFound("order not found")
			}
			return nil, errorbank.Unavailable("failed to load order", errorbank.WithCause(err))
		}

		if err := apply(order); err != nil {
			return nil, err
		}

		err = s.orders.Update(ctx, order)
		if errors.Is(err, orderrepo.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		if err != nil {
			return nil, errorbank.Unavailable("failed to persist order", errorbank.WithCause(err))
		}

		s.invalidateCache(ctx, order.ID)
		return order, nil
	}
	return nil, errorbank.Conflict("order is being updated concurrently; try again")
}

func (s *Service) resolve(ctx context.Context, order *entity.Order) (dto.OrderResponse, error) {
	resp, err := catalog.ResolveOrder(ctx, s.catalog, order)
	if err != nil {
		return dto.OrderResponse{}, errorbank.Unavailable("failed to resolve order display fields", errorbank.WithCause(err))
	}
	return resp, nil
}

func (s *Service) userName(ctx context.Context, id int64) string {
	user, err := s.catalog.User(ctx, id)
	if err != nil {
		return ""
	}
	return user.Name
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
			s.logger.Error("marshal settlement event", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", orderID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish settlement event", zap.Int64("id", orderID), zap.Error(err))
		}
	}
}

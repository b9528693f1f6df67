package cashier

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dinecore/dinecore/internal/dto"
	"github.com/dinecore/dinecore/internal/entity"
	"github.com/dinecore/dinecore/internal/presentation/http/response"
	cancelsvc "github.com/dinecore/dinecore/internal/service/cancellation"
	ordersvc "github.com/dinecore/dinecore/internal/service/order"
	settlesvc "github.com/dinecore/dinecore/internal/service/settlement"
	"github.com/dinecore/dinecore/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/dinecore/dinecore/transport/http/cashier")

// Handler exposes the cashier workflow over HTTP: invoice views, total
// calculation, payment, cancellation, printing, and daily sales.
type Handler struct {
	orders     *ordersvc.Service
	settlement *settlesvc.Service
	cancel     *cancelsvc.Service
}

// NewHandler constructs a cashier Handler.
func NewHandler(orders *ordersvc.Service, settlement *settlesvc.Service, cancel *cancelsvc.Service) *Handler {
	return &Handler{orders: orders, settlement: settlement, cancel: cancel}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/cashier")
	g.GET("/invoices", h.list)
	g.GET("/invoices/status/:status", h.byStatus)
	g.GET("/invoices/table/:tableNumber", h.byTable)
	g.GET("/invoices/:id", h.getByID)
	g.GET("/invoices/:orderId/print", h.print)
	g.POST("/invoices/:orderId/calculate", h.calculate)
	g.POST("/invoices/:orderId/pay", h.pay)
	g.POST("/invoices/:orderId/cancel", h.cancelOrder)
	g.GET("/sales/daily", h.dailySales)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.list")
	defer span.End()

	orders, err := h.orders.List(ctx, dto.OrderFilter{})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(orders).Build()
}

func (h *Handler) byStatus(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.byStatus")
	defer span.End()

	orders, err := h.orders.List(ctx, dto.OrderFilter{Status: entity.OrderStatus(c.Param("status"))})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(orders).Build()
}

func (h *Handler) byTable(c echo.Context) error {
	b := response.New(c)

	tableNumber, err := strconv.Atoi(c.Param("tableNumber"))
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid table number", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.byTable", trace.WithAttributes(attribute.Int("table.number", tableNumber)))
	defer span.End()

	order, err := h.orders.OpenByTable(ctx, tableNumber)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.orders.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) calculate(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	var payload dto.CalculateTotalRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.calculate", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	totals, err := h.settlement.CalculateTotal(ctx, orderID, payload.Discount)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(totals).Build()
}

func (h *Handler) pay(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	var payload dto.PayRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.pay", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("payment.method", payload.PaymentMethod),
	))
	defer span.End()

	order, err := h.settlement.Pay(ctx, orderID, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) cancelOrder(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	var payload dto.CancelRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.cancel", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := h.cancel.Cancel(ctx, orderID, payload.Reason)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) print(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.print", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	invoice, err := h.settlement.Invoice(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(invoice).Build()
}

func (h *Handler) dailySales(c echo.Context) error {
	b := response.New(c)

	day := time.Now().UTC()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid date, expected YYYY-MM-DD", errorbank.WithCause(err))).Build()
		}
		day = parsed
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "cashier.dailySales")
	defer span.End()

	sales, err := h.settlement.DailySales(ctx, day)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(sales).Build()
}

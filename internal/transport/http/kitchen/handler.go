package kitchen

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dinecore/dinecore/internal/dto"
	"github.com/dinecore/dinecore/internal/entity"
	"github.com/dinecore/dinecore/internal/presentation/http/response"
	service "github.com/dinecore/dinecore/internal/service/order"
	"github.com/dinecore/dinecore/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/dinecore/dinecore/transport/http/kitchen")

// Handler exposes the kitchen workflow over HTTP: queue views and
// item-status updates.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a kitchen Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/kitchen")
	g.GET("/orders", h.queue)
	g.GET("/orders/status/:status", h.byStatus)
	g.GET("/orders/:id", h.getByID)
	g.POST("/orders/:orderId/start", h.startPreparing)
	g.POST("/orders/:orderId/ready", h.markReady)
	g.PATCH("/orders/:orderId/items/:itemId/status", h.setItemStatus)
	g.PATCH("/orders/:orderId/items/status", h.setAllItemsStatus)
}

func (h *Handler) queue(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.queue")
	defer span.End()

	orders, err := h.svc.ListKitchen(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(orders).Build()
}

func (h *Handler) byStatus(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.byStatus")
	defer span.End()

	orders, err := h.svc.List(ctx, dto.OrderFilter{Status: entity.OrderStatus(c.Param("status"))})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(orders).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) startPreparing(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.startPreparing", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := h.svc.StartPreparing(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) markReady(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.markReady", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := h.svc.MarkReady(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) setItemStatus(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}
	itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid item id", errorbank.WithCause(err))).Build()
	}

	var payload dto.ItemStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.setItemStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("order.item_id", itemID),
	))
	defer span.End()

	order, err := h.svc.SetItemStatus(ctx, orderID, itemID, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) setAllItemsStatus(c echo.Context) error {
	b := response.New(c)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid order id", errorbank.WithCause(err))).Build()
	}

	var payload dto.ItemStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "kitchen.setAllItemsStatus", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := h.svc.SetAllItemsStatus(ctx, orderID, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

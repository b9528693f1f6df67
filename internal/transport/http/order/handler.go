package order

import (
	"net/http"
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

var httpTracer = otel.Tracer("github.com/dinecore/dinecore/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	var filter dto.OrderFilter
	if raw := c.QueryParam("tableNumber"); raw != "" {
		tn, err := strconv.Atoi(raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid table number", errorbank.WithCause(err))).Build()
		}
		filter.TableNumber = &tn
	}
	if raw := c.QueryParam("status"); raw != "" {
		filter.Status = entity.OrderStatus(raw)
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.List(ctx, filter)
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

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.Int("order.table_number", payload.TableNumber),
	))
	defer span.End()

	order, err := h.svc.Create(ctx, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(order).Build()
}

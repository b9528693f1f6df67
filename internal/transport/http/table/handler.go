package table

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dinecore/dinecore/internal/dto"
	"github.com/dinecore/dinecore/internal/entity"
	"github.com/dinecore/dinecore/internal/presentation/http/response"
	service "github.com/dinecore/dinecore/internal/service/table"
	"github.com/dinecore/dinecore/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/dinecore/dinecore/transport/http/table")

// Handler exposes table endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a table Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/tables")
	g.GET("", h.list)
	g.GET("/status/:status", h.byStatus)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id/status", h.setStatus)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.list")
	defer span.End()

	tables, err := h.svc.List(ctx, "")
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(tables).Build()
}

func (h *Handler) byStatus(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.byStatus")
	defer span.End()

	tables, err := h.svc.List(ctx, entity.TableStatus(c.Param("status")))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(tables).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.getByID", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(table).Build()
}

func (h *Handler) setStatus(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var payload dto.TableStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tables.setStatus", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table, err := h.svc.SetStatus(ctx, id, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(table).Build()
}

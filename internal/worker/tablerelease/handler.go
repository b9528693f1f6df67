// Package tablerelease reconciles table occupancy after terminal order
// transitions. The inline release during settlement/cancellation can fail
// after the order is already closed; this handler replays the idempotent
// release from the emitted event so the table never stays occupied forever.
package tablerelease

import (
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dinecore/dinecore/internal/config"
	"github.com/dinecore/dinecore/internal/entity"
	"github.com/dinecore/dinecore/internal/messaging"
	orderrepo "github.com/dinecore/dinecore/internal/repository/order"
	tablerepo "github.com/dinecore/dinecore/internal/repository/table"
	"github.com/dinecore/dinecore/internal/service/cancellation"
	"github.com/dinecore/dinecore/internal/service/settlement"
	"github.com/dinecore/dinecore/internal/worker"
)

var workerTracer = otel.Tracer("github.com/dinecore/dinecore/worker/tablerelease")

// OrderStore is the order lookup the reconciler needs.
type OrderStore interface {
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
}

// TableStore covers the replayed release write.
type TableStore interface {
	Release(ctx context.Context, tableNumber int, orderID int64) error
}

type moduleParams struct {
	fx.In

	Logger *zap.Logger
	Config config.Config
	Orders *orderrepo.Repository
	Tables *tablerepo.Repository
}

// Module registers the table-release reconciler with the worker engine.
var Module = fx.Module("worker_tablerelease",
	fx.Provide(
		fx.Annotate(
			func(p moduleParams) worker.HandlerRegistration {
				return NewHandler(p.Logger, p.Config.Messaging.Kafka.Topic, p.Orders, p.Tables)
			},
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// envelope is the shared header of every order event payload.
type envelope struct {
	Type        string `json:"type"`
	OrderID     int64  `json:"order_id"`
	TableNumber int    `json:"table_number"`
}

// NewHandler sets up the worker handler replaying table releases for
// settled and cancelled orders. Any transient failure is returned so the
// engine skips the commit and the message is redelivered; only a decoded
// event for an order that genuinely no longer exists is dropped.
func NewHandler(logger *zap.Logger, topic string, orders OrderStore, tables TableStore) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.tablerelease.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event envelope
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		if event.Type != settlement.EventOrderSettled && event.Type != cancellation.EventOrderCancelled {
			return nil
		}
		span.SetAttributes(attribute.Int64("order.id", event.OrderID))

		// The order's terminal status is the source of truth for whether
		// the table should be free; skip events for orders that somehow
		// reopened or vanished.
		order, err := orders.GetByID(ctx, event.OrderID)
		if errors.Is(err, orderrepo.ErrNotFound) {
			logger.Warn("reconcile skipped; order no longer exists",
				zap.Int64("id", event.OrderID))
			return nil
		}
		if err != nil {
			logger.Error("order load failed; leaving message for redelivery",
				zap.Int64("id", event.OrderID), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "order load failed")
			return err
		}
		if !order.Status.Terminal() {
			return nil
		}

		if err := tables.Release(ctx, event.TableNumber, event.OrderID); err != nil {
			logger.Error("table release replay failed",
				zap.Int64("id", event.OrderID),
				zap.Int("table", event.TableNumber),
				zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "release failed")

			// Returning the error skips the commit so the message is
			// redelivered and the release retried.
			return err
		}

		logger.Info("table release reconciled",
			zap.Int64("id", event.OrderID),
			zap.Int("table", event.TableNumber),
			zap.String("event", event.Type),
		)
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   topic,
		Handler: handler,
	}
}

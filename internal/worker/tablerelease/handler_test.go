package tablerelease

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/dinecore/dinecore/internal/entity"
	"github.com/dinecore/dinecore/internal/messaging"
	orderrepo "github.com/dinecore/dinecore/internal/repository/order"
	"github.com/dinecore/dinecore/internal/service/settlement"
)

type fakeOrders struct {
	order *entity.Order
	err   error
}

func (f *fakeOrders) GetByID(context.Context, int64) (*entity.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

type fakeTables struct {
	released   []int64
	releaseErr error
}

func (f *fakeTables) Release(_ context.Context, _ int, orderID int64) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.released = append(f.released, orderID)
	return nil
}

func settledMessage(t *testing.T) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(settlement.OrderSettledEvent{
		Type:        settlement.EventOrderSettled,
		OrderID:     7,
		TableNumber: 3,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return messaging.Message{Topic: "orders.events", Value: payload}
}

func newTestHandler(orders *fakeOrders, tables *fakeTables) messaging.Handler {
	reg := NewHandler(zap.NewNop(), "orders.events", orders, tables)
	return reg.Handler
}

func TestReplayReleasesTerminalOrder(t *testing.T) {
	orders := &fakeOrders{order: &entity.Order{ID: 7, TableNumber: 3, Status: entity.OrderPaid}}
	tables := &fakeTables{}
	handler := newTestHandler(orders, tables)

	if err := handler(context.Background(), settledMessage(t)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(tables.released) != 1 || tables.released[0] != 7 {
		t.Fatalf("released = %v, want [7]", tables.released)
	}
}

func TestReplaySkipsMissingOrder(t *testing.T) {
	orders := &fakeOrders{err: orderrepo.ErrNotFound}
	tables := &fakeTables{}
	handler := newTestHandler(orders, tables)

	if err := handler(context.Background(), settledMessage(t)); err != nil {
		t.Fatalf("missing order must be dropped, got %v", err)
	}
	if len(tables.released) != 0 {
		t.Fatalf("released = %v, want none", tables.released)
	}
}

func TestReplayRequeuesOnOrderLoadFailure(t *testing.T) {
	orders := &fakeOrders{err: errors.New("connection reset")}
	tables := &fakeTables{}
	handler := newTestHandler(orders, tables)

	// A transient load failure must not commit the message; the replay
	// has to survive until the store is reachable again.
	if err := handler(context.Background(), settledMessage(t)); err == nil {
		t.Fatal("expected error so the message is redelivered")
	}
	if len(tables.released) != 0 {
		t.Fatalf("released = %v, want none", tables.released)
	}
}

func TestReplayRequeuesOnReleaseFailure(t *testing.T) {
	orders := &fakeOrders{order: &entity.Order{ID: 7, TableNumber: 3, Status: entity.OrderPaid}}
	tables := &fakeTables{releaseErr: errors.New("table store down")}
	handler := newTestHandler(orders, tables)

	if err := handler(context.Background(), settledMessage(t)); err == nil {
		t.Fatal("expected error so the message is redelivered")
	}
}

func TestReplaySkipsNonTerminalOrder(t *testing.T) {
	orders := &fakeOrders{order: &entity.Order{ID: 7, TableNumber: 3, Status: entity.OrderPreparing}}
	tables := &fakeTables{}
	handler := newTestHandler(orders, tables)

	if err := handler(context.Background(), settledMessage(t)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(tables.released) != 0 {
		t.Fatalf("released = %v, want none", tables.released)
	}
}

func TestReplayIgnoresOtherEvents(t *testing.T) {
	orders := &fakeOrders{err: errors.New("must not be consulted")}
	tables := &fakeTables{}
	handler := newTestHandler(orders, tables)

	payload, err := json.Marshal(envelope{Type: "order.created", OrderID: 7, TableNumber: 3})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := handler(context.Background(), messaging.Message{Topic: "orders.events", Value: payload}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(tables.released) != 0 {
		t.Fatalf("released = %v, want none", tables.released)
	}
}

package cancellation

import (
	"context"
	"errors"
	"testing"

	"github.com/dinecore/dinecore/internal/entity"
	orderrepo "github.com/dinecore/dinecore/internal/repository/order"
	"github.com/dinecore/dinecore/pkg/errorbank"
)

type fakeOrders struct {
	orders    map[int64]*entity.Order
	conflicts int
}

func newFakeOrders(orders ...*entity.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[int64]*entity.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, orderrepo.ErrNotFound
	}
	clone := *order
	clone.Items = make([]*entity.OrderItem, len(order.Items))
	for i, item := range order.Items {
		itemClone := *item
		clone.Items[i] = &itemClone
	}
	return &clone, nil
}

func (f *fakeOrders) Update(_ context.Context, order *entity.Order) error {
	if _, ok := f.orders[order.ID]; !ok {
		return orderrepo.ErrNotFound
	}
	if f.conflicts > 0 {
		f.conflicts--
		return orderrepo.ErrVersionConflict
	}
	order.Version++
	f.orders[order.ID] = order
	return nil
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

type fakeDirectory struct{}

func (fakeDirectory) MenuItem(_ context.Context, id int64) (*entity.MenuItem, error) {
	return &entity.MenuItem{ID: id, Name: "Pho Bo", Price: 50}, nil
}

func (fakeDirectory) User(_ context.Context, id int64) (*entity.User, error) {
	return &entity.User{ID: id, Name: "Linh Tran", Username: "linh"}, nil
}

type fakePublisher struct {
	messages [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, _ []byte, value []byte) error {
	f.messages = append(f.messages, value)
	return nil
}

func openOrder() *entity.Order {
	return &entity.Order{
		ID:          4,
		TableNumber: 2,
		ServerID:    1,
		Status:      entity.OrderPreparing,
		Items: []*entity.OrderItem{
			{ID: 21, MenuItemID: 1, Quantity: 1, Price: 50, Status: entity.ItemPreparing},
		},
	}
}

func newTestService(orders *fakeOrders, tables *fakeTables) (*Service, *fakePublisher) {
	pub := &fakePublisher{}
	svc := NewService(Params{
		Orders:        orders,
		Tables:        tables,
		Catalog:       fakeDirectory{},
		Publisher:     pub,
		PublishEvents: true,
	})
	return svc, pub
}

func TestCancelOpenOrder(t *testing.T) {
	orders := newFakeOrders(openOrder())
	tables := &fakeTables{}
	svc, pub := newTestService(orders, tables)

	resp, err := svc.Cancel(context.Background(), 4, "guest left")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.Status != entity.OrderCancelled {
		t.Fatalf("status = %s, want cancelled", resp.Status)
	}
	if resp.CancelReason != "guest left" {
		t.Fatalf("reason = %q", resp.CancelReason)
	}
	if resp.CancelledAt == nil {
		t.Fatal("cancelled_at not stamped")
	}

	stored := orders.orders[4]
	if stored.Status != entity.OrderCancelled {
		t.Fatal("cancellation must persist, not delete")
	}
	if len(tables.released) != 1 || tables.released[0] != 4 {
		t.Fatalf("released = %v, want [4]", tables.released)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.messages))
	}
}

func TestCancelPaidOrder(t *testing.T) {
	order := openOrder()
	order.Status = entity.OrderPaid
	orders := newFakeOrders(order)
	svc, _ := newTestService(orders, &fakeTables{})

	_, err := svc.Cancel(context.Background(), 4, "mistake")
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindConflict {
		t.Fatalf("kind = %s, want conflict", kind)
	}
	if orders.orders[4].Status != entity.OrderPaid {
		t.Fatal("paid order must stay paid")
	}
}

func TestCancelAlreadyCancelled(t *testing.T) {
	order := openOrder()
	order.Status = entity.OrderCancelled
	svc, _ := newTestService(newFakeOrders(order), &fakeTables{})

	_, err := svc.Cancel(context.Background(), 4, "again")
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindConflict {
		t.Fatalf("kind = %s, want conflict", kind)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	svc, _ := newTestService(newFakeOrders(), &fakeTables{})

	_, err := svc.Cancel(context.Background(), 99, "nope")
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindNotFound {
		t.Fatalf("kind = %s, want not_found", kind)
	}
}

func TestCancelReleaseFailureLeavesOrderCancelled(t *testing.T) {
	orders := newFakeOrders(openOrder())
	tables := &fakeTables{releaseErr: errors.New("table store down")}
	svc, pub := newTestService(orders, tables)

	_, err := svc.Cancel(context.Background(), 4, "guest left")
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindUnavailable {
		t.Fatalf("kind = %s, want unavailable", kind)
	}
	if orders.orders[4].Status != entity.OrderCancelled {
		t.Fatal("order must remain cancelled when only the release fails")
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d events, want 1 for the reconciler", len(pub.messages))
	}
}

func TestCancelRetriesOnVersionConflict(t *testing.T) {
	orders := newFakeOrders(openOrder())
	orders.conflicts = 2
	svc, _ := newTestService(orders, &fakeTables{})

	resp, err := svc.Cancel(context.Background(), 4, "guest left")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.Status != entity.OrderCancelled {
		t.Fatalf("status = %s, want cancelled", resp.Status)
	}
}

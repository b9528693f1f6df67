package order

import (
	"context"
	"testing"

	"github.com/dinecore/dinecore/internal/catalog"
	"github.com/dinecore/dinecore/internal/dto"
	"github.com/dinecore/dinecore/internal/entity"
	orderrepo "github.com/dinecore/dinecore/internal/repository/order"
	tablerepo "github.com/dinecore/dinecore/internal/repository/table"
	"github.com/dinecore/dinecore/pkg/errorbank"
)

type fakeOrders struct {
	orders    map[int64]*entity.Order
	nextID    int64
	conflicts int
}

func newFakeOrders(orders ...*entity.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[int64]*entity.Order), nextID: 100}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) Create(_ context.Context, order *entity.Order) error {
	f.nextID++
	order.ID = f.nextID
	for i, item := range order.Items {
		item.ID = order.ID*100 + int64(i)
		item.OrderID = order.ID
		item.Position = i
	}
	f.orders[order.ID] = order
	return nil
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

func (f *fakeOrders) List(_ context.Context, filter orderrepo.Filter) ([]*entity.Order, error) {
	var out []*entity.Order
	for _, order := range f.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if order.Status == status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, order)
	}
	return out, nil
}

func (f *fakeOrders) OpenByTable(_ context.Context, tableNumber int) (*entity.Order, error) {
	for _, order := range f.orders {
		if order.TableNumber == tableNumber && !order.Status.Terminal() {
			return order, nil
		}
	}
	return nil, orderrepo.ErrNotFound
}

type fakeTables struct {
	tables    map[int]*entity.Table
	occupyErr error
	occupied  []int64
	released  []int64
}

func newFakeTables(tables ...*entity.Table) *fakeTables {
	f := &fakeTables{tables: make(map[int]*entity.Table)}
	for _, table := range tables {
		f.tables[table.TableNumber] = table
	}
	return f
}

func (f *fakeTables) GetByNumber(_ context.Context, tableNumber int) (*entity.Table, error) {
	table, ok := f.tables[tableNumber]
	if !ok {
		return nil, tablerepo.ErrNotFound
	}
	return table, nil
}

func (f *fakeTables) Occupy(_ context.Context, tableNumber int, orderID int64) error {
	if f.occupyErr != nil {
		return f.occupyErr
	}
	table, ok := f.tables[tableNumber]
	if !ok {
		return tablerepo.ErrNotFound
	}
	table.Status = entity.TableOccupied
	table.CurrentOrderID = &orderID
	f.occupied = append(f.occupied, orderID)
	return nil
}

func (f *fakeTables) Release(_ context.Context, _ int, orderID int64) error {
	f.released = append(f.released, orderID)
	return nil
}

type fakeDirectory struct {
	menu map[int64]*entity.MenuItem
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{menu: map[int64]*entity.MenuItem{
		1: {ID: 1, Name: "Pho Bo", Price: 50},
		2: {ID: 2, Name: "Goi Cuon", Price: 30},
	}}
}

func (f *fakeDirectory) MenuItem(_ context.Context, id int64) (*entity.MenuItem, error) {
	item, ok := f.menu[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return item, nil
}

func (f *fakeDirectory) User(_ context.Context, id int64) (*entity.User, error) {
	return &entity.User{ID: id, Name: "Linh Tran", Username: "linh"}, nil
}

func newTestService(orders *fakeOrders, tables *fakeTables) *Service {
	return NewService(Params{
		Orders:  orders,
		Tables:  tables,
		Catalog: newFakeDirectory(),
	})
}

func openOrder(statuses ...entity.ItemStatus) *entity.Order {
	order := &entity.Order{
		ID:          10,
		TableNumber: 2,
		ServerID:    1,
		Status:      entity.OrderPending,
	}
	for i, status := range statuses {
		order.Items = append(order.Items, &entity.OrderItem{
			ID:         int64(30 + i),
			OrderID:    10,
			Position:   i,
			MenuItemID: 1,
			Quantity:   1,
			Price:      50,
			Status:     status,
		})
	}
	if derived, ok := entity.Reduce(order.ItemStatuses()); ok {
		order.Status = derived
	}
	return order
}

func TestCreateSnapshotsMenuPrices(t *testing.T) {
	orders := newFakeOrders()
	tables := newFakeTables(&entity.Table{TableNumber: 2, Status: entity.TableAvailable})
	svc := newTestService(orders, tables)

	resp, err := svc.Create(context.Background(), dto.CreateOrderRequest{
		TableNumber: 2,
		ServerID:    1,
		Items: []dto.CreateOrderItem{
			{MenuItemID: 1, Quantity: 2},
			{MenuItemID: 2, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Status != entity.OrderPending {
		t.Fatalf("status = %s, want pending", resp.Status)
	}
	if resp.TotalAmount != 130 || resp.FinalAmount != 130 {
		t.Fatalf("totals = %v / %v, want 130 / 130", resp.TotalAmount, resp.FinalAmount)
	}
	if resp.Items[0].Price != 50 {
		t.Fatalf("item price = %v, want menu snapshot 50", resp.Items[0].Price)
	}
	if len(tables.occupied) != 1 {
		t.Fatalf("occupied %d times, want 1", len(tables.occupied))
	}
}

func TestCreateAppliesDiscount(t *testing.T) {
	orders := newFakeOrders()
	tables := newFakeTables(&entity.Table{TableNumber: 2, Status: entity.TableAvailable})
	svc := newTestService(orders, tables)

	resp, err := svc.Create(context.Background(), dto.CreateOrderRequest{
		TableNumber: 2,
		ServerID:    1,
		Items: []dto.CreateOrderItem{
			{MenuItemID: 1, Quantity: 2},
			{MenuItemID: 2, Quantity: 1},
		},
		Discount: 10,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.FinalAmount != 117 {
		t.Fatalf("final = %v, want 117", resp.FinalAmount)
	}
}

func TestCreateTableNotAvailable(t *testing.T) {
	tables := newFakeTables(&entity.Table{TableNumber: 2, Status: entity.TableOccupied})
	svc := newTestService(newFakeOrders(), tables)

	_, err := svc.Create(context.Background(), dto.CreateOrderRequest{
		TableNumber: 2,
		ServerID:    1,
		Items:       []dto.CreateOrderItem{{MenuItemID: 1, Quantity: 1}},
	})
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindConflict {
		t.Fatalf("kind = %s, want conflict", kind)
	}
}

func TestCreateUnknownTable(t *testing.T) {
	svc := newTestService(newFakeOrders(), newFakeTables())

	_, err := svc.Create(context.Background(), dto.CreateOrderRequest{
		TableNumber: 9,
		ServerID:    1,
		Items:       []dto.CreateOrderItem{{MenuItemID: 1, Quantity: 1}},
	})
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindNotFound {
		t.Fatalf("kind = %s, want not_found", kind)
	}
}

func TestCreateValidation(t *testing.T) {
	tables := newFakeTables(&entity.Table{TableNumber: 2, Status: entity.TableAvailable})
	svc := newTestService(newFakeOrders(), tables)

	cases := []struct {
		name string
		req  dto.CreateOrderRequest
	}{
		{"no table", dto.CreateOrderRequest{ServerID: 1, Items: []dto.CreateOrderItem{{MenuItemID: 1, Quantity: 1}}}},
		{"no server", dto.CreateOrderRequest{TableNumber: 2, Items: []dto.CreateOrderItem{{MenuItemID: 1, Quantity: 1}}}},
		{"no items", dto.CreateOrderRequest{TableNumber: 2, ServerID: 1}},
		{"zero quantity", dto.CreateOrderRequest{TableNumber: 2, ServerID: 1, Items: []dto.CreateOrderItem{{MenuItemID: 1}}}},
		{"unknown menu item", dto.CreateOrderRequest{TableNumber: 2, ServerID: 1, Items: []dto.CreateOrderItem{{MenuItemID: 99, Quantity: 1}}}},
		{"bad discount", dto.CreateOrderRequest{TableNumber: 2, ServerID: 1, Items: []dto.CreateOrderItem{{MenuItemID: 1, Quantity: 1}}, Discount: 150}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req)
			if kind := errorbank.From(err).Kind(); kind != errorbank.KindBadRequest {
				t.Fatalf("kind = %s, want bad_request", kind)
			}
		})
	}
}

func TestCreateOccupyRaceVoidsOrder(t *testing.T) {
	orders := newFakeOrders()
	tables := newFakeTables(&entity.Table{TableNumber: 2, Status: entity.TableAvailable})
	tables.occupyErr = tablerepo.ErrOccupied
	svc := newTestService(orders, tables)

	_, err := svc.Create(context.Background(), dto.CreateOrderRequest{
		TableNumber: 2,
		ServerID:    1,
		Items:       []dto.CreateOrderItem{{MenuItemID: 1, Quantity: 1}},
	})
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindConflict {
		t.Fatalf("kind = %s, want conflict", kind)
	}

	if len(orders.orders) != 1 {
		t.Fatalf("orders = %d, want the voided order kept", len(orders.orders))
	}
	for _, order := range orders.orders {
		if order.Status != entity.OrderCancelled {
			t.Fatalf("status = %s, compensation must void the order", order.Status)
		}
	}
}

func TestSetItemStatusDerivesAggregate(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemReady, entity.ItemPreparing))
	svc := newTestService(orders, newFakeTables())

	resp, err := svc.SetItemStatus(context.Background(), 10, 31, entity.ItemReady)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	if resp.Status != entity.OrderReady {
		t.Fatalf("status = %s, want ready once every item is ready", resp.Status)
	}
}

func TestSetItemStatusUncoveredMixKeepsAggregate(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPreparing, entity.ItemPreparing))
	svc := newTestService(orders, newFakeTables())

	resp, err := svc.SetItemStatus(context.Background(), 10, 30, entity.ItemPending)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	// pending next to preparing still reduces to preparing
	if resp.Status != entity.OrderPreparing {
		t.Fatalf("status = %s, want preparing", resp.Status)
	}

	orders = newFakeOrders(openOrder(entity.ItemPending, entity.ItemPending))
	svc = newTestService(orders, newFakeTables())

	resp, err = svc.SetItemStatus(context.Background(), 10, 30, entity.ItemReady)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	// pending next to ready matches no rule; the aggregate stays put
	if resp.Status != entity.OrderPending {
		t.Fatalf("status = %s, want aggregate unchanged on uncovered mix", resp.Status)
	}
}

func TestSetItemStatusUnknownItem(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPending))
	svc := newTestService(orders, newFakeTables())

	_, err := svc.SetItemStatus(context.Background(), 10, 999, entity.ItemReady)
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindNotFound {
		t.Fatalf("kind = %s, want not_found", kind)
	}
}

func TestSetItemStatusInvalidStatus(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPending))
	svc := newTestService(orders, newFakeTables())

	_, err := svc.SetItemStatus(context.Background(), 10, 30, "burnt")
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindBadRequest {
		t.Fatalf("kind = %s, want bad_request", kind)
	}
}

func TestSetAllItemsStatus(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPending, entity.ItemPreparing))
	svc := newTestService(orders, newFakeTables())

	resp, err := svc.SetAllItemsStatus(context.Background(), 10, entity.ItemSoldout)
	if err != nil {
		t.Fatalf("SetAllItemsStatus: %v", err)
	}
	if resp.Status != entity.OrderSoldout {
		t.Fatalf("status = %s, want soldout", resp.Status)
	}
	for _, item := range resp.Items {
		if item.Status != entity.ItemSoldout {
			t.Fatalf("item status = %s, want soldout", item.Status)
		}
	}
}

func TestStartPreparingKeepsItemProgress(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPending, entity.ItemReady))
	svc := newTestService(orders, newFakeTables())

	resp, err := svc.StartPreparing(context.Background(), 10)
	if err != nil {
		t.Fatalf("StartPreparing: %v", err)
	}
	if resp.Status != entity.OrderPreparing {
		t.Fatalf("status = %s, want preparing", resp.Status)
	}
	if resp.Items[0].Status != entity.ItemPreparing {
		t.Fatalf("pending item = %s, want preparing", resp.Items[0].Status)
	}
	if resp.Items[1].Status != entity.ItemReady {
		t.Fatalf("ready item = %s, must keep its progress", resp.Items[1].Status)
	}
}

func TestMarkReadyIdempotent(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPending, entity.ItemPreparing))
	svc := newTestService(orders, newFakeTables())

	first, err := svc.MarkReady(context.Background(), 10)
	if err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	second, err := svc.MarkReady(context.Background(), 10)
	if err != nil {
		t.Fatalf("MarkReady again: %v", err)
	}
	if first.Status != entity.OrderReady || second.Status != entity.OrderReady {
		t.Fatalf("statuses = %s / %s, want ready / ready", first.Status, second.Status)
	}
	for _, item := range second.Items {
		if item.Status != entity.ItemReady {
			t.Fatalf("item status = %s, want ready", item.Status)
		}
	}
}

func TestMutateRejectsTerminalOrder(t *testing.T) {
	order := openOrder(entity.ItemReady)
	order.Status = entity.OrderPaid
	orders := newFakeOrders(order)
	svc := newTestService(orders, newFakeTables())

	_, err := svc.MarkReady(context.Background(), 10)
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindConflict {
		t.Fatalf("kind = %s, want conflict", kind)
	}
}

func TestMutateRetriesOnVersionConflict(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPending))
	orders.conflicts = 2
	svc := newTestService(orders, newFakeTables())

	resp, err := svc.StartPreparing(context.Background(), 10)
	if err != nil {
		t.Fatalf("StartPreparing: %v", err)
	}
	if resp.Status != entity.OrderPreparing {
		t.Fatalf("status = %s, want preparing", resp.Status)
	}
}

func TestMutateGivesUpAfterRepeatedConflicts(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPending))
	orders.conflicts = maxUpdateAttempts
	svc := newTestService(orders, newFakeTables())

	_, err := svc.StartPreparing(context.Background(), 10)
	if kind := errorbank.From(err).Kind(); kind != errorbank.KindConflict {
		t.Fatalf("kind = %s, want conflict", kind)
	}
}

func TestOpenByTable(t *testing.T) {
	orders := newFakeOrders(openOrder(entity.ItemPending))
	svc := newTestService(orders, newFakeTables())

	resp, err := svc.OpenByTable(context.Background(), 2)
	if err != nil {
		t.Fatalf("OpenByTable: %v", err)
	}
	if resp.ID != 10 {
		t.Fatalf("id = %d, want 10", resp.ID)
	}

	if _, err := svc.OpenByTable(context.Background(), 9); err == nil {
		t.Fatal("expected not found for empty table")
	}
}

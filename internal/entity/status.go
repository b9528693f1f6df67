package entity

// ItemStatus tracks a single line item through the kitchen.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	// ItemSoldout means served and closed out, not out of stock. The value is
	// kept verbatim for compatibility with existing clients.
	ItemSoldout ItemStatus = "soldout"
)

// Valid reports whether the status is one of the known item statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemPreparing, ItemReady, ItemSoldout:
		return true
	}
	return false
}

// OrderStatus is the aggregate lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderSoldout   OrderStatus = "soldout"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether the status is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady, OrderSoldout, OrderPaid, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status mutation is accepted.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderCancelled
}

// TableStatus is the occupancy state of a dining table.
type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
)

// Valid reports whether the status is one of the known table statuses.
func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved:
		return true
	}
	return false
}

// Reduce derives the aggregate order status from per-item statuses, first
// match wins: all soldout, all ready-or-soldout, any preparing, all pending.
// Mixed sets outside those rules (e.g. pending alongside ready with nothing
// preparing) match no rule; Reduce then returns ok=false and callers keep the
// current aggregate status.
func Reduce(statuses []ItemStatus) (OrderStatus, bool) {
	if len(statuses) == 0 {
		return "", false
	}

	allSoldout := true
	allReadyOrSoldout := true
	anyPreparing := false
	allPending := true
	for _, s := range statuses {
		if s != ItemSoldout {
			allSoldout = false
		}
		if s != ItemReady && s != ItemSoldout {
			allReadyOrSoldout = false
		}
		if s == ItemPreparing {
			anyPreparing = true
		}
		if s != ItemPending {
			allPending = false
		}
	}

	switch {
	case allSoldout:
		return OrderSoldout, true
	case allReadyOrSoldout:
		return OrderReady, true
	case anyPreparing:
		return OrderPreparing, true
	case allPending:
		return OrderPending, true
	}
	return "", false
}

package entity

import "testing"

func TestReduceUniform(t *testing.T) {
	pairs := []struct {
		item ItemStatus
		want OrderStatus
	}{
		{ItemPending, OrderPending},
		{ItemPreparing, OrderPreparing},
		{ItemReady, OrderReady},
		{ItemSoldout, OrderSoldout},
	}
	for _, p := range pairs {
		statuses := []ItemStatus{p.item, p.item, p.item}
		got, ok := Reduce(statuses)
		if !ok {
			t.Fatalf("Reduce(uniform %s): no rule fired", p.item)
		}
		if got != p.want {
			t.Fatalf("Reduce(uniform %s) = %s, want %s", p.item, got, p.want)
		}
	}
}

func TestReducePreparingWins(t *testing.T) {
	sets := [][]ItemStatus{
		{ItemPending, ItemPreparing},
		{ItemPreparing, ItemReady},
		{ItemPending, ItemPreparing, ItemReady, ItemSoldout},
	}
	for _, statuses := range sets {
		got, ok := Reduce(statuses)
		if !ok || got != OrderPreparing {
			t.Fatalf("Reduce(%v) = %s ok=%v, want preparing", statuses, got, ok)
		}
	}
}

func TestReduceReadyAbsorbsSoldout(t *testing.T) {
	got, ok := Reduce([]ItemStatus{ItemReady, ItemSoldout, ItemReady})
	if !ok || got != OrderReady {
		t.Fatalf("Reduce(ready+soldout) = %s ok=%v, want ready", got, ok)
	}
}

func TestReduceUncoveredMix(t *testing.T) {
	// pending beside ready with nothing preparing matches no rule; callers
	// keep the existing aggregate status.
	if got, ok := Reduce([]ItemStatus{ItemPending, ItemReady}); ok {
		t.Fatalf("Reduce(pending+ready) fired rule with %s, want no match", got)
	}
	if _, ok := Reduce(nil); ok {
		t.Fatalf("Reduce(empty) fired a rule, want no match")
	}
}

func TestReduceIdempotent(t *testing.T) {
	statuses := []ItemStatus{ItemReady, ItemSoldout}
	first, ok1 := Reduce(statuses)
	second, ok2 := Reduce(statuses)
	if first != second || ok1 != ok2 {
		t.Fatalf("Reduce not idempotent: (%s,%v) then (%s,%v)", first, ok1, second, ok2)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderPreparing, OrderReady, OrderSoldout} {
		if s.Terminal() {
			t.Fatalf("%s reported terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderPaid, OrderCancelled} {
		if !s.Terminal() {
			t.Fatalf("%s not reported terminal", s)
		}
	}
}

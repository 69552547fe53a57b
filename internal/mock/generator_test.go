package mock

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

// recordingEmitter collects broadcasts.
type recordingEmitter struct {
	mu     sync.Mutex
	events []string
	orders []client.Order
}

func (e *recordingEmitter) Broadcast(event string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	if len(args) == 1 {
		if o, ok := args[0].(client.Order); ok {
			e.orders = append(e.orders, o)
		}
	}
}

func (e *recordingEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func seededStore() *Store {
	s := NewStore()
	s.Seed()
	return s
}

func TestGenerator_PlaceOrderStoresAndBroadcasts(t *testing.T) {
	store := seededStore()
	em := &recordingEmitter{}
	gen := NewGenerator(store, em, 0, 7, discardLogger())

	o := gen.PlaceOrder()

	if o.ID == "" || o.PlacedAt.IsZero() {
		t.Fatalf("PlaceOrder() returned order without id or timestamp: %+v", o)
	}
	if len(em.events) != 1 || em.events[0] != client.EventNewOrder {
		t.Fatalf("broadcast events = %v, want [%s]", em.events, client.EventNewOrder)
	}
	if em.orders[0].ID != o.ID {
		t.Errorf("broadcast order id = %s, want %s", em.orders[0].ID, o.ID)
	}
	today := store.TodayOrders()
	if len(today) != 1 || today[0].ID != o.ID {
		t.Errorf("TodayOrders() = %v, want the placed order", today)
	}
}

func TestGenerator_OrderTotalsMatchItems(t *testing.T) {
	gen := NewGenerator(seededStore(), nil, 0, 11, discardLogger())

	for i := 0; i < 50; i++ {
		o := gen.PlaceOrder()
		if len(o.Items) == 0 || len(o.Items) > 3 {
			t.Fatalf("order %d has %d items, want 1-3", i, len(o.Items))
		}
		var sum float64
		for _, it := range o.Items {
			if it.Quantity < 1 || it.Quantity > 3 {
				t.Errorf("order %d item quantity %d out of range", i, it.Quantity)
			}
			sum += it.UnitPrice() * float64(it.Quantity)
		}
		if math.Abs(sum-o.TotalAmount) > 0.001 {
			t.Errorf("order %d total %.2f, items sum to %.2f", i, o.TotalAmount, sum)
		}
		if o.CustomerName() == "N/A" {
			t.Errorf("order %d has no customer name", i)
		}
		if o.PaymentMethod == "COD" && o.PaymentStatus == client.PaymentPaid {
			t.Errorf("order %d is COD but already paid", i)
		}
	}
}

func TestGenerator_SameSeedSameOrders(t *testing.T) {
	a := NewGenerator(seededStore(), nil, 0, 99, discardLogger())
	b := NewGenerator(seededStore(), nil, 0, 99, discardLogger())

	for i := 0; i < 5; i++ {
		oa, ob := a.PlaceOrder(), b.PlaceOrder()
		if oa.TotalAmount != ob.TotalAmount || oa.CustomerName() != ob.CustomerName() {
			t.Fatalf("order %d differs: %v vs %v", i, oa, ob)
		}
	}
}

func TestGenerator_StartRunsUntilCancelled(t *testing.T) {
	em := &recordingEmitter{}
	gen := NewGenerator(seededStore(), em, 10*time.Millisecond, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	gen.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for em.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("generator placed %d orders, want at least 3", em.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	time.Sleep(30 * time.Millisecond)
	n := em.count()
	time.Sleep(50 * time.Millisecond)
	if em.count() != n {
		t.Errorf("generator kept placing orders after cancel: %d -> %d", n, em.count())
	}
}

func TestGenerator_ZeroIntervalDisabled(t *testing.T) {
	em := &recordingEmitter{}
	gen := NewGenerator(seededStore(), em, 0, 1, discardLogger())
	gen.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	if em.count() != 0 {
		t.Errorf("disabled generator placed %d orders", em.count())
	}
}

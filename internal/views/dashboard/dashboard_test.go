package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

func sampleOrders(n int) []client.Order {
	base := time.Date(2026, 5, 2, 12, 0, 0, 0, time.Local)
	out := make([]client.Order, n)
	for i := range out {
		out[i] = client.Order{
			ID:            "order-" + string(rune('a'+i)),
			Customer:      &client.Customer{Name: "Customer " + string(rune('A'+i))},
			TotalAmount:   100,
			PaymentStatus: client.PaymentPaid,
			PlacedAt:      base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestLoadingAndEmptyStates(t *testing.T) {
	m := New()
	m.Width = 100
	if !strings.Contains(m.View(), "Loading orders") {
		t.Error("new dashboard should show the loading state")
	}

	m.SetOrders(nil)
	v := m.View()
	if !strings.Contains(v, "No orders yet today.") || !strings.Contains(v, "appear here automatically") {
		t.Errorf("empty dashboard view missing placeholder:\n%s", v)
	}
	if _, ok := m.Selected(); ok {
		t.Error("empty dashboard should have no selection")
	}
}

func TestSelectionWrapsAndClamps(t *testing.T) {
	m := New()
	m.Height = 40
	m.SetOrders(sampleOrders(3))

	m.Prev()
	if m.Cursor() != 2 {
		t.Errorf("Prev() from top = %d, want 2", m.Cursor())
	}
	m.Next()
	if m.Cursor() != 0 {
		t.Errorf("Next() from bottom = %d, want 0", m.Cursor())
	}

	m.Prev()
	m.SetOrders(sampleOrders(1))
	if m.Cursor() != 0 {
		t.Errorf("cursor after shrink = %d, want 0", m.Cursor())
	}
}

func TestViewShowsStatsAndOrders(t *testing.T) {
	m := New()
	m.Width, m.Height = 120, 40
	m.SetOrders(sampleOrders(2))

	v := m.View()
	for _, want := range []string{"Orders: 2", "Revenue: ₹200.00", "Paid: 2", "Pending: 2", "Customer A", "Customer B"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLongListScrolls(t *testing.T) {
	m := New()
	m.Width, m.Height = 120, 13 // three rows
	m.SetOrders(sampleOrders(6))

	if v := m.View(); !strings.Contains(v, "↓ 3 more") {
		t.Errorf("expected overflow marker, got:\n%s", v)
	}
	for i := 0; i < 4; i++ {
		m.Next()
	}
	if !strings.Contains(m.View(), "Customer E") {
		t.Error("selection should scroll into view")
	}
}

package orders

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func order(id string, minutes int) client.Order {
	return client.Order{ID: id, PlacedAt: base.Add(time.Duration(minutes) * time.Minute)}
}

func ids(orders []client.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestReplaceSortsNewestFirst(t *testing.T) {
	f := NewFeed()
	f.Replace([]client.Order{order("a", 1), order("b", 3), order("c", 2)})
	assert.Equal(t, []string{"b", "c", "a"}, ids(f.Orders()))
}

func TestReplaceKeepsServerOrderForTies(t *testing.T) {
	f := NewFeed()
	f.Replace([]client.Order{order("x", 5), order("y", 5), order("z", 5)})
	assert.Equal(t, []string{"x", "y", "z"}, ids(f.Orders()))
}

func TestPrependAfterBaseline(t *testing.T) {
	f := NewFeed()
	f.Replace([]client.Order{order("e1", 1), order("e2", 2)})
	f.Prepend(order("e3", 3))
	f.Prepend(order("e4", 4))
	assert.Equal(t, []string{"e4", "e3", "e2", "e1"}, ids(f.Orders()))
	assert.Equal(t, 4, f.Len())
}

func TestPrependDoesNotDeduplicate(t *testing.T) {
	f := NewFeed()
	f.Prepend(order("dup", 1))
	f.Prepend(order("dup", 1))
	assert.Equal(t, 2, f.Len())
}

func TestResyncReplacesPushedOrders(t *testing.T) {
	f := NewFeed()
	f.Replace([]client.Order{order("e1", 1)})
	f.Prepend(order("e2", 2))

	// e3 and e4 were placed while disconnected.
	f.Replace([]client.Order{order("e1", 1), order("e2", 2), order("e3", 3), order("e4", 4)})
	assert.Equal(t, []string{"e4", "e3", "e2", "e1"}, ids(f.Orders()))
}

func TestOrdersReturnsCopy(t *testing.T) {
	f := NewFeed()
	f.Replace([]client.Order{order("a", 1)})
	got := f.Orders()
	got[0].ID = "mutated"
	assert.Equal(t, "a", f.Orders()[0].ID)
}

func TestSummary(t *testing.T) {
	f := NewFeed()
	f.Replace([]client.Order{
		{ID: "1", TotalAmount: 100, PaymentStatus: client.PaymentPaid},
		{ID: "2", TotalAmount: 50.5, OrderStatus: client.OrderDelivered, PaymentStatus: client.PaymentPaid},
		{ID: "3", TotalAmount: 20, OrderStatus: client.OrderCancelled},
	})
	s := f.Summary()
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 170.5, s.Revenue, 0.001)
	assert.Equal(t, 2, s.Paid)
	assert.Equal(t, map[string]int{
		client.OrderPending:   1,
		client.OrderDelivered: 1,
		client.OrderCancelled: 1,
	}, s.ByStatus)
}

func TestMarkdown(t *testing.T) {
	orders := []client.Order{{
		ID:              "65f0c0ffee1234567890",
		PlacedAt:        base,
		ShippingAddress: &client.Customer{Name: "Ravi"},
		PaymentMethod:   "COD",
		Items: []client.OrderItem{
			{Product: &client.ItemRef{Name: "Paneer Tikka", Price: 220}, Quantity: 1},
			{
				Product:         &client.ItemRef{Name: "Lassi", Price: 60},
				SelectedVariant: &client.ItemRef{Name: "Mango Lassi", Price: 80},
				Quantity:        2,
			},
		},
		TotalAmount: 380,
	}}

	md := Markdown(orders, base)
	assert.Contains(t, md, "# Today's Orders - 14 Mar 2026")
	assert.Contains(t, md, "## Ravi `Pending`")
	assert.Contains(t, md, "**Order ID:** 65f0c0ffee...")
	assert.Contains(t, md, "**Payment:** COD (N/A)")
	assert.Contains(t, md, "- Paneer Tikka - 1 × ₹220.00")
	assert.Contains(t, md, "- Mango Lassi - 2 × ₹80.00")
	assert.Contains(t, md, "**Total: ₹380.00**")
}

func TestMarkdownEmpty(t *testing.T) {
	md := Markdown(nil, base)
	assert.Contains(t, md, "No orders yet today.")
}

func TestMarkdownFallbacks(t *testing.T) {
	md := Markdown([]client.Order{{}}, base)
	assert.Contains(t, md, "## N/A `Pending`")
	assert.Contains(t, md, "**Order ID:** N/A")
	assert.Contains(t, md, "**Time:** N/A")
	assert.Contains(t, md, "- N/A\n")
	assert.Contains(t, md, "**Total: ₹0.00**")
}

func TestRender(t *testing.T) {
	out, err := Render([]client.Order{{ID: "o1", ShippingAddress: &client.Customer{Name: "Asha"}, TotalAmount: 99}}, base, 60)
	require.NoError(t, err)
	assert.Contains(t, out, "Orders")
	assert.Contains(t, out, "Asha")
	assert.False(t, strings.Contains(out, "\x1b["), "notty style has no escape sequences")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "N/A", ShortID(""))
	assert.Equal(t, "abc", ShortID("abc"))
	assert.Equal(t, "0123456789...", ShortID("0123456789abc"))
}

// Package orders keeps the live list of today's orders and renders the
// printable report.
package orders

import (
	"sort"
	"sync"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

// Summary aggregates the orders currently in a feed.
type Summary struct {
	Count    int
	Revenue  float64
	Paid     int
	ByStatus map[string]int
}

// Feed is the newest-first order list shown on the dashboard.
type Feed struct {
	mu     sync.RWMutex
	orders []client.Order
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Replace discards the current list in favour of a baseline fetched from the
// server. Orders are sorted newest first; equal timestamps keep server order.
func (f *Feed) Replace(orders []client.Order) {
	next := make([]client.Order, len(orders))
	copy(next, orders)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].PlacedAt.After(next[j].PlacedAt)
	})

	f.mu.Lock()
	f.orders = next
	f.mu.Unlock()
}

// Prepend adds a pushed order at the top. Pushed orders are not deduplicated
// against the list.
func (f *Feed) Prepend(o client.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := make([]client.Order, 0, len(f.orders)+1)
	next = append(next, o)
	f.orders = append(next, f.orders...)
}

// Orders returns a copy of the list.
func (f *Feed) Orders() []client.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]client.Order, len(f.orders))
	copy(out, f.orders)
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.orders)
}

// Summary totals the feed.
func (f *Feed) Summary() Summary {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Summarize(f.orders)
}

// Summarize totals orders.
func Summarize(orders []client.Order) Summary {
	s := Summary{Count: len(orders), ByStatus: make(map[string]int)}
	for _, o := range orders {
		s.Revenue += o.TotalAmount
		if o.PaymentStatus == client.PaymentPaid {
			s.Paid++
		}
		s.ByStatus[o.Status()]++
	}
	return s
}

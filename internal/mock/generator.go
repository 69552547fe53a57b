package mock

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

// Emitter delivers a realtime event to connected admins.
type Emitter interface {
	Broadcast(event string, args ...any)
}

var customers = []client.Customer{
	{Name: "Ravi Kumar", Phone: "98450 12345"},
	{Name: "Asha Nair", Phone: "99001 22334"},
	{Name: "Imran Sheikh", Phone: "97311 55667"},
	{Name: "Priya Menon", Phone: "90080 77889"},
	{Name: "Karthik Rao", Phone: "96633 44556"},
	{Name: "Fatima Begum", Phone: "94480 99001"},
}

var paymentMethods = []string{"COD", "UPI", "Card"}

// Generator places random orders from the seeded menu and announces them.
type Generator struct {
	store    *Store
	emitter  Emitter
	interval time.Duration
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A zero seed uses the clock.
func NewGenerator(store *Store, emitter Emitter, interval time.Duration, seed int64, logger *slog.Logger) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		store:    store,
		emitter:  emitter,
		interval: interval,
		logger:   logger.With("component", "generator"),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Start places an order every interval until ctx is done. A non-positive
// interval disables the generator.
func (g *Generator) Start(ctx context.Context) {
	if g.interval <= 0 {
		return
	}
	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.PlaceOrder()
		}
	}
}

// PlaceOrder stores a random order and broadcasts it as newOrder.
func (g *Generator) PlaceOrder() client.Order {
	o := g.store.AddOrder(g.randomOrder())
	g.logger.Info("order placed", "order_id", o.ID, "total", o.TotalAmount)
	if g.emitter != nil {
		g.emitter.Broadcast(client.EventNewOrder, o)
	}
	return o
}

func (g *Generator) randomOrder() client.Order {
	products, _ := g.store.Products(ListQuery{Page: 1, Limit: math.MaxInt32})

	g.mu.Lock()
	defer g.mu.Unlock()

	cust := customers[g.rng.Intn(len(customers))]
	o := client.Order{
		Customer:        &client.Customer{Name: cust.Name, Phone: cust.Phone},
		ShippingAddress: &client.Customer{Name: cust.Name, Phone: cust.Phone},
		PaymentMethod:   paymentMethods[g.rng.Intn(len(paymentMethods))],
		PaymentStatus:   "Pending",
		OrderStatus:     client.OrderPending,
	}
	if o.PaymentMethod != "COD" {
		o.PaymentStatus = client.PaymentPaid
	}

	if len(products) == 0 {
		return o
	}
	lines := 1 + g.rng.Intn(3)
	for i := 0; i < lines; i++ {
		p := products[g.rng.Intn(len(products))]
		item := client.OrderItem{
			Product:  &client.ItemRef{Name: p.Name, Price: p.Price},
			Quantity: 1 + g.rng.Intn(3),
		}
		if len(p.Variants) > 0 {
			v := p.Variants[g.rng.Intn(len(p.Variants))]
			item.SelectedVariant = &client.ItemRef{Name: v.Name, Price: v.Price}
		}
		o.Items = append(o.Items, item)
		o.TotalAmount += item.UnitPrice() * float64(item.Quantity)
	}
	return o
}

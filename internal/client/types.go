// Package client provides the HTTP and realtime clients for the GK Store backend.
// Types mirror the backend wire format without importing backend packages.
package client

import (
	"strings"
	"time"
)

// User is the authenticated admin identity returned by the identity check.
type User struct {
	ID    string `json:"_id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Role  string `json:"role" yaml:"role"`
}

// IsAdmin reports whether the user may use the admin console.
func (u *User) IsAdmin() bool {
	return u != nil && strings.EqualFold(u.Role, "admin")
}

// DisplayName returns the best human-readable label for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Credentials are submitted once by Login and never persisted.
type Credentials struct {
	Identifier string // email or username
	Secret     string
}

// loginBody picks the identifier field the backend expects.
func (c Credentials) loginBody() map[string]string {
	if strings.Contains(c.Identifier, "@") {
		return map[string]string{"email": c.Identifier, "password": c.Secret}
	}
	return map[string]string{"username": c.Identifier, "password": c.Secret}
}

// Payment and order statuses as reported by the backend.
const (
	PaymentPaid = "Paid"

	OrderPending   = "Pending"
	OrderDelivered = "Delivered"
	OrderCancelled = "Cancelled"
)

// Order is a placed order, both as pushed by the newOrder event and as listed by the
// today's-orders report.
type Order struct {
	ID              string      `json:"_id"`
	PlacedAt        time.Time   `json:"placedAt"`
	Customer        *Customer   `json:"customer,omitempty"`
	ShippingAddress *Customer   `json:"shippingAddress,omitempty"`
	Items           []OrderItem `json:"items"`
	TotalAmount     float64     `json:"totalAmount"`
	PaymentMethod   string      `json:"paymentMethod,omitempty"`
	PaymentStatus   string      `json:"paymentStatus"`
	OrderStatus     string      `json:"orderStatus"`
}

// Customer is the buyer as attached to an order.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// CustomerName returns the buyer name, preferring the shipping address.
func (o Order) CustomerName() string {
	if o.ShippingAddress != nil && o.ShippingAddress.Name != "" {
		return o.ShippingAddress.Name
	}
	if o.Customer != nil && o.Customer.Name != "" {
		return o.Customer.Name
	}
	return "N/A"
}

// Status returns the order status, defaulting to Pending.
func (o Order) Status() string {
	if o.OrderStatus == "" {
		return OrderPending
	}
	return o.OrderStatus
}

// OrderItem is one line of an order.
type OrderItem struct {
	Product         *ItemRef `json:"food,omitempty"`
	SelectedVariant *ItemRef `json:"selectedVariant,omitempty"`
	Quantity        int      `json:"quantity"`
}

// ItemRef names a product or variant together with its unit price.
type ItemRef struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Label returns the variant name, then the product name.
func (i OrderItem) Label() string {
	if i.SelectedVariant != nil && i.SelectedVariant.Name != "" {
		return i.SelectedVariant.Name
	}
	if i.Product != nil && i.Product.Name != "" {
		return i.Product.Name
	}
	return "Unknown"
}

// UnitPrice returns the variant price, then the product price.
func (i OrderItem) UnitPrice() float64 {
	if i.SelectedVariant != nil && i.SelectedVariant.Price != 0 {
		return i.SelectedVariant.Price
	}
	if i.Product != nil {
		return i.Product.Price
	}
	return 0
}

// --- Catalog types ---

// Product is an admin catalog entry.
type Product struct {
	ID           string           `json:"_id"`
	Name         string           `json:"name"`
	Price        float64          `json:"price"`
	Category     *CategoryRef     `json:"category,omitempty"`
	Variants     []ProductVariant `json:"variants,omitempty"`
	Images       []string         `json:"pimages,omitempty"`
	Status       string           `json:"status"`
	IsFeatured   bool             `json:"isFeatured"`
	IsHotProduct bool             `json:"isHotProduct"`
	IsBestSeller bool             `json:"isBestSeller"`
}

// ProductVariant is a purchasable variant of a product.
type ProductVariant struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CategoryRef is the embedded category reference on a product.
type CategoryRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Category is a product category.
type Category struct {
	ID             string       `json:"_id"`
	Name           string       `json:"name"`
	Type           string       `json:"type,omitempty"`
	Image          string       `json:"image,omitempty"`
	ParentCategory *CategoryRef `json:"parentCategory,omitempty"`
	DisplayOrder   int          `json:"displayOrder"`
	IsActive       bool         `json:"isActive"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListParams are the common listing query parameters.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	SortField string
	SortOrder string
}

// ProductPage is the response of the admin product listing.
type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// CategoryPage is the response of the category listing.
type CategoryPage struct {
	Categories []Category `json:"categories"`
	Pagination Pagination `json:"pagination"`
}

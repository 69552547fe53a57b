// Package mock is an in-memory GK Store backend for development and
// end-to-end tests. It speaks the same REST and Socket.IO protocol as the
// production server.
package mock

import (
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("not found")
)

// User is a stored account.
type User struct {
	ID           string
	Name         string
	Email        string
	Username     string
	Role         string
	PasswordHash []byte
}

// Public returns the user as sent to clients.
func (u *User) Public() client.User {
	return client.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Store holds the mock backend state.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*User
	orders     []client.Order
	products   []client.Product
	categories []client.Category
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]*User),
		now:   time.Now,
	}
}

// newID returns a 24-hex-digit id shaped like the production ids.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// AddUser stores a user with a bcrypt-hashed password.
func (s *Store) AddUser(name, email, username, role, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           newID(),
		Name:         name,
		Email:        strings.ToLower(email),
		Username:     username,
		Role:         role,
		PasswordHash: hash,
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return u, nil
}

// Authenticate finds the user by email or username and checks the password.
func (s *Store) Authenticate(identifier, password string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	s.mu.RLock()
	var found *User
	for _, u := range s.users {
		if strings.EqualFold(u.Email, identifier) || (u.Username != "" && u.Username == identifier) {
			found = u
			break
		}
	}
	s.mu.RUnlock()
	if found == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(found.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return found, nil
}

func (s *Store) User(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// --- Orders ---

// AddOrder records o, assigning an id and timestamp when missing.
func (s *Store) AddOrder(o client.Order) client.Order {
	if o.ID == "" {
		o.ID = newID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.PlacedAt.IsZero() {
		o.PlacedAt = s.now()
	}
	s.orders = append(s.orders, o)
	return o
}

// TodayOrders returns the orders placed since local midnight, newest first.
func (s *Store) TodayOrders() []client.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	out := make([]client.Order, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		if !s.orders[i].PlacedAt.Before(midnight) {
			out = append(out, s.orders[i])
		}
	}
	return out
}

// --- Catalog ---

// ListQuery is a parsed listing query.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	SortField string
	Desc      bool
}

// ParseListQuery reads page, limit, search, sortField and sortOrder.
func ParseListQuery(v url.Values) ListQuery {
	q := ListQuery{Page: 1, Limit: 10, Search: strings.TrimSpace(v.Get("search")), SortField: v.Get("sortField")}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(v.Get("limit")); err == nil && n > 0 {
		q.Limit = n
	}
	q.Desc = strings.EqualFold(v.Get("sortOrder"), "desc")
	return q
}

func paginate(total int, q ListQuery) (start, end int, p client.Pagination) {
	p = client.Pagination{Page: q.Page, Limit: q.Limit, Total: total}
	p.TotalPages = (total + q.Limit - 1) / q.Limit
	start = (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end = start + q.Limit
	if end > total {
		end = total
	}
	return start, end, p
}

func matches(name, search string) bool {
	return search == "" || strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

func (s *Store) AddProduct(p client.Product) client.Product {
	if p.ID == "" {
		p.ID = newID()
	}
	s.mu.Lock()
	s.products = append(s.products, p)
	s.mu.Unlock()
	return p
}

// Products lists products matching q.
func (s *Store) Products(q ListQuery) ([]client.Product, client.Pagination) {
	s.mu.RLock()
	list := make([]client.Product, 0, len(s.products))
	for _, p := range s.products {
		if matches(p.Name, q.Search) {
			list = append(list, p)
		}
	}
	s.mu.RUnlock()

	switch q.SortField {
	case "name":
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	case "price":
		sort.SliceStable(list, func(i, j int) bool { return list[i].Price < list[j].Price })
	}
	if q.Desc {
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
	}

	start, end, page := paginate(len(list), q)
	return list[start:end], page
}

func (s *Store) Product(id string) (client.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return client.Product{}, ErrNotFound
}

func (s *Store) DeleteProduct(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) AddCategory(c client.Category) client.Category {
	if c.ID == "" {
		c.ID = newID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.categories = append(s.categories, c)
	return c
}

// Categories lists categories matching q, by display order unless a sort
// field is given.
func (s *Store) Categories(q ListQuery) ([]client.Category, client.Pagination) {
	s.mu.RLock()
	list := make([]client.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if matches(c.Name, q.Search) {
			list = append(list, c)
		}
	}
	s.mu.RUnlock()

	switch q.SortField {
	case "name":
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	case "createdAt":
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	default:
		sort.SliceStable(list, func(i, j int) bool { return list[i].DisplayOrder < list[j].DisplayOrder })
	}
	if q.Desc {
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
	}

	start, end, page := paginate(len(list), q)
	return list[start:end], page
}

func (s *Store) Category(id string) (client.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return client.Category{}, ErrNotFound
}

// MainCategories returns the active top-level categories.
func (s *Store) MainCategories() []client.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []client.Category{}
	for _, c := range s.categories {
		if c.ParentCategory == nil && c.IsActive {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}

func (s *Store) DeleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Seed fills the catalog with a small restaurant menu.
func (s *Store) Seed() {
	type dish struct {
		name     string
		price    float64
		variants []client.ProductVariant
	}
	menu := []struct {
		category string
		dishes   []dish
	}{
		{"Starters", []dish{
			{name: "Paneer Tikka", price: 220},
			{name: "Veg Spring Roll", price: 160},
			{name: "Chicken 65", price: 240},
		}},
		{"Main Course", []dish{
			{name: "Dal Makhani", price: 210},
			{name: "Butter Chicken", price: 320, variants: []client.ProductVariant{{Name: "Half", Price: 180}, {Name: "Full", Price: 320}}},
			{name: "Veg Biryani", price: 250},
		}},
		{"Beverages", []dish{
			{name: "Lassi", price: 60, variants: []client.ProductVariant{{Name: "Sweet Lassi", Price: 60}, {Name: "Mango Lassi", Price: 80}}},
			{name: "Masala Chai", price: 30},
		}},
	}

	ids := make(map[string]string, len(menu))
	for i, group := range menu {
		cat := s.AddCategory(client.Category{
			Name:         group.category,
			Type:         "food",
			DisplayOrder: i + 1,
			IsActive:     true,
		})
		ids[cat.Name] = cat.ID
		for j, d := range group.dishes {
			s.AddProduct(client.Product{
				Name:         d.name,
				Price:        d.price,
				Category:     &client.CategoryRef{ID: cat.ID, Name: cat.Name},
				Variants:     d.variants,
				Status:       "active",
				IsFeatured:   j == 0,
				IsBestSeller: j == 1,
			})
		}
	}
	s.AddCategory(client.Category{
		Name:           "Combos",
		Type:           "food",
		DisplayOrder:   len(menu) + 1,
		IsActive:       true,
		ParentCategory: &client.CategoryRef{ID: ids["Main Course"], Name: "Main Course"},
	})
}

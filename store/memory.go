package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/patriocele/fragrance-api/models"
)

// Memory is an in-memory Store used by tests and local development. A single
// mutex serialises all access.
type Memory struct {
	mu sync.Mutex

	users    map[string]models.User
	products map[uint]models.Product
	carts    map[string][]models.CartItem
	orders   map[uint]models.Order
	items    map[uint][]models.OrderItem

	nextProductID uint
	nextOrderID   uint
	nextLineID    uint
	nextItemID    uint
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]models.User),
		products: make(map[uint]models.Product),
		carts:    make(map[string][]models.CartItem),
		orders:   make(map[uint]models.Order),
		items:    make(map[uint][]models.OrderItem),
	}
}

// InTx runs fn directly against the store. There is no rollback; the order
// writer compensates (auto-cancel) when a later write fails.
func (m *Memory) InTx(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

// -------- Users --------

func (m *Memory) UserByID(ctx context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) UpsertUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.users[u.ID] = *u
	return nil
}

// -------- Products --------

func (m *Memory) Products(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ProductByID(ctx context.Context, id uint) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ProductsByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *Memory) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProductID++
	p.ID = m.nextProductID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = *p
	return nil
}

func (m *Memory) UpdateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	m.products[p.ID] = *p
	return nil
}

func (m *Memory) DecrementStock(ctx context.Context, productID uint, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return ErrNotFound
	}
	if p.StockQuantity < qty {
		return ErrInsufficientStock
	}
	p.StockQuantity -= qty
	m.products[productID] = p
	return nil
}

// -------- Carts --------

func (m *Memory) CartLines(ctx context.Context, userID string) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.carts[userID]
	out := make([]models.CartItem, len(lines))
	copy(out, lines)
	return out, nil
}

func (m *Memory) UpsertCartLine(ctx context.Context, line *models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	line.AddedAt = time.Now()
	lines := m.carts[line.UserID]
	for i, l := range lines {
		if l.ProductID == line.ProductID && l.SizeVariant == line.SizeVariant {
			line.ID = l.ID
			lines[i] = *line
			return nil
		}
	}
	m.nextLineID++
	line.ID = m.nextLineID
	m.carts[line.UserID] = append(lines, *line)
	return nil
}

func (m *Memory) DeleteCartLine(ctx context.Context, userID string, productID uint, sizeVariant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.carts[userID]
	for i, l := range lines {
		if l.ProductID == productID && l.SizeVariant == sizeVariant {
			m.carts[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ClearCart(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

// -------- Orders --------

func (m *Memory) CreateOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrderID++
	o.ID = m.nextOrderID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	stored := *o
	stored.Items = nil
	m.orders[o.ID] = stored
	return nil
}

func (m *Memory) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		m.nextItemID++
		items[i].ID = m.nextItemID
		m.items[items[i].OrderID] = append(m.items[items[i].OrderID], items[i])
	}
	return nil
}

func (m *Memory) OrderByID(ctx context.Context, id uint) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	o.Items = append([]models.OrderItem(nil), m.items[id]...)
	return o, nil
}

func (m *Memory) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for id, o := range m.orders {
		if o.UserID == userID {
			o.Items = append([]models.OrderItem(nil), m.items[id]...)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Orders(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, 0, len(m.orders))
	for id, o := range m.orders {
		o.Items = append([]models.OrderItem(nil), m.items[id]...)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) OrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderItem(nil), m.items[orderID]...), nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	return nil
}

func (m *Memory) ApplyPaymentTransition(ctx context.Context, id uint, from models.PaymentStatus,
	status models.OrderStatus, payment models.PaymentStatus, pfPaymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.PaymentStatus != from {
		return false, nil
	}
	o.Status = status
	o.PaymentStatus = payment
	if pfPaymentID != "" {
		o.PayfastPaymentID = pfPaymentID
	}
	o.UpdatedAt = time.Now()
	m.orders[id] = o
	return true, nil
}

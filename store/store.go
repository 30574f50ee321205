package store

import (
	"context"
	"errors"

	"github.com/patriocele/fragrance-api/models"
)

var ErrNotFound = errors.New("store: not found")

// ErrInsufficientStock is returned by DecrementStock when the product's
// remaining stock cannot cover the requested quantity.
var ErrInsufficientStock = errors.New("store: insufficient stock")

// Store is the storage surface the lifecycle services are built against.
// Components receive it explicitly; there is no shared global handle.
type Store interface {
	Users
	Products
	Carts
	Orders
}

type Users interface {
	UserByID(ctx context.Context, id string) (models.User, error)
	// UpsertUser creates the user or refreshes the mutable profile fields
	// of an existing one, keyed by id.
	UpsertUser(ctx context.Context, u *models.User) error
}

type Products interface {
	Products(ctx context.Context) ([]models.Product, error)
	ProductByID(ctx context.Context, id uint) (models.Product, error)
	ProductsByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	// DecrementStock atomically subtracts qty from the product's stock,
	// failing with ErrInsufficientStock rather than going negative.
	DecrementStock(ctx context.Context, productID uint, qty int) error
}

type Carts interface {
	CartLines(ctx context.Context, userID string) ([]models.CartItem, error)
	UpsertCartLine(ctx context.Context, line *models.CartItem) error
	DeleteCartLine(ctx context.Context, userID string, productID uint, sizeVariant string) error
	ClearCart(ctx context.Context, userID string) error
}

type Orders interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	OrderByID(ctx context.Context, id uint) (models.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	Orders(ctx context.Context) ([]models.Order, error)
	OrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus) error
	// ApplyPaymentTransition performs the webhook's read-check-then-write as
	// one atomic unit: the order's status pair and gateway payment id are
	// updated only if payment_status still equals from. Returns false when
	// the guard did not match (duplicate or late notification).
	ApplyPaymentTransition(ctx context.Context, id uint, from models.PaymentStatus,
		status models.OrderStatus, payment models.PaymentStatus, pfPaymentID string) (bool, error)
}

// TxRunner executes fn against a Store whose writes either all commit or are
// compensated by the caller on backends without multi-row transactions.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

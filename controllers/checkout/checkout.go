package checkoutControllers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/patriocele/fragrance-api/config"
	"github.com/patriocele/fragrance-api/models"
	"github.com/patriocele/fragrance-api/payfast"
	"github.com/patriocele/fragrance-api/store"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPartialOrder means the order header was written but its items were
	// not; the header has been auto-cancelled and must not be paid.
	ErrPartialOrder = errors.New("order created without items")
)

// InsufficientStockError names every cart line whose quantity exceeds the
// product's available stock. Checkout is all-or-nothing at this gate.
type InsufficientStockError struct {
	ProductIDs []uint
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for products %v", e.ProductIDs)
}

// SnapshotLine is one cart line with price and stock resolved at read time.
type SnapshotLine struct {
	ProductID   uint    `json:"product_id"`
	Name        string  `json:"name"`
	SizeVariant string  `json:"size_variant"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Stock       int     `json:"stock"`
}

// Snapshot is the user's cart at the moment of checkout.
type Snapshot struct {
	Lines    []SnapshotLine `json:"lines"`
	Subtotal float64        `json:"subtotal"`
}

// Service performs the checkout half of the order lifecycle: reading the cart
// snapshot and writing the order. It never touches stock or the cart itself;
// those are webhook-time side effects.
type Service struct {
	store   store.Store
	tx      store.TxRunner
	vatRate float64
	shipFee float64
}

func NewService(s store.Store, tx store.TxRunner, cfg config.Config) *Service {
	return &Service{store: s, tx: tx, vatRate: cfg.VATRate, shipFee: cfg.FlatShippingFee}
}

// Snapshot reads the user's cart lines joined with current product pricing
// and stock. An empty cart yields an empty snapshot, not an error. Any line
// with quantity over stock rejects the whole checkout.
func (s *Service) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	lines, err := s.store.CartLines(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if len(lines) == 0 {
		return Snapshot{}, nil
	}

	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.store.ProductsByIDs(ctx, ids)
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	var short []uint
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return Snapshot{}, fmt.Errorf("cart references unknown product %d", l.ProductID)
		}
		if l.Quantity > p.StockQuantity {
			short = append(short, p.ID)
			continue
		}
		price := p.VariantPrice(l.SizeVariant)
		snap.Lines = append(snap.Lines, SnapshotLine{
			ProductID:   p.ID,
			Name:        p.Name,
			SizeVariant: l.SizeVariant,
			Quantity:    l.Quantity,
			UnitPrice:   price,
			Stock:       p.StockQuantity,
		})
		snap.Subtotal += price * float64(l.Quantity)
	}
	if len(short) > 0 {
		return Snapshot{}, &InsufficientStockError{ProductIDs: short}
	}
	return snap, nil
}

// Total computes round(subtotal + shipping + subtotal*vat, 2). The rounded
// value is what gets persisted and later compared against gateway amounts.
func (s *Service) Total(subtotal float64) float64 {
	return round2(subtotal + s.shipFee + subtotal*s.vatRate)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PlaceOrder writes the order header and its items as one logical
// transaction. The order id is only handed back once both writes succeeded;
// if items fail on a store without rollback, the header is auto-cancelled and
// ErrPartialOrder returned.
func (s *Service) PlaceOrder(ctx context.Context, userID string, ship models.ShippingAddress, snap Snapshot) (models.Order, error) {
	if len(snap.Lines) == 0 {
		return models.Order{}, ErrEmptyCart
	}
	if ship.Country == "" {
		ship.Country = "South Africa"
	}

	order := models.Order{
		UserID:          userID,
		OrderRef:        generateOrderRef(),
		TotalAmount:     s.Total(snap.Subtotal),
		ShippingAddress: ship,
		Status:          models.OrderStatusPendingPayment,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   "payfast",
	}

	err := s.tx.InTx(ctx, func(st store.Store) error {
		if err := st.CreateOrder(ctx, &order); err != nil {
			return err
		}
		items := make([]models.OrderItem, 0, len(snap.Lines))
		for _, l := range snap.Lines {
			items = append(items, models.OrderItem{
				OrderID:     order.ID,
				ProductID:   l.ProductID,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				SizeVariant: l.SizeVariant,
			})
		}
		if err := st.CreateOrderItems(ctx, items); err != nil {
			// Header may already be visible on stores without rollback;
			// it must never remain payable.
			_ = st.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled)
			return fmt.Errorf("%w: %v", ErrPartialOrder, err)
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func generateOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

// -------- Handlers --------

type CheckoutRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Address   string `json:"address" binding:"required"`
	City      string `json:"city" binding:"required"`
	State     string `json:"state" binding:"required"`
	ZipCode   string `json:"zipCode" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
}

// CheckoutHandler validates the shipping form, takes the cart snapshot,
// writes the order and responds with the hosted payment page URL.
func CheckoutHandler(svc *Service, pf config.PayFast) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := userIDVal.(string)

		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		snap, err := svc.Snapshot(c.Request.Context(), userID)
		if err != nil {
			var stockErr *InsufficientStockError
			if errors.As(err, &stockErr) {
				c.JSON(http.StatusConflict, gin.H{
					"error":    "Some items in your cart exceed available stock",
					"products": stockErr.ProductIDs,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read cart"})
			return
		}
		if len(snap.Lines) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			return
		}

		order, err := svc.PlaceOrder(c.Request.Context(), userID, models.ShippingAddress{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Address:   req.Address,
			City:      req.City,
			State:     req.State,
			ZipCode:   req.ZipCode,
			Phone:     req.Phone,
			Country:   "South Africa",
		}, snap)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
			return
		}

		paymentURL := payfast.BuildRedirectURL(pf, payfast.PaymentRequest{
			OrderID:   order.ID,
			UserID:    userID,
			Amount:    order.TotalAmount,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			ItemName:  fmt.Sprintf("Patriocele Fragrance Order #%d", order.ID),
			ItemDesc:  fmt.Sprintf("%d perfume item(s)", len(order.Items)),
		})

		c.JSON(http.StatusOK, gin.H{
			"order_id":     order.ID,
			"order_ref":    order.OrderRef,
			"total_amount": order.TotalAmount,
			"payment_url":  paymentURL,
		})
	}
}

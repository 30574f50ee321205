package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/patriocele/fragrance-api/models"
)

// Gorm backs Store with a relational database through GORM.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// InTx runs fn inside a database transaction; a returned error rolls
// everything back.
func (g *Gorm) InTx(ctx context.Context, fn func(Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

// -------- Users --------

func (g *Gorm) UserByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := g.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

func (g *Gorm) UpsertUser(ctx context.Context, u *models.User) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "phone", "provider"}),
	}).Create(u).Error
}

// -------- Products --------

func (g *Gorm) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := g.db.WithContext(ctx).Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (g *Gorm) ProductByID(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	if err := g.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Product{}, ErrNotFound
		}
		return models.Product{}, err
	}
	return p, nil
}

func (g *Gorm) ProductsByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	var products []models.Product
	if err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (g *Gorm) CreateProduct(ctx context.Context, p *models.Product) error {
	return g.db.WithContext(ctx).Create(p).Error
}

func (g *Gorm) UpdateProduct(ctx context.Context, p *models.Product) error {
	return g.db.WithContext(ctx).Save(p).Error
}

func (g *Gorm) DecrementStock(ctx context.Context, productID uint, qty int) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if p.StockQuantity < qty {
			return ErrInsufficientStock
		}
		p.StockQuantity -= qty
		return tx.Save(&p).Error
	})
}

// -------- Carts --------

func (g *Gorm) CartLines(ctx context.Context, userID string) ([]models.CartItem, error) {
	var lines []models.CartItem
	if err := g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (g *Gorm) UpsertCartLine(ctx context.Context, line *models.CartItem) error {
	line.AddedAt = time.Now()
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "size_variant"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "added_at"}),
	}).Create(line).Error
}

func (g *Gorm) DeleteCartLine(ctx context.Context, userID string, productID uint, sizeVariant string) error {
	res := g.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND size_variant = ?", userID, productID, sizeVariant).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) ClearCart(ctx context.Context, userID string) error {
	return g.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

// -------- Orders --------

func (g *Gorm) CreateOrder(ctx context.Context, o *models.Order) error {
	return g.db.WithContext(ctx).Omit("Items").Create(o).Error
}

func (g *Gorm) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Create(&items).Error
}

func (g *Gorm) OrderByID(ctx context.Context, id uint) (models.Order, error) {
	var o models.Order
	if err := g.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrNotFound
		}
		return models.Order{}, err
	}
	return o, nil
}

func (g *Gorm) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (g *Gorm) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := g.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (g *Gorm) OrderItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := g.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (g *Gorm) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	res := g.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) ApplyPaymentTransition(ctx context.Context, id uint, from models.PaymentStatus,
	status models.OrderStatus, payment models.PaymentStatus, pfPaymentID string) (bool, error) {
	updates := map[string]any{
		"status":         status,
		"payment_status": payment,
		"updated_at":     time.Now(),
	}
	if pfPaymentID != "" {
		updates["payfast_payment_id"] = pfPaymentID
	}
	res := g.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

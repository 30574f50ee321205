package models

import "time"

// CartItem is one pending cart line, keyed directly by user. Price is NOT
// stored here; it is resolved from the product's current price/size-variant
// table when the checkout snapshot is taken.
type CartItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"uniqueIndex:idx_cart_line;not null" json:"user_id"`
	ProductID   uint      `gorm:"uniqueIndex:idx_cart_line" json:"product_id"`
	SizeVariant string    `gorm:"uniqueIndex:idx_cart_line" json:"size_variant"`
	Quantity    int       `json:"quantity"`
	AddedAt     time.Time `json:"added_at"`
}

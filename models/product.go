package models

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null" json:"price"`
	// Size label -> price override, e.g. {"30ml": 500.00, "50ml": 750.00}.
	SizeVariants  map[string]float64 `gorm:"serializer:json" json:"size_variants"`
	Images        []string           `gorm:"serializer:json" json:"images"`
	StockQuantity int                `json:"stock_quantity"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	DeletedAt     gorm.DeletedAt     `gorm:"index" json:"-"`
}

// VariantPrice resolves the price for a size label, falling back to the base
// price when the variant carries no override.
func (p Product) VariantPrice(label string) float64 {
	if v, ok := p.SizeVariants[label]; ok {
		return v
	}
	return p.Price
}

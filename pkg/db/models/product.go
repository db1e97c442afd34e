package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a storefront catalog listing.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Description   string           `gorm:"column:description;not null;default:''"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	OriginalPrice *decimal.Decimal `gorm:"column:original_price;type:numeric(12,2)"`
	Image         string           `gorm:"column:image;not null;default:''"`
	Category      string           `gorm:"column:category;not null;index:idx_products_category"`
	Platform      string           `gorm:"column:platform;not null;default:''"`
	Rating        float64          `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	Reviews       int              `gorm:"column:reviews;not null;default:0"`
	Tags          pq.StringArray   `gorm:"column:tags;type:text[];not null;default:'{}'"`
	Stock         *int             `gorm:"column:stock"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasDiscount reports whether the listing carries a strike-through price.
func (p Product) HasDiscount() bool {
	return p.OriginalPrice != nil && p.OriginalPrice.GreaterThan(p.Price)
}

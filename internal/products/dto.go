package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Image         string           `json:"image"`
	Category      string           `json:"category"`
	Platform      string           `json:"platform"`
	Rating        float64          `json:"rating"`
	Reviews       int              `json:"reviews"`
	Tags          []string         `json:"tags"`
	Stock         *int             `json:"stock,omitempty"`
	HasDiscount   bool             `json:"has_discount"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}

	dto := &ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Image:       product.Image,
		Category:    product.Category,
		Platform:    product.Platform,
		Rating:      product.Rating,
		Reviews:     product.Reviews,
		Tags:        append([]string{}, product.Tags...),
		Stock:       product.Stock,
		HasDiscount: product.HasDiscount(),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if product.OriginalPrice != nil {
		original := *product.OriginalPrice
		dto.OriginalPrice = &original
	}
	return dto
}

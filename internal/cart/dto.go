package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
)

// CartDTO is the cart payload returned to clients.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CartItemDTO is a single cart line. Name, price, and image reflect the
// catalog at the time the line was added.
type CartItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewCartDTO maps the persisted cart. A nil cart maps to nil.
func NewCartDTO(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}

	items := make([]CartItemDTO, 0, len(cart.Items))
	count := 0
	for _, item := range cart.Items {
		items = append(items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Image:     item.Image,
			Quantity:  item.Quantity,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
		count += item.Quantity
	}

	return &CartDTO{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		ItemCount: count,
		Total:     ComputeTotal(cart.Items),
		UpdatedAt: cart.UpdatedAt,
	}
}

// EmptyCartDTO renders the cart shape for a user who has no cart yet.
func EmptyCartDTO(userID uuid.UUID) *CartDTO {
	return &CartDTO{
		UserID: userID,
		Items:  []CartItemDTO{},
		Total:  decimal.Zero,
	}
}

// ComputeTotal sums price times quantity across the lines. The result does
// not depend on line order.
func ComputeTotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixelvault/pixelvault-backend/pkg/db"
	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
)

const defaultMaxWriteAttempts = 3

type cartStore interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	ReplaceItemsIfVersion(ctx context.Context, cartID uuid.UUID, expected int64, items []models.CartItem) (bool, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the per-user cart operations.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	ClearItems(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo        cartStore
	products    productLoader
	maxAttempts int
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo cartStore, products productLoader, maxAttempts int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxWriteAttempts
	}
	return &service{
		repo:        repo,
		products:    products,
		maxAttempts: maxAttempts,
	}, nil
}

// GetCart returns the cart, or a nil DTO when the user has none yet.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return NewCartDTO(cart), nil
}

// AddItem merges the product into the cart, incrementing the existing line's
// quantity in place or appending a new line at the tail. The write is applied
// optimistically against the version read; contended writes retry a bounded
// number of times before surfacing a conflict.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		cart, err := s.repo.FindByUser(ctx, userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
			}

			fresh := &models.Cart{
				ID:      uuid.New(),
				UserID:  userID,
				Version: 1,
				Items:   []models.CartItem{newLine(uuid.Nil, product, quantity, 0)},
			}
			fresh.Items[0].CartID = fresh.ID
			createErr := s.repo.Create(ctx, fresh)
			if createErr == nil {
				return s.reload(ctx, userID)
			}
			if db.IsUniqueViolation(createErr, "") {
				// another request created the cart first; merge into it
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "persist cart")
		}

		items := mergeLine(cart, product, quantity)
		applied, err := s.repo.ReplaceItemsIfVersion(ctx, cart.ID, cart.Version, items)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
		}
		if applied {
			return s.reload(ctx, userID)
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, please retry")
}

// RemoveItem drops the line from the cart. An emptied cart persists as an
// empty shell rather than being deleted.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		cart, err := s.repo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		remaining := make([]models.CartItem, 0, len(cart.Items))
		found := false
		for _, item := range cart.Items {
			if item.ID == itemID {
				found = true
				continue
			}
			remaining = append(remaining, item)
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		applied, err := s.repo.ReplaceItemsIfVersion(ctx, cart.ID, cart.Version, remaining)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
		}
		if applied {
			return s.reload(ctx, userID)
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, please retry")
}

// ClearItems empties the cart, keeping the shell. Used after a confirmed
// checkout. Clearing an absent cart is a no-op.
func (s *service) ClearItems(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		cart, err := s.repo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(cart.Items) == 0 {
			return NewCartDTO(cart), nil
		}

		applied, err := s.repo.ReplaceItemsIfVersion(ctx, cart.ID, cart.Version, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
		}
		if applied {
			return s.reload(ctx, userID)
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, please retry")
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return NewCartDTO(cart), nil
}

// mergeLine builds the full replacement item list. Existing lines keep their
// identity and order; a repeated product only grows its quantity.
func mergeLine(cart *models.Cart, product *models.Product, quantity int) []models.CartItem {
	items := make([]models.CartItem, len(cart.Items))
	copy(items, cart.Items)

	maxPosition := -1
	for i := range items {
		if items[i].Position > maxPosition {
			maxPosition = items[i].Position
		}
		if items[i].ProductID == product.ID {
			items[i].Quantity += quantity
			return items
		}
	}

	return append(items, newLine(cart.ID, product, quantity, maxPosition+1))
}

// newLine snapshots the product's name, price, and image into a fresh cart
// line. The snapshot is never re-synced from the catalog.
func newLine(cartID uuid.UUID, product *models.Product, quantity, position int) models.CartItem {
	return models.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Quantity:  quantity,
		Position:  position,
	}
}

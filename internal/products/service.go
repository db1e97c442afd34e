package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pixelvault/pixelvault-backend/pkg/authz"
	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
	"github.com/pixelvault/pixelvault-backend/pkg/pagination"
)

// Service exposes catalog reads to everyone and catalog writes to elevated roles.
type Service interface {
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Create(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, actorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, actorID, productID uuid.UUID) error
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Image         string
	Category      string
	Platform      string
	Rating        float64
	Reviews       int
	Tags          []string
	Stock         *int
}

// UpdateProductInput holds optional mutation values for a listing.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	OriginalPrice *decimal.Decimal
	ClearOriginal bool
	Image         *string
	Category      *string
	Platform      *string
	Rating        *float64
	Reviews       *int
	Tags          *[]string
	Stock         *int
	ClearStock    bool
}

type actorLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo  *Repository
	users actorLoader
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, users actorLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	return &service{repo: repo, users: users}, nil
}

// Get returns a single listing.
func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

// List returns a filtered catalog page.
func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	rows, err := s.repo.ListProducts(ctx, input)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewProductDTO(&rows[i]))
	}
	return &ListResult{Products: dtos, NextCursor: nextCursor}, nil
}

// Create inserts a listing. Requires manager or above.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := s.ensureActorMay(ctx, actorID, authz.OpWriteProduct); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	if input.Reviews < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviews cannot be negative")
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	product := &models.Product{
		ID:            uuid.New(),
		Name:          name,
		Description:   strings.TrimSpace(input.Description),
		Price:         input.Price,
		OriginalPrice: normalizeOriginalPrice(input.Price, input.OriginalPrice),
		Image:         strings.TrimSpace(input.Image),
		Category:      category,
		Platform:      strings.TrimSpace(input.Platform),
		Rating:        input.Rating,
		Reviews:       input.Reviews,
		Tags:          normalizeTags(input.Tags),
		Stock:         input.Stock,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

// Update mutates a listing. Requires manager or above.
func (s *service) Update(ctx context.Context, actorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := s.ensureActorMay(ctx, actorID, authz.OpWriteProduct); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if err := applyUpdateToProduct(product, input); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(updated), nil
}

// Delete removes a listing. Admin only.
func (s *service) Delete(ctx context.Context, actorID, productID uuid.UUID) error {
	if err := s.ensureActorMay(ctx, actorID, authz.OpDeleteProduct); err != nil {
		return err
	}

	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

// ensureActorMay re-reads the actor's current role; token snapshots are not
// trusted for catalog writes.
func (s *service) ensureActorMay(ctx context.Context, actorID uuid.UUID, op authz.Operation) error {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load actor")
	}
	if !actor.IsActive {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	return authz.Authorize(actor.Role, op)
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return err
		}
		product.Price = *input.Price
	}
	switch {
	case input.ClearOriginal:
		product.OriginalPrice = nil
	case input.OriginalPrice != nil:
		product.OriginalPrice = input.OriginalPrice
	}
	// re-normalize against the effective price
	product.OriginalPrice = normalizeOriginalPrice(product.Price, product.OriginalPrice)

	if input.Image != nil {
		product.Image = strings.TrimSpace(*input.Image)
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		product.Category = category
	}
	if input.Platform != nil {
		product.Platform = strings.TrimSpace(*input.Platform)
	}
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return err
		}
		product.Rating = *input.Rating
	}
	if input.Reviews != nil {
		if *input.Reviews < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reviews cannot be negative")
		}
		product.Reviews = *input.Reviews
	}
	if input.Tags != nil {
		product.Tags = normalizeTags(*input.Tags)
	}
	switch {
	case input.ClearStock:
		product.Stock = nil
	case input.Stock != nil:
		if *input.Stock < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.Stock = input.Stock
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	return nil
}

func validateRating(rating float64) error {
	if rating < 0 || rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 0 and 5")
	}
	return nil
}

// normalizeOriginalPrice keeps the strike-through price only when it is a
// real discount; anything else is stored as absent.
func normalizeOriginalPrice(price decimal.Decimal, original *decimal.Decimal) *decimal.Decimal {
	if original == nil || !original.GreaterThan(price) {
		return nil
	}
	v := *original
	return &v
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

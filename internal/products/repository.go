package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
	"github.com/pixelvault/pixelvault-backend/pkg/pagination"
)

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct persists the full product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// ListProducts returns a filtered catalog page ordered newest first, with one
// buffer row past the page so callers can detect the next cursor.
func (r *Repository) ListProducts(ctx context.Context, input ListInput) ([]models.Product, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{})

	filter := input.Filters
	if filter.Category != nil {
		qb = qb.Where("category = ?", *filter.Category)
	}
	if filter.Platform != nil {
		qb = qb.Where("platform = ?", *filter.Platform)
	}
	if filter.PriceMin != nil {
		qb = qb.Where("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		qb = qb.Where("price <= ?", *filter.PriceMax)
	}
	if filter.Tag != nil {
		if qb.Dialector.Name() == "postgres" {
			// array membership; tags are text[]
			qb = qb.Where("? = ANY(tags)", *filter.Tag)
		} else {
			// sqlite (tests) stores the pq array literal text; match the
			// quoted element to avoid substring hits
			qb = qb.Where("tags LIKE ?", `%"`+*filter.Tag+`"%`)
		}
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	err = qb.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit)).
		Find(&rows).
		Error
	return rows, err
}

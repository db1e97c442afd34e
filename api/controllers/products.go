package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixelvault/pixelvault-backend/api/middleware"
	"github.com/pixelvault/pixelvault-backend/api/responses"
	"github.com/pixelvault/pixelvault-backend/api/validators"
	productsvc "github.com/pixelvault/pixelvault-backend/internal/products"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
	"github.com/pixelvault/pixelvault-backend/pkg/logger"
	"github.com/pixelvault/pixelvault-backend/pkg/pagination"
)

// ProductList serves the public catalog browse/search endpoint.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priceMin, err := validators.ParseQueryDecimal(r, "price_min")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		priceMax, err := validators.ParseQueryDecimal(r, "price_max")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.ListInput{
			Filters: productsvc.ListFilters{
				Category: validators.QueryString(r, "category"),
				Platform: validators.QueryString(r, "platform"),
				PriceMin: priceMin,
				PriceMax: priceMax,
				Tag:      validators.QueryString(r, "tag"),
				Query:    validators.SanitizeString(r.URL.Query().Get("q"), 200),
			},
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: validators.SanitizeString(r.URL.Query().Get("cursor"), 200),
			},
		}

		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProductGet serves the public detail endpoint.
func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Name          string           `json:"name" validate:"required,min=1,max=200"`
	Description   string           `json:"description" validate:"max=5000"`
	Price         decimal.Decimal  `json:"price" validate:"required"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Image         string           `json:"image" validate:"max=500"`
	Category      string           `json:"category" validate:"required,min=1,max=100"`
	Platform      string           `json:"platform" validate:"max=100"`
	Rating        float64          `json:"rating" validate:"gte=0,lte=5"`
	Reviews       int              `json:"reviews" validate:"gte=0"`
	Tags          []string         `json:"tags,omitempty" validate:"max=20,dive,min=1,max=50"`
	Stock         *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

func (p createProductRequest) toInput() productsvc.CreateProductInput {
	return productsvc.CreateProductInput{
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         p.Image,
		Category:      p.Category,
		Platform:      p.Platform,
		Rating:        p.Rating,
		Reviews:       p.Reviews,
		Tags:          p.Tags,
		Stock:         p.Stock,
	}
}

// ProductCreate handles listing creation for managers and admins.
func ProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		if actorID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), actorID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	ClearOriginal bool             `json:"clear_original_price,omitempty"`
	Image         *string          `json:"image,omitempty" validate:"omitempty,max=500"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Platform      *string          `json:"platform,omitempty" validate:"omitempty,max=100"`
	Rating        *float64         `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Reviews       *int             `json:"reviews,omitempty" validate:"omitempty,gte=0"`
	Tags          *[]string        `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
	Stock         *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	ClearStock    bool             `json:"clear_stock,omitempty"`
}

func (p updateProductRequest) toInput() productsvc.UpdateProductInput {
	return productsvc.UpdateProductInput{
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		ClearOriginal: p.ClearOriginal,
		Image:         p.Image,
		Category:      p.Category,
		Platform:      p.Platform,
		Rating:        p.Rating,
		Reviews:       p.Reviews,
		Tags:          p.Tags,
		Stock:         p.Stock,
		ClearStock:    p.ClearStock,
	}
}

// ProductUpdate handles partial listing updates for managers and admins.
func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		if actorID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), actorID, productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductDelete removes a listing. Admin only.
func ProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		if actorID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actorID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).
			WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

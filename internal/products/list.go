package products

import (
	"github.com/shopspring/decimal"

	"github.com/pixelvault/pixelvault-backend/pkg/pagination"
)

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	Category *string          `json:"category,omitempty"`
	Platform *string          `json:"platform,omitempty"`
	PriceMin *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax *decimal.Decimal `json:"price_max,omitempty"`
	Tag      *string          `json:"tag,omitempty"`
	Query    string           `json:"q,omitempty"`
}

// ListInput captures the inputs needed to paginate and filter the catalog.
type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ListResult is a catalog page plus the cursor for the next one.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

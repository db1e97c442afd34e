package checkout

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixelvault/pixelvault-backend/internal/cart"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
)

const (
	referencePrefix  = "PV"
	referenceLength  = 10
	referenceCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type cartAccess interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error)
	ClearItems(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error)
}

// QuoteLine is one priced cart line in a checkout summary.
type QuoteLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Quote is the priced summary of the cart at a point in time.
type Quote struct {
	Lines     []QuoteLine     `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	QuotedAt  time.Time       `json:"quoted_at"`
}

// Confirmation records a completed checkout. No payment is captured and no
// order row is persisted; the reference exists so clients have a receipt
// handle.
type Confirmation struct {
	Reference   string          `json:"reference"`
	Lines       []QuoteLine     `json:"lines"`
	ItemCount   int             `json:"item_count"`
	Total       decimal.Decimal `json:"total"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

type Service interface {
	Quote(ctx context.Context, userID uuid.UUID) (*Quote, error)
	Confirm(ctx context.Context, userID uuid.UUID) (*Confirmation, error)
}

type service struct {
	carts cartAccess
	now   func() time.Time
}

func NewService(carts cartAccess) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart access required")
	}
	return &service{carts: carts, now: time.Now}, nil
}

// Quote prices the current cart without mutating it.
func (s *service) Quote(ctx context.Context, userID uuid.UUID) (*Quote, error) {
	dto, err := s.loadNonEmptyCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, total := priceLines(dto)
	return &Quote{
		Lines:     lines,
		ItemCount: dto.ItemCount,
		Total:     total,
		QuotedAt:  s.now().UTC(),
	}, nil
}

// Confirm re-prices the cart, empties it, and returns a receipt reference.
// The cart shell survives for the user's next purchase.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID) (*Confirmation, error) {
	dto, err := s.loadNonEmptyCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, total := priceLines(dto)

	if _, err := s.carts.ClearItems(ctx, userID); err != nil {
		return nil, err
	}

	reference, err := newReference()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reference")
	}

	return &Confirmation{
		Reference:   reference,
		Lines:       lines,
		ItemCount:   dto.ItemCount,
		Total:       total,
		ConfirmedAt: s.now().UTC(),
	}, nil
}

func (s *service) loadNonEmptyCart(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	dto, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if dto == nil || len(dto.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return dto, nil
}

func priceLines(dto *cart.CartDTO) ([]QuoteLine, decimal.Decimal) {
	lines := make([]QuoteLine, 0, len(dto.Items))
	total := decimal.Zero
	for _, item := range dto.Items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, QuoteLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return lines, total
}

func newReference() (string, error) {
	out := make([]byte, referenceLength)
	max := big.NewInt(int64(len(referenceCharset)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = referenceCharset[idx.Int64()]
	}
	return referencePrefix + "-" + string(out), nil
}

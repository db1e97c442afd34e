package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pixelvault/pixelvault-backend/pkg/db/models"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
)

type memStore struct {
	mu   sync.Mutex
	cart *models.Cart

	failWrites  int
	createFails int
}

func (m *memStore) FindByUser(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cart == nil || m.cart.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	out := *m.cart
	out.Items = make([]models.CartItem, len(m.cart.Items))
	copy(out.Items, m.cart.Items)
	return &out, nil
}

func (m *memStore) Create(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFails > 0 {
		m.createFails--
		if m.cart == nil {
			// the competing request's cart already landed
			m.cart = &models.Cart{ID: uuid.New(), UserID: cart.UserID, Version: 1}
		}
		return errors.New("duplicate key value violates unique constraint \"idx_carts_user\"")
	}
	if m.cart != nil && m.cart.UserID == cart.UserID {
		return errors.New("duplicate key value violates unique constraint \"idx_carts_user\"")
	}
	stored := *cart
	stored.Items = make([]models.CartItem, len(cart.Items))
	copy(stored.Items, cart.Items)
	m.cart = &stored
	return nil
}

func (m *memStore) ReplaceItemsIfVersion(_ context.Context, cartID uuid.UUID, expected int64, items []models.CartItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cart == nil || m.cart.ID != cartID {
		return false, nil
	}
	if m.failWrites > 0 {
		m.failWrites--
		m.cart.Version++
		return false, nil
	}
	if m.cart.Version != expected {
		return false, nil
	}
	m.cart.Version = expected + 1
	m.cart.Items = make([]models.CartItem, len(items))
	copy(m.cart.Items, items)
	return true, nil
}

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *product
	return &out, nil
}

func newTestService(t *testing.T) (Service, *memStore, *stubProducts) {
	t.Helper()
	store := &memStore{}
	products := &stubProducts{products: map[uuid.UUID]*models.Product{}}
	svc, err := NewService(store, products, 3)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, products
}

func addProduct(products *stubProducts, name, price string) uuid.UUID {
	id := uuid.New()
	products.products[id] = &models.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Image: "/img/" + name + ".png",
	}
	return id
}

func TestAddItemCreatesCart(t *testing.T) {
	t.Parallel()
	svc, _, products := newTestService(t)
	userID := uuid.New()
	productID := addProduct(products, "neon-drift", "19.99")

	dto, err := svc.AddItem(context.Background(), userID, productID, 2)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(dto.Items))
	}
	line := dto.Items[0]
	if line.ProductID != productID || line.Quantity != 2 {
		t.Fatalf("unexpected line: %+v", line)
	}
	if !dto.Total.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("expected total 39.98, got %s", dto.Total)
	}
	if dto.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", dto.ItemCount)
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	t.Parallel()
	svc, _, products := newTestService(t)
	userID := uuid.New()
	first := addProduct(products, "first", "5.00")
	second := addProduct(products, "second", "7.50")

	if _, err := svc.AddItem(context.Background(), userID, first, 1); err != nil {
		t.Fatalf("AddItem first: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), userID, second, 1); err != nil {
		t.Fatalf("AddItem second: %v", err)
	}
	dto, err := svc.AddItem(context.Background(), userID, first, 3)
	if err != nil {
		t.Fatalf("AddItem merge: %v", err)
	}

	if len(dto.Items) != 2 {
		t.Fatalf("expected two lines after merge, got %d", len(dto.Items))
	}
	if dto.Items[0].ProductID != first || dto.Items[0].Quantity != 4 {
		t.Fatalf("expected first line merged to quantity 4, got %+v", dto.Items[0])
	}
	if dto.Items[1].ProductID != second {
		t.Fatalf("expected second line to keep its position, got %+v", dto.Items[1])
	}
}

func TestAddItemSnapshotsPrice(t *testing.T) {
	t.Parallel()
	svc, _, products := newTestService(t)
	userID := uuid.New()
	productID := addProduct(products, "pinned", "10.00")

	if _, err := svc.AddItem(context.Background(), userID, productID, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	// catalog price changes after the line is captured
	products.products[productID].Price = decimal.RequireFromString("99.00")

	dto, err := svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if !dto.Items[0].Price.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected snapshotted price 10.00, got %s", dto.Items[0].Price)
	}
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()
	svc, _, products := newTestService(t)
	productID := addProduct(products, "valid", "1.00")

	cases := []struct {
		name      string
		userID    uuid.UUID
		productID uuid.UUID
		quantity  int
	}{
		{"missing user", uuid.Nil, productID, 1},
		{"missing product", uuid.New(), uuid.Nil, 1},
		{"zero quantity", uuid.New(), productID, 0},
		{"negative quantity", uuid.New(), productID, -2},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.AddItem(context.Background(), tc.userID, tc.productID, tc.quantity)
			if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddItemRetriesAfterContention(t *testing.T) {
	t.Parallel()
	svc, store, products := newTestService(t)
	userID := uuid.New()
	productID := addProduct(products, "contended", "3.00")

	if _, err := svc.AddItem(context.Background(), userID, productID, 1); err != nil {
		t.Fatalf("AddItem seed: %v", err)
	}

	store.failWrites = 2
	dto, err := svc.AddItem(context.Background(), userID, productID, 1)
	if err != nil {
		t.Fatalf("AddItem under contention: %v", err)
	}
	if dto.Items[0].Quantity != 2 {
		t.Fatalf("expected merged quantity 2, got %d", dto.Items[0].Quantity)
	}
}

func TestAddItemConflictAfterExhaustion(t *testing.T) {
	t.Parallel()
	svc, store, products := newTestService(t)
	userID := uuid.New()
	productID := addProduct(products, "hot", "3.00")

	if _, err := svc.AddItem(context.Background(), userID, productID, 1); err != nil {
		t.Fatalf("AddItem seed: %v", err)
	}

	store.failWrites = 3
	_, err := svc.AddItem(context.Background(), userID, productID, 1)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAddItemConcurrentCreate(t *testing.T) {
	t.Parallel()
	svc, store, products := newTestService(t)
	userID := uuid.New()
	productID := addProduct(products, "raced", "4.00")

	// the first create loses the race; the winner's cart appears before the retry
	store.createFails = 1

	dto, err := svc.AddItem(context.Background(), userID, productID, 1)
	if err != nil {
		t.Fatalf("AddItem after create race: %v", err)
	}
	if len(dto.Items) != 1 || dto.Items[0].ProductID != productID {
		t.Fatalf("expected merged line into winner's cart, got %+v", dto.Items)
	}
}

func TestRemoveItem(t *testing.T) {
	t.Parallel()
	svc, _, products := newTestService(t)
	userID := uuid.New()
	first := addProduct(products, "keep", "1.00")
	second := addProduct(products, "drop", "2.00")

	if _, err := svc.AddItem(context.Background(), userID, first, 1); err != nil {
		t.Fatalf("AddItem first: %v", err)
	}
	dto, err := svc.AddItem(context.Background(), userID, second, 1)
	if err != nil {
		t.Fatalf("AddItem second: %v", err)
	}

	dto, err = svc.RemoveItem(context.Background(), userID, dto.Items[1].ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(dto.Items) != 1 || dto.Items[0].ProductID != first {
		t.Fatalf("expected only the first line to remain, got %+v", dto.Items)
	}
}

func TestRemoveItemMissing(t *testing.T) {
	t.Parallel()
	svc, _, products := newTestService(t)
	userID := uuid.New()
	productID := addProduct(products, "present", "1.00")

	_, err := svc.RemoveItem(context.Background(), userID, uuid.New())
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for absent cart, got %v", err)
	}

	if _, err := svc.AddItem(context.Background(), userID, productID, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	_, err = svc.RemoveItem(context.Background(), userID, uuid.New())
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for absent line, got %v", err)
	}
}

func TestRemoveLastItemKeepsShell(t *testing.T) {
	t.Parallel()
	svc, _, products := newTestService(t)
	userID := uuid.New()
	productID := addProduct(products, "only", "1.00")

	dto, err := svc.AddItem(context.Background(), userID, productID, 1)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	dto, err = svc.RemoveItem(context.Background(), userID, dto.Items[0].ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if dto == nil || len(dto.Items) != 0 {
		t.Fatalf("expected empty cart shell, got %+v", dto)
	}

	dto, err = svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if dto == nil {
		t.Fatal("expected emptied cart to persist")
	}
	if !dto.Total.IsZero() || dto.ItemCount != 0 {
		t.Fatalf("expected zeroed totals, got %+v", dto)
	}
}

func TestGetCartAbsent(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	dto, err := svc.GetCart(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if dto != nil {
		t.Fatalf("expected nil DTO for absent cart, got %+v", dto)
	}
}

func TestClearItems(t *testing.T) {
	t.Parallel()
	svc, _, products := newTestService(t)
	userID := uuid.New()
	productID := addProduct(products, "cleared", "9.99")

	if _, err := svc.AddItem(context.Background(), userID, productID, 3); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	dto, err := svc.ClearItems(context.Background(), userID)
	if err != nil {
		t.Fatalf("ClearItems: %v", err)
	}
	if len(dto.Items) != 0 || dto.ItemCount != 0 {
		t.Fatalf("expected cleared cart, got %+v", dto)
	}

	// clearing an absent cart is a no-op
	dto, err = svc.ClearItems(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ClearItems absent: %v", err)
	}
	if dto != nil {
		t.Fatalf("expected nil DTO for absent cart, got %+v", dto)
	}
}

func TestComputeTotalOrderInvariant(t *testing.T) {
	t.Parallel()
	items := []models.CartItem{
		{Price: decimal.RequireFromString("1.25"), Quantity: 2},
		{Price: decimal.RequireFromString("10.00"), Quantity: 1},
		{Price: decimal.RequireFromString("0.75"), Quantity: 4},
	}
	reversed := []models.CartItem{items[2], items[1], items[0]}

	want := decimal.RequireFromString("15.50")
	if got := ComputeTotal(items); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := ComputeTotal(reversed); !got.Equal(want) {
		t.Fatalf("expected %s for reversed order, got %s", want, got)
	}
}

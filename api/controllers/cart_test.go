package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/pixelvault/pixelvault-backend/api/middleware"
	cartsvc "github.com/pixelvault/pixelvault-backend/internal/cart"
)

type stubCarts struct {
	dto      *cartsvc.CartDTO
	err      error
	quantity int
}

func (s *stubCarts) GetCart(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.dto, s.err
}

func (s *stubCarts) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cartsvc.CartDTO, error) {
	s.quantity = quantity
	return s.dto, s.err
}

func (s *stubCarts) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.dto, s.err
}

func (s *stubCarts) ClearItems(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return s.dto, s.err
}

func addItemRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
}

func TestCartAddItemDefaultsQuantity(t *testing.T) {
	carts := &stubCarts{dto: cartsvc.EmptyCartDTO(uuid.New())}
	handler := CartAddItem(carts, nil)

	body := `{"product_id":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, addItemRequest(t, body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if carts.quantity != 1 {
		t.Fatalf("expected omitted quantity to default to 1, got %d", carts.quantity)
	}
}

func TestCartAddItemExplicitQuantity(t *testing.T) {
	carts := &stubCarts{dto: cartsvc.EmptyCartDTO(uuid.New())}
	handler := CartAddItem(carts, nil)

	body := `{"product_id":"` + uuid.NewString() + `","quantity":3}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, addItemRequest(t, body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if carts.quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", carts.quantity)
	}
}

func TestCartAddItemRejectsNegativeQuantity(t *testing.T) {
	carts := &stubCarts{dto: cartsvc.EmptyCartDTO(uuid.New())}
	handler := CartAddItem(carts, nil)

	body := `{"product_id":"` + uuid.NewString() + `","quantity":-2}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, addItemRequest(t, body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
	if carts.quantity != 0 {
		t.Fatalf("service should not be called on invalid payload, got quantity %d", carts.quantity)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %q", envelope.Error.Code)
	}
}

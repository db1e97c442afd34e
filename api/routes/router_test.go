package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	adminsvc "github.com/pixelvault/pixelvault-backend/internal/admin"
	authsvc "github.com/pixelvault/pixelvault-backend/internal/auth"
	cartsvc "github.com/pixelvault/pixelvault-backend/internal/cart"
	checkoutsvc "github.com/pixelvault/pixelvault-backend/internal/checkout"
	productsvc "github.com/pixelvault/pixelvault-backend/internal/products"
	"github.com/pixelvault/pixelvault-backend/internal/users"
	pkgauth "github.com/pixelvault/pixelvault-backend/pkg/auth"
	"github.com/pixelvault/pixelvault-backend/pkg/auth/session"
	"github.com/pixelvault/pixelvault-backend/pkg/config"
	"github.com/pixelvault/pixelvault-backend/pkg/enums"
	"github.com/pixelvault/pixelvault-backend/pkg/logger"
	"github.com/pixelvault/pixelvault-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubAuthService struct{}

func (stubAuthService) Register(context.Context, authsvc.RegisterInput) (*users.UserDTO, error) {
	panic("unimplemented")
}

func (stubAuthService) Login(context.Context, authsvc.LoginInput) (*authsvc.AuthResult, error) {
	panic("unimplemented")
}

func (stubAuthService) Refresh(context.Context, authsvc.RefreshInput) (*authsvc.AuthResult, error) {
	panic("unimplemented")
}

func (stubAuthService) Logout(context.Context, string) error { panic("unimplemented") }

func (stubAuthService) ForgotPassword(context.Context, string) error { panic("unimplemented") }

type stubProductService struct{}

func (stubProductService) Get(context.Context, uuid.UUID) (*productsvc.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) List(context.Context, productsvc.ListInput) (*productsvc.ListResult, error) {
	return &productsvc.ListResult{Products: []productsvc.ProductDTO{}}, nil
}

func (stubProductService) Create(context.Context, uuid.UUID, productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{ID: uuid.New(), Name: "stub", Price: decimal.NewFromInt(5)}, nil
}

func (stubProductService) Update(context.Context, uuid.UUID, uuid.UUID, productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
	panic("unimplemented")
}

func (stubProductService) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	panic("unimplemented")
}

type stubCartService struct{}

func (stubCartService) GetCart(context.Context, uuid.UUID) (*cartsvc.CartDTO, error) {
	return nil, nil
}

func (stubCartService) AddItem(context.Context, uuid.UUID, uuid.UUID, int) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) ClearItems(context.Context, uuid.UUID) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

type stubCheckoutService struct{}

func (stubCheckoutService) Quote(context.Context, uuid.UUID) (*checkoutsvc.Quote, error) {
	panic("unimplemented")
}

func (stubCheckoutService) Confirm(context.Context, uuid.UUID) (*checkoutsvc.Confirmation, error) {
	panic("unimplemented")
}

type stubAdminService struct{}

func (stubAdminService) ListUsers(context.Context, uuid.UUID, pagination.Params) (*adminsvc.ListUsersResult, error) {
	return &adminsvc.ListUsersResult{Users: []users.UserDTO{}}, nil
}

func (stubAdminService) ChangeRole(context.Context, adminsvc.ChangeRoleInput) (*users.UserDTO, error) {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "routing-test-secret",
			Issuer:                 "pixelvault-test",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginEmailLimit:    5,
			LoginIPLimit:       20,
			RegisterWindow:     5 * time.Minute,
			RegisterEmailLimit: 3,
			RegisterIPLimit:    20,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       stubPinger{},
		Sessions: stubSessionChecker{},
		Auth:     stubAuthService{},
		Products: stubProductService{},
		Cart:     stubCartService{},
		Checkout: stubCheckoutService{},
		Admin:    stubAdminService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPublicProductListNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPrivateGroupRejectsMissingToken(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPrivateGroupAcceptsValidToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestManageProductsRequiresManagerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"name":"Neon Drift","description":"racer","price":"19.99","image":"https://cdn.example/neon.png","category":"games","platform":"pc"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/manage/products/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/manage/products/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleManager))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for manager role, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleManager))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager role, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d: %s", rec.Code, rec.Body.String())
	}
}

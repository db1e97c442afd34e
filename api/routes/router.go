package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pixelvault/pixelvault-backend/api/controllers"
	"github.com/pixelvault/pixelvault-backend/api/middleware"
	adminsvc "github.com/pixelvault/pixelvault-backend/internal/admin"
	authsvc "github.com/pixelvault/pixelvault-backend/internal/auth"
	cartsvc "github.com/pixelvault/pixelvault-backend/internal/cart"
	checkoutsvc "github.com/pixelvault/pixelvault-backend/internal/checkout"
	productsvc "github.com/pixelvault/pixelvault-backend/internal/products"
	"github.com/pixelvault/pixelvault-backend/internal/users"
	"github.com/pixelvault/pixelvault-backend/pkg/auth/session"
	"github.com/pixelvault/pixelvault-backend/pkg/config"
	"github.com/pixelvault/pixelvault-backend/pkg/enums"
	"github.com/pixelvault/pixelvault-backend/pkg/logger"
	"github.com/pixelvault/pixelvault-backend/pkg/metrics"
	"github.com/pixelvault/pixelvault-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Metrics  *metrics.HTTPMetrics
	Registry *prometheus.Registry

	Auth     authsvc.Service
	Products productsvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Admin    adminsvc.Service
	Users    *users.Repository
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    pingerOrNil(deps.Redis),
		}))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/forgot-password", controllers.AuthForgotPassword(deps.Auth, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Products, logg))
		r.Get("/{productId}", controllers.ProductGet(deps.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Get("/me", controllers.Me(deps.Users, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", controllers.CheckoutQuote(deps.Checkout, logg))
			r.Post("/confirm", controllers.CheckoutConfirm(deps.Checkout, logg))
		})

		r.Route("/manage/products", func(r chi.Router) {
			r.With(middleware.RequireMinRole(enums.RoleManager, logg)).Post("/", controllers.ProductCreate(deps.Products, logg))
			r.With(middleware.RequireMinRole(enums.RoleManager, logg)).Patch("/{productId}", controllers.ProductUpdate(deps.Products, logg))
			r.With(middleware.RequireMinRole(enums.RoleAdmin, logg)).Delete("/{productId}", controllers.ProductDelete(deps.Products, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireMinRole(enums.RoleAdmin, logg))

		r.Get("/users", controllers.AdminListUsers(deps.Admin, logg))
		r.Post("/users/{userId}/role", controllers.AdminChangeUserRole(deps.Admin, logg))
	})

	return r
}

// pingerOrNil keeps a typed-nil *redis.Client from masquerading as a live
// Pinger behind the interface.
func pingerOrNil(client *redis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}

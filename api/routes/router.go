package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/graybeam/storefront-backend/api/controllers"
	"github.com/graybeam/storefront-backend/api/middleware"
	"github.com/graybeam/storefront-backend/internal/admin"
	"github.com/graybeam/storefront-backend/internal/auth"
	"github.com/graybeam/storefront-backend/internal/cart"
	"github.com/graybeam/storefront-backend/internal/catalog"
	"github.com/graybeam/storefront-backend/internal/checkout"
	"github.com/graybeam/storefront-backend/internal/orders"
	"github.com/graybeam/storefront-backend/internal/reviews"
	"github.com/graybeam/storefront-backend/internal/wishlist"
	"github.com/graybeam/storefront-backend/pkg/auth/session"
	"github.com/graybeam/storefront-backend/pkg/config"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/metrics"
	"github.com/graybeam/storefront-backend/pkg/redis"
)

// redisStores carries typed-nil-safe views of the Redis client so the
// middleware nil checks behave when Redis is absent.
type redisStores struct {
	idempotency redis.IdempotencyStore
	rateLimit   middleware.RateLimiterStore
}

func storesFor(client *redis.Client) redisStores {
	var s redisStores
	if client != nil {
		s.idempotency = client
		s.rateLimit = client
	}
	return s
}

// Deps collects everything the HTTP surface needs. Nil services degrade
// to 500s on their routes instead of panicking at startup.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	Sessions    session.AccessSessionChecker
	HTTPMetrics *metrics.HTTPMetrics

	HealthChecks map[string]controllers.Pinger

	Auth     auth.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Wishlist wishlist.Service
	Reviews  reviews.Service
	Checkout checkout.Service
	Orders   orders.Service
	Admin    admin.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger
	stores := storesFor(d.Redis)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)
	if d.HTTPMetrics != nil {
		r.Use(d.HTTPMetrics.Middleware)
		r.Handle("/metrics", d.HTTPMetrics.Handler())
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, d.HealthChecks))
	})

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(stores.rateLimit, registerPolicy, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.With(middleware.AuthRateLimit(stores.rateLimit, loginPolicy, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsBrowse(d.Catalog, logg))
		r.Get("/search", controllers.ProductsSearch(d.Catalog, logg))
		r.Get("/featured", controllers.ProductsFeatured(d.Catalog, logg))
		r.Get("/deals", controllers.ProductsDeals(d.Catalog, logg))
		r.Get("/{productID}", controllers.ProductDetail(d.Catalog, logg))
		r.Get("/{productID}/reviews", controllers.ProductReviews(d.Reviews, logg))
	})

	// Carts work for guests and signed-in customers alike.
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, d.Sessions, logg))
		r.Get("/", controllers.CartGet(d.Cart, logg))
		r.Post("/items", controllers.CartAddItem(d.Cart, logg))
		r.Patch("/items/{productID}", controllers.CartUpdateQuantity(d.Cart, logg))
		r.Delete("/items/{productID}", controllers.CartRemoveItem(d.Cart, logg))
		r.Delete("/", controllers.CartClear(d.Cart, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.Idempotency(stores.idempotency, logg))

		r.Route("/api/v1/me", func(r chi.Router) {
			r.Get("/", controllers.AuthProfile(d.Auth, logg))
			r.Patch("/", controllers.AuthUpdateProfile(d.Auth, logg))
		})

		r.Route("/api/v1/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(d.Wishlist, logg))
			r.Post("/move-all-to-cart", controllers.WishlistMoveAllToCart(d.Wishlist, logg))
			r.Post("/{productID}", controllers.WishlistAdd(d.Wishlist, logg))
			r.Delete("/{productID}", controllers.WishlistRemove(d.Wishlist, logg))
			r.Post("/{productID}/move-to-cart", controllers.WishlistMoveToCart(d.Wishlist, logg))
		})

		r.Route("/api/v1/reviews", func(r chi.Router) {
			r.Post("/", controllers.ReviewCreate(d.Reviews, logg))
			r.Patch("/{reviewID}", controllers.ReviewUpdate(d.Reviews, logg))
			r.Delete("/{reviewID}", controllers.ReviewDelete(d.Reviews, logg))
		})

		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Get("/quote", controllers.CheckoutQuote(d.Checkout, logg))
			r.Post("/", controllers.CheckoutSubmit(d.Checkout, logg))
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(d.Orders, logg))
			r.Get("/{orderID}", controllers.OrderDetail(d.Orders, logg))
			r.Post("/{orderID}/retry-payment", controllers.CheckoutRetryPayment(d.Checkout, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Get("/dashboard", controllers.AdminDashboard(d.Admin, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(d.Admin, logg))
			r.Post("/", controllers.AdminCreateProduct(d.Admin, logg))
			r.Put("/{productID}", controllers.AdminUpdateProduct(d.Admin, logg))
			r.Delete("/{productID}", controllers.AdminDeleteProduct(d.Admin, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(d.Orders, logg))
			r.Get("/{orderID}", controllers.AdminOrderDetail(d.Orders, logg))
			r.Post("/{orderID}/status", controllers.AdminTransitionOrder(d.Orders, logg))
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(d.Admin, logg))
			r.Patch("/{userID}/role", controllers.AdminSetUserRole(d.Admin, logg))
			r.Patch("/{userID}/active", controllers.AdminSetUserActive(d.Admin, logg))
		})
	})

	return r
}

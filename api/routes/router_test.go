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

	"github.com/graybeam/storefront-backend/api/controllers"
	"github.com/graybeam/storefront-backend/internal/admin"
	"github.com/graybeam/storefront-backend/internal/auth"
	"github.com/graybeam/storefront-backend/internal/cart"
	"github.com/graybeam/storefront-backend/internal/catalog"
	"github.com/graybeam/storefront-backend/internal/checkout"
	"github.com/graybeam/storefront-backend/internal/orders"
	"github.com/graybeam/storefront-backend/internal/reviews"
	"github.com/graybeam/storefront-backend/internal/users"
	"github.com/graybeam/storefront-backend/internal/wishlist"
	pkgauth "github.com/graybeam/storefront-backend/pkg/auth"
	"github.com/graybeam/storefront-backend/pkg/auth/session"
	"github.com/graybeam/storefront-backend/pkg/config"
	"github.com/graybeam/storefront-backend/pkg/enums"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{}, nil
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPairResponse, error) {
	return &auth.TokenPairResponse{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessToken string) error {
	return nil
}

func (stubAuthService) Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

func (stubAuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req auth.UpdateProfileRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

type stubCatalogService struct{}

func (stubCatalogService) Search(ctx context.Context, query string) ([]catalog.ProductDTO, error) {
	return []catalog.ProductDTO{}, nil
}

func (stubCatalogService) Browse(ctx context.Context, filters catalog.FilterState) ([]catalog.ProductDTO, error) {
	return []catalog.ProductDTO{}, nil
}

func (stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDetailDTO, error) {
	return &catalog.ProductDetailDTO{}, nil
}

func (stubCatalogService) ListFeatured(ctx context.Context) ([]catalog.ProductDTO, error) {
	return []catalog.ProductDTO{}, nil
}

func (stubCatalogService) ListDeals(ctx context.Context) ([]catalog.ProductDTO, error) {
	return []catalog.ProductDTO{}, nil
}

func (stubCatalogService) ListPage(ctx context.Context, page pagination.Params) (*catalog.ProductPageDTO, error) {
	return &catalog.ProductPageDTO{}, nil
}

type stubCartService struct {
	lastRef cart.CartRef
}

func (s *stubCartService) GetCart(ctx context.Context, ref cart.CartRef) (*cart.CartDTO, error) {
	s.lastRef = ref
	return &cart.CartDTO{}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, ref cart.CartRef, input cart.AddItemInput) (*cart.CartDTO, error) {
	s.lastRef = ref
	return &cart.CartDTO{}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, ref cart.CartRef, input cart.UpdateQuantityInput) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, ref cart.CartRef, productID uuid.UUID, expectedVersion *int64) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (s *stubCartService) Clear(ctx context.Context, ref cart.CartRef) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (s *stubCartService) MergeGuestCart(ctx context.Context, userID uuid.UUID, guestToken string) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

type stubWishlistService struct{}

func (stubWishlistService) List(ctx context.Context, userID uuid.UUID) (*wishlist.WishlistDTO, error) {
	return &wishlist.WishlistDTO{}, nil
}

func (stubWishlistService) Add(ctx context.Context, userID, productID uuid.UUID) error {
	return nil
}

func (stubWishlistService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return nil
}

func (stubWishlistService) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return false, nil
}

func (stubWishlistService) MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubWishlistService) MoveAllToCart(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

type stubReviewsService struct{}

func (stubReviewsService) ListByProduct(ctx context.Context, productID uuid.UUID) (*reviews.ProductReviewsDTO, error) {
	return &reviews.ProductReviewsDTO{}, nil
}

func (stubReviewsService) Create(ctx context.Context, userID uuid.UUID, input reviews.CreateReviewInput) (*reviews.ReviewDTO, error) {
	return &reviews.ReviewDTO{}, nil
}

func (stubReviewsService) Update(ctx context.Context, userID, reviewID uuid.UUID, input reviews.UpdateReviewInput) (*reviews.ReviewDTO, error) {
	return &reviews.ReviewDTO{}, nil
}

func (stubReviewsService) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Quote(ctx context.Context, userID uuid.UUID) (*checkout.QuoteDTO, error) {
	return &checkout.QuoteDTO{}, nil
}

func (stubCheckoutService) Submit(ctx context.Context, userID uuid.UUID, input checkout.SubmitInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubCheckoutService) RetryPayment(ctx context.Context, userID, orderID uuid.UUID, sourceID string) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*orders.OrderPageDTO, error) {
	return &orders.OrderPageDTO{}, nil
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) List(ctx context.Context, params orders.ListParams) (*orders.OrderPageDTO, error) {
	return &orders.OrderPageDTO{}, nil
}

func (stubOrdersService) Transition(ctx context.Context, actorID, orderID uuid.UUID, next enums.OrderStatus) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

type stubAdminService struct{}

func (stubAdminService) Dashboard(ctx context.Context) (*admin.DashboardDTO, error) {
	return &admin.DashboardDTO{}, nil
}

func (stubAdminService) ListProducts(ctx context.Context, page pagination.Params) (*catalog.ProductPageDTO, error) {
	return &catalog.ProductPageDTO{}, nil
}

func (stubAdminService) CreateProduct(ctx context.Context, input admin.ProductInput) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{}, nil
}

func (stubAdminService) UpdateProduct(ctx context.Context, productID uuid.UUID, input admin.ProductInput) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{}, nil
}

func (stubAdminService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	return nil
}

func (stubAdminService) ListUsers(ctx context.Context, page pagination.Params) (*users.UserPageDTO, error) {
	return &users.UserPageDTO{}, nil
}

func (stubAdminService) SetUserRole(ctx context.Context, actorID, userID uuid.UUID, role enums.UserRole) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

func (stubAdminService) SetUserActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config, cartSvc cart.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if cartSvc == nil {
		cartSvc = &stubCartService{}
	}
	return NewRouter(Deps{
		Config:       cfg,
		Logger:       logg,
		Sessions:     stubSessionChecker{},
		HealthChecks: map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}},
		Auth:         stubAuthService{},
		Catalog:      stubCatalogService{},
		Cart:         cartSvc,
		Wishlist:     stubWishlistService{},
		Reviews:      stubReviewsService{},
		Checkout:     stubCheckoutService{},
		Orders:       stubOrdersService{},
		Admin:        stubAdminService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
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

func TestPublicProductsListIsOpen(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public products got %d", resp.Code)
	}
}

func TestWishlistRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestWishlistAcceptsValidJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestProfileRequiresJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	anon := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anon)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/dashboard", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	adminReq := httptest.NewRequest(http.MethodGet, "/api/admin/v1/dashboard", nil)
	adminReq.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, adminReq)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestCartRequiresIdentity(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without guest token or auth got %d", resp.Code)
	}
}

func TestCartAcceptsGuestToken(t *testing.T) {
	cartSvc := &stubCartService{}
	router := newTestRouter(testConfig(), cartSvc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Guest-Cart-Token", "guest-abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for guest cart got %d", resp.Code)
	}
	if cartSvc.lastRef.GuestToken != "guest-abc" {
		t.Fatalf("expected guest token to reach the service, got %q", cartSvc.lastRef.GuestToken)
	}
}

func TestCartPrefersAuthenticatedIdentity(t *testing.T) {
	cfg := testConfig()
	cartSvc := &stubCartService{}
	router := newTestRouter(cfg, cartSvc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	req.Header.Set("X-Guest-Cart-Token", "guest-abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for signed-in cart got %d", resp.Code)
	}
	if cartSvc.lastRef.UserID == uuid.Nil {
		t.Fatal("expected the user cart, not the guest cart")
	}
}

func TestAuthRegisterRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)
	body := `{"email":"a@b.com","shipping_address":{},"source_id":"cnon:ok"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

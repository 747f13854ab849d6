package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/internal/catalog"
	"github.com/graybeam/storefront-backend/internal/orders"
	"github.com/graybeam/storefront-backend/internal/users"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/pagination"
)

// Service exposes the admin console operations. Role enforcement happens
// at the transport layer; everything here assumes an admin caller.
type Service interface {
	Dashboard(ctx context.Context) (*DashboardDTO, error)

	ListProducts(ctx context.Context, page pagination.Params) (*catalog.ProductPageDTO, error)
	CreateProduct(ctx context.Context, input ProductInput) (*catalog.ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input ProductInput) (*catalog.ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error

	ListUsers(ctx context.Context, page pagination.Params) (*users.UserPageDTO, error)
	SetUserRole(ctx context.Context, actorID, userID uuid.UUID, role enums.UserRole) (*users.UserDTO, error)
	SetUserActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*users.UserDTO, error)
}

// ServiceParams wires the admin service dependencies.
type ServiceParams struct {
	Catalog *catalog.Repository
	Orders  orders.OrdersRepository
	Users   *users.Repository
	Logger  *logger.Logger
}

type service struct {
	catalog *catalog.Repository
	orders  orders.OrdersRepository
	users   *users.Repository
	logg    *logger.Logger
}

// NewService builds the admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repository is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repository is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repository is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		catalog: params.Catalog,
		orders:  params.Orders,
		users:   params.Users,
		logg:    params.Logger,
	}, nil
}

// Dashboard aggregates the storefront counters shown on the console home.
func (s *service) Dashboard(ctx context.Context) (*DashboardDTO, error) {
	salesCents, paidOrders, err := s.orders.SalesTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sales totals")
	}
	totalOrders, err := s.orders.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count orders")
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count users")
	}
	totalProducts, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count products")
	}
	return &DashboardDTO{
		TotalSalesCents: salesCents,
		PaidOrders:      paidOrders,
		TotalOrders:     totalOrders,
		TotalUsers:      totalUsers,
		TotalProducts:   totalProducts,
	}, nil
}

// ListProducts pages through the full catalog, inactive listings included.
func (s *service) ListProducts(ctx context.Context, page pagination.Params) (*catalog.ProductPageDTO, error) {
	rows, nextCursor, err := s.catalog.ListPage(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return &catalog.ProductPageDTO{Items: catalog.NewProductDTOs(rows), NextCursor: nextCursor}, nil
}

// CreateProduct appends a listing to the catalog. New products land at the
// end of the stored catalog order.
func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*catalog.ProductDTO, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	ordinal, err := s.catalog.NextCatalogOrdinal(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: next catalog ordinal")
	}

	product := &models.Product{CatalogOrdinal: ordinal}
	applyProductInput(product, input)
	created, err := s.catalog.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create product")
	}

	logCtx := s.logg.WithField(ctx, "product_id", created.ID.String())
	s.logg.Info(logCtx, "product created")

	dto := catalog.NewProductDTO(*created)
	return &dto, nil
}

// UpdateProduct replaces the listing's fields. Rating aggregates and the
// catalog ordinal are owned elsewhere and left alone.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input ProductInput) (*catalog.ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	applyProductInput(product, input)
	updated, err := s.catalog.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}

	dto := catalog.NewProductDTO(*updated)
	return &dto, nil
}

// DeleteProduct removes the listing outright. Orders keep their line item
// snapshots, so history survives the delete.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.catalog.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if err := s.catalog.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}

	logCtx := s.logg.WithField(ctx, "product_id", productID.String())
	s.logg.Info(logCtx, "product deleted")
	return nil
}

// ListUsers pages through every account.
func (s *service) ListUsers(ctx context.Context, page pagination.Params) (*users.UserPageDTO, error) {
	rows, nextCursor, err := s.users.List(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list users")
	}
	return &users.UserPageDTO{Items: users.FromModels(rows), NextCursor: nextCursor}, nil
}

// SetUserRole changes an account's role. Admins cannot strip their own
// role, so the console always keeps at least its current operator.
func (s *service) SetUserRole(ctx context.Context, actorID, userID uuid.UUID, role enums.UserRole) (*users.UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}
	if actorID == userID && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot remove your own admin role")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update role")
	}
	user.Role = role

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"role":    string(role),
	})
	s.logg.Info(logCtx, "user role changed")
	return users.FromModel(user), nil
}

// SetUserActive toggles whether the account may sign in. Operators cannot
// lock themselves out.
func (s *service) SetUserActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*users.UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if actorID == userID && !active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update active flag")
	}
	user.IsActive = active
	return users.FromModel(user), nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	return user, nil
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product category is required")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.CompareAtCents != nil && *input.CompareAtCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "compare-at price must not be negative")
	}
	return nil
}

func applyProductInput(product *models.Product, input ProductInput) {
	product.Name = strings.TrimSpace(input.Name)
	product.Description = strings.TrimSpace(input.Description)
	product.Brand = strings.TrimSpace(input.Brand)
	product.Category = strings.TrimSpace(input.Category)
	product.Tags = append([]string{}, input.Tags...)
	product.PriceCents = input.PriceCents
	product.CompareAtCents = input.CompareAtCents
	product.ImageURL = input.ImageURL
	product.IsFeatured = input.IsFeatured
	product.InStock = input.InStock
	product.IsActive = input.IsActive
}

package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/pagination"
)

const (
	defaultMaxResults = 100
	relatedLimit      = 8
	shelfLimit        = 12
)

// Service exposes catalog browse/search operations.
type Service interface {
	Search(ctx context.Context, query string) ([]ProductDTO, error)
	Browse(ctx context.Context, state FilterState) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetailDTO, error)
	ListFeatured(ctx context.Context) ([]ProductDTO, error)
	ListDeals(ctx context.Context) ([]ProductDTO, error)
	ListPage(ctx context.Context, params pagination.Params) (*ProductPageDTO, error)
}

// ServiceParams wires the catalog service dependencies.
type ServiceParams struct {
	Repo       *Repository
	Logger     *logger.Logger
	MaxResults int
}

type service struct {
	repo       *Repository
	logg       *logger.Logger
	maxResults int
}

// NewService builds the catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repository is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &service{
		repo:       params.Repo,
		logg:       params.Logger,
		maxResults: maxResults,
	}, nil
}

// Search performs fuzzy, token-scored matching across name, brand, category
// and description, ranked best first. An empty query returns the full
// catalog in stored order.
func (s *service) Search(ctx context.Context, query string) ([]ProductDTO, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list catalog")
	}
	ranked := rankProducts(products, query)
	if strings.TrimSpace(query) != "" && len(ranked) > s.maxResults {
		ranked = ranked[:s.maxResults]
	}
	return NewProductDTOs(ranked), nil
}

// Browse applies the composed filter state over the full catalog.
func (s *service) Browse(ctx context.Context, state FilterState) ([]ProductDTO, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list catalog")
	}
	return NewProductDTOs(applyFilters(products, state)), nil
}

// GetProduct loads the product detail with reviews and related items.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetailDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	related, err := s.repo.ListRelated(ctx, product.Category, product.ID, relatedLimit)
	if err != nil {
		// Related items are decorative. Log and serve the product anyway.
		s.logg.Warn(s.logg.WithField(ctx, "product_id", product.ID.String()), "loading related products failed")
		related = nil
	}

	return &ProductDetailDTO{
		Product: NewProductDTO(*product),
		Reviews: newProductReviewDTOs(product.Reviews),
		Related: NewProductDTOs(related),
	}, nil
}

// ListFeatured returns the featured shelf.
func (s *service) ListFeatured(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.ListFeatured(ctx, shelfLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list featured")
	}
	return NewProductDTOs(products), nil
}

// ListDeals returns products currently discounted below their compare-at
// price.
func (s *service) ListDeals(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.ListDeals(ctx, shelfLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list deals")
	}
	return NewProductDTOs(products), nil
}

// ListPage serves the cursor-paginated admin listing.
func (s *service) ListPage(ctx context.Context, params pagination.Params) (*ProductPageDTO, error) {
	rows, nextCursor, err := s.repo.ListPage(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list product page")
	}
	return &ProductPageDTO{
		Items:      NewProductDTOs(rows),
		NextCursor: nextCursor,
	}, nil
}

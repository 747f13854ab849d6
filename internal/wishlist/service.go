package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/internal/cart"
	"github.com/graybeam/storefront-backend/internal/catalog"
	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service exposes wishlist operations for authenticated customers.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) (*WishlistDTO, error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*cart.CartDTO, error)
	MoveAllToCart(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error)
}

// ServiceParams wires the wishlist service dependencies.
type ServiceParams struct {
	Repo     WishlistRepository
	CartRepo cart.CartRepository
	Products productLoader
	Tx       txRunner
	Logger   *logger.Logger
}

type service struct {
	repo     WishlistRepository
	cartRepo cart.CartRepository
	products productLoader
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds the wishlist service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repository is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repository is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product loader is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:     params.Repo,
		cartRepo: params.CartRepo,
		products: params.Products,
		tx:       params.Tx,
		logg:     params.Logger,
	}, nil
}

// List returns the wishlist with product payloads in save order. Entries
// whose product has since been deleted are skipped.
func (s *service) List(ctx context.Context, userID uuid.UUID) (*WishlistDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list wishlist")
	}

	ids := make([]uuid.UUID, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ProductID
	}
	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load wishlist products")
	}

	items := make([]WishlistItemDTO, 0, len(entries))
	for _, entry := range entries {
		product, ok := products[entry.ProductID]
		if !ok {
			continue
		}
		items = append(items, WishlistItemDTO{
			Product: catalog.NewProductDTO(product),
			SavedAt: entry.CreatedAt,
		})
	}
	return &WishlistDTO{Items: items, Count: len(items)}, nil
}

// Add saves the product. A duplicate save is a conflict, mirroring the
// unique (user, product) index.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}

	if _, err := s.loadActiveProduct(ctx, productID); err != nil {
		return err
	}

	if err := s.repo.Insert(ctx, userID, productID); err != nil {
		if db.IsUniqueViolation(err, "wishlist_items_user_product_key") {
			return pkgerrors.New(pkgerrors.CodeConflict, "product already in wishlist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert wishlist entry")
	}
	return nil
}

// Remove deletes the entry.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}

	removed, err := s.repo.Remove(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove wishlist entry")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist entry not found")
	}
	return nil
}

// Contains reports whether the product is saved.
func (s *service) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	contained, err := s.repo.Contains(ctx, userID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check wishlist entry")
	}
	return contained, nil
}

// MoveToCart adds the product to the cart and removes the wishlist entry in
// one transaction, so a failure leaves both lists as they were.
func (s *service) MoveToCart(ctx context.Context, userID, productID uuid.UUID) (*cart.CartDTO, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}

	product, err := s.loadActiveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var snapshot cart.Snapshot
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		removed, err := s.repo.WithTx(tx).Remove(ctx, userID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove wishlist entry")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist entry not found")
		}

		snapshot, err = cart.ApplyUserMutation(ctx, tx, s.cartRepo, userID, nil, func(snap *cart.Snapshot) error {
			snap.AddItem(product, 1)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart.NewCartDTO(snapshot), nil
}

// MoveAllToCart drains the wishlist into the cart in one transaction.
func (s *service) MoveAllToCart(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var snapshot cart.Snapshot
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		entries, err := txRepo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list wishlist")
		}
		if len(entries) == 0 {
			snapshot, err = cart.LoadUserSnapshot(ctx, tx, s.cartRepo, userID)
			return err
		}

		ids := make([]uuid.UUID, len(entries))
		for i, entry := range entries {
			ids[i] = entry.ProductID
		}
		products, err := s.products.ListByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load wishlist products")
		}

		snapshot, err = cart.ApplyUserMutation(ctx, tx, s.cartRepo, userID, nil, func(snap *cart.Snapshot) error {
			for _, entry := range entries {
				product, ok := products[entry.ProductID]
				if !ok || !product.IsActive {
					continue
				}
				snap.AddItem(&product, 1)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if err := txRepo.RemoveAll(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear wishlist")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart.NewCartDTO(snapshot), nil
}

func (s *service) loadActiveProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return product, nil
}

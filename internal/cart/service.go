package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/pkg/db/models"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type guestCartStore interface {
	Get(ctx context.Context, guestToken string) (Snapshot, error)
	Save(ctx context.Context, guestToken string, snapshot Snapshot) error
	Delete(ctx context.Context, guestToken string) error
}

// CartRef addresses a cart: either an authenticated user's persisted cart
// or a guest cart behind an opaque token. Exactly one side is set.
type CartRef struct {
	UserID     uuid.UUID
	GuestToken string
}

func (r CartRef) validate() error {
	hasUser := r.UserID != uuid.Nil
	hasGuest := strings.TrimSpace(r.GuestToken) != ""
	if hasUser == hasGuest {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or guest token is required")
	}
	return nil
}

func (r CartRef) isGuest() bool {
	return strings.TrimSpace(r.GuestToken) != ""
}

// AddItemInput is the add-to-cart payload.
type AddItemInput struct {
	ProductID       uuid.UUID
	Quantity        int
	ExpectedVersion *int64
}

// UpdateQuantityInput sets an absolute quantity on an existing line.
type UpdateQuantityInput struct {
	ProductID       uuid.UUID
	Quantity        int
	ExpectedVersion *int64
}

// Service exposes cart operations for both guest and authenticated carts.
type Service interface {
	GetCart(ctx context.Context, ref CartRef) (*CartDTO, error)
	AddItem(ctx context.Context, ref CartRef, input AddItemInput) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, ref CartRef, input UpdateQuantityInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, ref CartRef, productID uuid.UUID, expectedVersion *int64) (*CartDTO, error)
	Clear(ctx context.Context, ref CartRef) (*CartDTO, error)
	MergeGuestCart(ctx context.Context, userID uuid.UUID, guestToken string) (*CartDTO, error)
}

// ServiceParams wires the cart service dependencies.
type ServiceParams struct {
	Repo     CartRepository
	Tx       txRunner
	Products productLoader
	Guest    guestCartStore
	Logger   *logger.Logger
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	guest    guestCartStore
	logg     *logger.Logger
}

// NewService builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repository is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product loader is required")
	}
	if params.Guest == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest cart store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		products: params.Products,
		guest:    params.Guest,
		logg:     params.Logger,
	}, nil
}

// GetCart returns the current cart, or an empty one when nothing is stored.
func (s *service) GetCart(ctx context.Context, ref CartRef) (*CartDTO, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	snapshot, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	return NewCartDTO(snapshot), nil
}

// AddItem inserts the product or increments its existing line.
func (s *service) AddItem(ctx context.Context, ref CartRef, input AddItemInput) (*CartDTO, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, ref, input.ExpectedVersion, func(snapshot *Snapshot) error {
		snapshot.AddItem(product, input.Quantity)
		return nil
	})
}

// UpdateQuantity sets an absolute quantity on the line. A quantity below 1
// is a no-op that returns the cart unchanged; it never stores a zero or
// removes the line.
func (s *service) UpdateQuantity(ctx context.Context, ref CartRef, input UpdateQuantityInput) (*CartDTO, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return s.GetCart(ctx, ref)
	}

	return s.mutate(ctx, ref, input.ExpectedVersion, func(snapshot *Snapshot) error {
		if !snapshot.UpdateQuantity(input.ProductID, input.Quantity) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil
	})
}

// RemoveItem drops the line. Removing an absent line succeeds without a
// write so removal stays idempotent.
func (s *service) RemoveItem(ctx context.Context, ref CartRef, productID uuid.UUID, expectedVersion *int64) (*CartDTO, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	current, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if current.Find(productID) == nil {
		return NewCartDTO(current), nil
	}

	return s.mutate(ctx, ref, expectedVersion, func(snapshot *Snapshot) error {
		snapshot.RemoveItem(productID)
		return nil
	})
}

// Clear empties the cart.
func (s *service) Clear(ctx context.Context, ref CartRef) (*CartDTO, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, ref, nil, func(snapshot *Snapshot) error {
		snapshot.Clear()
		return nil
	})
}

// MergeGuestCart folds the guest cart into the user's cart, summing
// quantities per product, and removes the guest blob once the merge has
// committed.
func (s *service) MergeGuestCart(ctx context.Context, userID uuid.UUID, guestToken string) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(guestToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest token is required")
	}

	guestSnapshot, err := s.guest.Get(ctx, guestToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: load guest cart")
	}

	userRef := CartRef{UserID: userID}
	if len(guestSnapshot.Items) == 0 {
		return s.GetCart(ctx, userRef)
	}

	dto, err := s.mutate(ctx, userRef, nil, func(snapshot *Snapshot) error {
		for _, line := range guestSnapshot.Items {
			snapshot.MergeLine(line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.guest.Delete(ctx, guestToken); err != nil {
		// The merge committed; a leftover guest blob only lingers until
		// its TTL.
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "deleting merged guest cart failed")
	}
	return dto, nil
}

func (s *service) load(ctx context.Context, ref CartRef) (Snapshot, error) {
	if ref.isGuest() {
		snapshot, err := s.guest.Get(ctx, ref.GuestToken)
		if err != nil {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: load guest cart")
		}
		return snapshot, nil
	}

	record, err := s.repo.FindByUser(ctx, ref.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Snapshot{}, nil
		}
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	return snapshotFromRecord(record), nil
}

func (s *service) mutate(ctx context.Context, ref CartRef, expectedVersion *int64, fn func(*Snapshot) error) (*CartDTO, error) {
	if ref.isGuest() {
		return s.mutateGuest(ctx, ref.GuestToken, fn)
	}
	return s.mutateUser(ctx, ref.UserID, expectedVersion, fn)
}

func (s *service) mutateGuest(ctx context.Context, guestToken string, fn func(*Snapshot) error) (*CartDTO, error) {
	snapshot, err := s.guest.Get(ctx, guestToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: load guest cart")
	}
	if err := fn(&snapshot); err != nil {
		return nil, err
	}
	snapshot.Version++
	if err := s.guest.Save(ctx, guestToken, snapshot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: save guest cart")
	}
	return NewCartDTO(snapshot), nil
}

func (s *service) mutateUser(ctx context.Context, userID uuid.UUID, expectedVersion *int64, fn func(*Snapshot) error) (*CartDTO, error) {
	var out Snapshot
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		snapshot, err := ApplyUserMutation(ctx, tx, s.repo, userID, expectedVersion, fn)
		if err != nil {
			return err
		}
		out = snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewCartDTO(out), nil
}

// ApplyUserMutation loads (or creates) the user's cart inside the given
// transaction, applies fn, persists the resulting rows, and advances the
// version counter. The counter rejects stale writers: a writer that read
// version N only commits if the row is still at N, otherwise the write
// surfaces a conflict instead of silently overwriting a concurrent change.
// Callers that compose cart writes with other tables (wishlist moves,
// checkout clears) run this inside their own transaction.
func ApplyUserMutation(ctx context.Context, tx *gorm.DB, repo CartRepository, userID uuid.UUID, expectedVersion *int64, fn func(*Snapshot) error) (Snapshot, error) {
	txRepo := repo.WithTx(tx)

	record, err := txRepo.FindByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
		}
		record, err = txRepo.Create(ctx, &models.CartRecord{UserID: userID})
		if err != nil {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
		}
	}

	if expectedVersion != nil && *expectedVersion != record.Version {
		return Snapshot{}, staleCartError(record.Version)
	}

	snapshot := snapshotFromRecord(record)
	if err := fn(&snapshot); err != nil {
		return Snapshot{}, err
	}

	if err := txRepo.ReplaceItems(ctx, record.ID, snapshot.toCartItems(record.ID)); err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace cart items")
	}

	bumped, err := txRepo.BumpVersion(ctx, record.ID, record.Version)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump cart version")
	}
	if !bumped {
		return Snapshot{}, staleCartError(record.Version)
	}

	snapshot.Version = record.Version + 1
	return snapshot, nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
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

// LoadUserSnapshot reads the user's cart inside the given transaction. A
// missing cart is an empty snapshot. Checkout uses this to price and clear
// the cart in the same transaction that writes the order.
func LoadUserSnapshot(ctx context.Context, tx *gorm.DB, repo CartRepository, userID uuid.UUID) (Snapshot, error) {
	record, err := repo.WithTx(tx).FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Snapshot{}, nil
		}
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	return snapshotFromRecord(record), nil
}

func staleCartError(currentVersion int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently").
		WithDetails(map[string]any{"current_version": currentVersion})
}

package reviews

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/internal/catalog"
	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/outbox"
)

const (
	minRating        = 1
	maxRating        = 5
	maxTitleLength   = 150
	maxCommentLength = 2000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateReviewInput is the payload for a new review.
type CreateReviewInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
}

// UpdateReviewInput carries edits to an existing review. Nil fields are
// left unchanged.
type UpdateReviewInput struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title"`
	Comment *string `json:"comment"`
}

// Service exposes review operations.
type Service interface {
	ListByProduct(ctx context.Context, productID uuid.UUID) (*ProductReviewsDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
	Update(ctx context.Context, userID, reviewID uuid.UUID, input UpdateReviewInput) (*ReviewDTO, error)
	Delete(ctx context.Context, userID, reviewID uuid.UUID) error
}

// ServiceParams wires the review service dependencies.
type ServiceParams struct {
	Repo    ReviewRepository
	Catalog *catalog.Repository
	Users   userLoader
	Tx      txRunner
	Outbox  eventEmitter
	Logger  *logger.Logger
}

type service struct {
	repo    ReviewRepository
	catalog *catalog.Repository
	users   userLoader
	tx      txRunner
	outbox  eventEmitter
	logg    *logger.Logger
}

// NewService builds the review service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review repository is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repository is required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user loader is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:    params.Repo,
		catalog: params.Catalog,
		users:   params.Users,
		tx:      params.Tx,
		outbox:  params.Outbox,
		logg:    params.Logger,
	}, nil
}

// ListByProduct returns the product's reviews newest first, together with
// the aggregate stored on the product row.
func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) (*ProductReviewsDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	items, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list reviews")
	}
	return &ProductReviewsDTO{
		Items:       newReviewDTOs(items),
		RatingAvg:   product.RatingAvg,
		ReviewCount: product.ReviewCount,
	}, nil
}

// Create writes the review, refreshes the product aggregate, and queues the
// submitted event, all in one transaction. A second review of the same
// product by the same author is a conflict.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to review products")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	comment := strings.TrimSpace(input.Comment)
	if err := validateText(title, comment); err != nil {
		return nil, err
	}

	if _, err := s.catalog.FindByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	author, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	review := models.Review{
		ProductID:  input.ProductID,
		UserID:     userID,
		AuthorName: displayName(author),
		Rating:     input.Rating,
		Title:      title,
		Comment:    comment,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Insert(ctx, &review); err != nil {
			if db.IsUniqueViolation(err, "reviews_product_author_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert review")
		}

		avg, count, err := s.refreshAggregate(ctx, tx, txRepo, input.ProductID)
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewSubmitted,
			AggregateType: enums.AggregateReview,
			AggregateID:   review.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: reviewSubmittedEvent{
				ReviewID:    review.ID,
				ProductID:   review.ProductID,
				Rating:      review.Rating,
				RatingAvg:   avg,
				ReviewCount: count,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	dto := NewReviewDTO(review)
	return &dto, nil
}

// Update edits the caller's own review and refreshes the aggregate.
func (s *service) Update(ctx context.Context, userID, reviewID uuid.UUID, input UpdateReviewInput) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to edit reviews")
	}
	if reviewID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
	}

	var updated models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		review, err := s.loadOwnReview(ctx, txRepo, userID, reviewID)
		if err != nil {
			return err
		}

		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Title != nil {
			review.Title = strings.TrimSpace(*input.Title)
		}
		if input.Comment != nil {
			review.Comment = strings.TrimSpace(*input.Comment)
		}
		if err := validateText(review.Title, review.Comment); err != nil {
			return err
		}

		if err := txRepo.Update(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update review")
		}
		if _, _, err := s.refreshAggregate(ctx, tx, txRepo, review.ProductID); err != nil {
			return err
		}
		updated = *review
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := NewReviewDTO(updated)
	return &dto, nil
}

// Delete removes the caller's own review and refreshes the aggregate.
func (s *service) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to delete reviews")
	}
	if reviewID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		review, err := s.loadOwnReview(ctx, txRepo, userID, reviewID)
		if err != nil {
			return err
		}
		if err := txRepo.Delete(ctx, review.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete review")
		}
		_, _, err = s.refreshAggregate(ctx, tx, txRepo, review.ProductID)
		return err
	})
}

func (s *service) loadOwnReview(ctx context.Context, repo ReviewRepository, userID, reviewID uuid.UUID) (*models.Review, error) {
	review, err := repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load review")
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another customer")
	}
	return review, nil
}

// refreshAggregate recomputes the product's rating average and count from
// the review rows and writes them onto the product, inside the caller's
// transaction.
func (s *service) refreshAggregate(ctx context.Context, tx *gorm.DB, repo ReviewRepository, productID uuid.UUID) (float64, int, error) {
	avg, count, err := repo.AggregateByProduct(ctx, productID)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: aggregate reviews")
	}
	avg = math.Round(avg*10) / 10
	if err := s.catalog.WithTx(tx).UpdateRatingAggregate(ctx, productID, avg, count); err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product rating")
	}
	return avg, count, nil
}

type reviewSubmittedEvent struct {
	ReviewID    uuid.UUID `json:"reviewId"`
	ProductID   uuid.UUID `json:"productId"`
	Rating      int       `json:"rating"`
	RatingAvg   float64   `json:"ratingAvg"`
	ReviewCount int       `json:"reviewCount"`
}

func validateRating(rating int) error {
	if rating < minRating || rating > maxRating {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	return nil
}

func validateText(title, comment string) error {
	if len(title) > maxTitleLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is too long")
	}
	if len(comment) > maxCommentLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "comment is too long")
	}
	return nil
}

func displayName(user *models.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		return "Anonymous"
	}
	return name
}

package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/db/models"
)

// ReviewDTO is the review payload returned to clients.
type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	UserID     uuid.UUID `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProductReviewsDTO pairs a product's reviews with its current aggregate.
type ProductReviewsDTO struct {
	Items       []ReviewDTO `json:"items"`
	RatingAvg   float64     `json:"rating_avg"`
	ReviewCount int         `json:"review_count"`
}

// NewReviewDTO builds the client payload from the persisted model.
func NewReviewDTO(review models.Review) ReviewDTO {
	return ReviewDTO{
		ID:         review.ID,
		ProductID:  review.ProductID,
		UserID:     review.UserID,
		AuthorName: review.AuthorName,
		Rating:     review.Rating,
		Title:      review.Title,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt,
		UpdatedAt:  review.UpdatedAt,
	}
}

func newReviewDTOs(reviews []models.Review) []ReviewDTO {
	out := make([]ReviewDTO, len(reviews))
	for i, review := range reviews {
		out[i] = NewReviewDTO(review)
	}
	return out
}

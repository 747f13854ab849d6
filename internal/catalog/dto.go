package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/pkg/db/models"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Brand          string    `json:"brand,omitempty"`
	Category       string    `json:"category"`
	Tags           []string  `json:"tags,omitempty"`
	PriceCents     int       `json:"price_cents"`
	CompareAtCents *int      `json:"compare_at_cents,omitempty"`
	ImageURL       *string   `json:"image_url,omitempty"`
	IsFeatured     bool      `json:"is_featured"`
	InStock        bool      `json:"in_stock"`
	RatingAvg      float64   `json:"rating_avg"`
	ReviewCount    int       `json:"review_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductReviewDTO is the review projection embedded in product detail.
type ProductReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProductDetailDTO pairs the product with its reviews and related items.
type ProductDetailDTO struct {
	Product ProductDTO         `json:"product"`
	Reviews []ProductReviewDTO `json:"reviews"`
	Related []ProductDTO       `json:"related,omitempty"`
}

// ProductPageDTO is a cursor-paginated admin listing.
type ProductPageDTO struct {
	Items      []ProductDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewProductDTO builds the client payload from the persisted model.
func NewProductDTO(product models.Product) ProductDTO {
	return ProductDTO{
		ID:             product.ID,
		Name:           product.Name,
		Description:    product.Description,
		Brand:          product.Brand,
		Category:       product.Category,
		Tags:           append([]string{}, product.Tags...),
		PriceCents:     product.PriceCents,
		CompareAtCents: product.CompareAtCents,
		ImageURL:       product.ImageURL,
		IsFeatured:     product.IsFeatured,
		InStock:        product.InStock,
		RatingAvg:      product.RatingAvg,
		ReviewCount:    product.ReviewCount,
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
	}
}

// NewProductDTOs maps the slice preserving order.
func NewProductDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, len(products))
	for i, product := range products {
		out[i] = NewProductDTO(product)
	}
	return out
}

func newProductReviewDTOs(reviews []models.Review) []ProductReviewDTO {
	out := make([]ProductReviewDTO, len(reviews))
	for i, review := range reviews {
		out[i] = ProductReviewDTO{
			ID:         review.ID,
			AuthorName: review.AuthorName,
			Rating:     review.Rating,
			Title:      review.Title,
			Comment:    review.Comment,
			CreatedAt:  review.CreatedAt,
		}
	}
	return out
}

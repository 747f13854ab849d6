package wishlist

import (
	"time"

	"github.com/graybeam/storefront-backend/internal/catalog"
)

// WishlistItemDTO wraps the product payload included in a wishlist row.
type WishlistItemDTO struct {
	Product catalog.ProductDTO `json:"product"`
	SavedAt time.Time          `json:"saved_at"`
}

// WishlistDTO is the full wishlist view in save order.
type WishlistDTO struct {
	Items []WishlistItemDTO `json:"items"`
	Count int               `json:"count"`
}

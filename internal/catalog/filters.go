package catalog

import (
	"strings"

	"github.com/graybeam/storefront-backend/pkg/db/models"
)

// FilterState is the composable filter input for catalog browsing. Zero
// values disable the corresponding pass: a zero max price leaves the range
// unbounded, a zero rating skips the rating pass, an empty category matches
// every category, and InStockOnly false keeps out-of-stock items.
type FilterState struct {
	Query         string  `json:"q"`
	PriceMinCents int     `json:"price_min_cents"`
	PriceMaxCents int     `json:"price_max_cents"`
	MinRating     float64 `json:"min_rating"`
	Category      string  `json:"category"`
	InStockOnly   bool    `json:"in_stock_only"`
}

// applyFilters composes the filter passes in order: text search, inclusive
// price range, minimum rating, exact category, in-stock. Each pass is a pure
// function over the slice produced by the previous one.
func applyFilters(products []models.Product, state FilterState) []models.Product {
	out := products
	if strings.TrimSpace(state.Query) != "" {
		out = rankProducts(out, state.Query)
	}
	out = filterPriceRange(out, state.PriceMinCents, state.PriceMaxCents)
	if state.MinRating > 0 {
		out = filterMinRating(out, state.MinRating)
	}
	if category := strings.TrimSpace(state.Category); category != "" {
		out = filterCategory(out, category)
	}
	if state.InStockOnly {
		out = filterInStock(out)
	}
	return out
}

func filterPriceRange(products []models.Product, minCents, maxCents int) []models.Product {
	if minCents <= 0 && maxCents <= 0 {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, product := range products {
		if product.PriceCents < minCents {
			continue
		}
		if maxCents > 0 && product.PriceCents > maxCents {
			continue
		}
		out = append(out, product)
	}
	return out
}

func filterMinRating(products []models.Product, minRating float64) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, product := range products {
		if product.RatingAvg >= minRating {
			out = append(out, product)
		}
	}
	return out
}

func filterCategory(products []models.Product, category string) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, product := range products {
		if strings.EqualFold(product.Category, category) {
			out = append(out, product)
		}
	}
	return out
}

func filterInStock(products []models.Product) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, product := range products {
		if product.InStock {
			out = append(out, product)
		}
	}
	return out
}

package catalog

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/graybeam/storefront-backend/pkg/db/models"
)

const fallbackProductName = "Unnamed Product"

// RawProduct tolerates the legacy payload shapes catalog data arrives in:
// price as a number or string, `rating` vs `ratings.average`, a boolean
// `inStock` flag vs a numeric `stock` count, and a single `image` vs an
// `images` array. Normalize resolves every alternate once so downstream
// code only ever sees models.Product.
type RawProduct struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Brand       string      `json:"brand"`
	Category    string      `json:"category"`
	Tags        []string    `json:"tags"`
	Price       any         `json:"price"`
	CompareAt   any         `json:"compare_at_price"`
	Rating      any         `json:"rating"`
	Ratings     *rawRatings `json:"ratings"`
	InStock     any         `json:"inStock"`
	Stock       any         `json:"stock"`
	Image       string      `json:"image"`
	Images      []string    `json:"images"`
	Featured    bool        `json:"featured"`
}

type rawRatings struct {
	Average any `json:"average"`
	Count   any `json:"count"`
}

// Normalize coerces the raw payload into the canonical product shape with
// zero/empty fallbacks for malformed fields.
func (raw RawProduct) Normalize() models.Product {
	product := models.Product{
		Name:        strings.TrimSpace(raw.Name),
		Description: strings.TrimSpace(raw.Description),
		Brand:       strings.TrimSpace(raw.Brand),
		Category:    strings.TrimSpace(raw.Category),
		PriceCents:  dollarsToCents(raw.Price),
		InStock:     coerceInStock(raw.InStock, raw.Stock),
		IsActive:    true,
		IsFeatured:  raw.Featured,
	}
	if product.Name == "" {
		product.Name = fallbackProductName
	}
	if id, err := uuid.Parse(strings.TrimSpace(raw.ID)); err == nil {
		product.ID = id
	} else {
		product.ID = uuid.New()
	}
	if len(raw.Tags) > 0 {
		product.Tags = pq.StringArray(raw.Tags)
	}

	if cents := dollarsToCents(raw.CompareAt); cents > 0 {
		product.CompareAtCents = &cents
	}

	product.RatingAvg = coerceRatingAverage(raw)
	product.ReviewCount = coerceRatingCount(raw)

	if image := firstImage(raw); image != "" {
		product.ImageURL = &image
	}
	return product
}

func coerceRatingAverage(raw RawProduct) float64 {
	if avg, ok := coerceFloat(raw.Rating); ok {
		return clampRating(avg)
	}
	if raw.Ratings != nil {
		if avg, ok := coerceFloat(raw.Ratings.Average); ok {
			return clampRating(avg)
		}
	}
	return 0
}

func coerceRatingCount(raw RawProduct) int {
	if raw.Ratings == nil {
		return 0
	}
	count, ok := coerceFloat(raw.Ratings.Count)
	if !ok || count < 0 {
		return 0
	}
	return int(count)
}

func clampRating(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 5 {
		return 5
	}
	return value
}

func coerceInStock(flag, stock any) bool {
	switch v := flag.(type) {
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	if count, ok := coerceFloat(stock); ok {
		return count > 0
	}
	return false
}

func firstImage(raw RawProduct) string {
	if image := strings.TrimSpace(raw.Image); image != "" {
		return image
	}
	for _, image := range raw.Images {
		if trimmed := strings.TrimSpace(image); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// dollarsToCents converts a loosely typed dollar amount into integer cents,
// falling back to zero on malformed input.
func dollarsToCents(value any) int {
	amount, ok := coerceFloat(value)
	if !ok || amount < 0 {
		return 0
	}
	cents := decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0)
	return int(cents.IntPart())
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "$"))
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

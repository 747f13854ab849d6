package cart

import (
	"github.com/google/uuid"
)

// CartLineDTO is the client view of one cart line.
type CartLineDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Category       string    `json:"category,omitempty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int       `json:"line_total_cents"`
}

// CartDTO is the client view of the whole cart with derived totals.
type CartDTO struct {
	Items         []CartLineDTO `json:"items"`
	SubtotalCents int           `json:"subtotal_cents"`
	ItemCount     int           `json:"item_count"`
	Version       int64         `json:"version"`
}

// NewCartDTO projects the snapshot, preserving add order.
func NewCartDTO(snapshot Snapshot) *CartDTO {
	items := make([]CartLineDTO, 0, len(snapshot.Items))
	for _, line := range snapshot.Items {
		items = append(items, CartLineDTO{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Category:       line.Category,
			UnitPriceCents: line.UnitPriceCents,
			ImageURL:       line.ImageURL,
			Quantity:       line.Quantity,
			LineTotalCents: line.UnitPriceCents * line.Quantity,
		})
	}
	return &CartDTO{
		Items:         items,
		SubtotalCents: snapshot.SubtotalCents,
		ItemCount:     snapshot.ItemCount,
		Version:       snapshot.Version,
	}
}

package checkout

import (
	"github.com/graybeam/storefront-backend/internal/cart"
)

// QuoteDTO is the priced cart returned before payment.
type QuoteDTO struct {
	Cart          cart.CartDTO `json:"cart"`
	SubtotalCents int          `json:"subtotal_cents"`
	ShippingCents int          `json:"shipping_cents"`
	TaxCents      int          `json:"tax_cents"`
	TotalCents    int          `json:"total_cents"`
}

func newQuoteDTO(snapshot cart.Snapshot, totals Totals) *QuoteDTO {
	return &QuoteDTO{
		Cart:          *cart.NewCartDTO(snapshot),
		SubtotalCents: totals.SubtotalCents,
		ShippingCents: totals.ShippingCents,
		TaxCents:      totals.TaxCents,
		TotalCents:    totals.TotalCents,
	}
}

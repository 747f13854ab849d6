package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/graybeam/storefront-backend/pkg/config"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
)

// Pricing computes order totals from a cart subtotal. Shipping is a flat
// fee and tax is charged on the merchandise subtotal, both set at deploy
// time.
type Pricing struct {
	shippingFlatCents int64
	taxRate           decimal.Decimal
}

// NewPricing parses the configured rates once so quoting never re-parses
// per request.
func NewPricing(cfg config.CheckoutConfig) (*Pricing, error) {
	if cfg.ShippingFlatCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must not be negative")
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.TaxRatePercent))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse tax rate")
	}
	if rate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must not be negative")
	}
	return &Pricing{shippingFlatCents: cfg.ShippingFlatCents, taxRate: rate}, nil
}

// Totals is the cost breakdown for a checkout.
type Totals struct {
	SubtotalCents int
	ShippingCents int
	TaxCents      int
	TotalCents    int
}

// Quote prices the subtotal. Tax cents are rounded half up so 8% of $24.99
// comes out at $2.00 even.
func (p *Pricing) Quote(subtotalCents int) Totals {
	tax := decimal.NewFromInt(int64(subtotalCents)).
		Mul(p.taxRate).
		Div(decimal.NewFromInt(100)).
		Round(0)
	totals := Totals{
		SubtotalCents: subtotalCents,
		ShippingCents: int(p.shippingFlatCents),
		TaxCents:      int(tax.IntPart()),
	}
	totals.TotalCents = totals.SubtotalCents + totals.ShippingCents + totals.TaxCents
	return totals
}

package enums

import "fmt"

// Currency is the settlement currency on an order. Checkout only charges
// USD today; CAD is accepted on historical rows.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
)

var validCurrencies = map[Currency]struct{}{
	CurrencyUSD: {},
	CurrencyCAD: {},
}

func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	_, ok := validCurrencies[c]
	return ok
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}

package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

// PaymentCreateParams carries the inputs for capturing a card payment.
// AmountCents is the full order total, shipping and tax included.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	CustomerID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) toSquareRequest(idempotencyKey string) *sq.CreatePaymentRequest {
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		LocationID:     optString(p.LocationID),
		CustomerID:     optString(p.CustomerID),
		SourceID:       p.SourceID,
	}
	if p.AmountCents > 0 {
		req.AmountMoney = &sq.Money{
			Amount:   amountPtr(p.AmountCents),
			Currency: currencyPtr(p.Currency),
		}
	}
	req.Note = optString(p.Note)
	req.ReferenceID = optString(p.ReferenceID)
	return req
}

// optString maps blank strings to nil so the SDK omits the field.
func optString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func amountPtr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/graybeam/storefront-backend/api/middleware"
	"github.com/graybeam/storefront-backend/api/responses"
	"github.com/graybeam/storefront-backend/api/validators"
	"github.com/graybeam/storefront-backend/internal/checkout"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/types"
)

type submitCheckoutBody struct {
	Email               string        `json:"email" validate:"required,email"`
	ShippingAddress     types.Address `json:"shipping_address" validate:"required"`
	SourceID            string        `json:"source_id" validate:"required"`
	ExpectedCartVersion *int64        `json:"expected_cart_version,omitempty"`
}

type retryPaymentBody struct {
	SourceID string `json:"source_id" validate:"required"`
}

// CheckoutQuote prices the caller's cart with shipping and tax.
func CheckoutQuote(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Quote(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CheckoutSubmit captures payment and places the order.
func CheckoutSubmit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitCheckoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), middleware.UserIDFromContext(r.Context()), checkout.SubmitInput{
			Email:               body.Email,
			ShippingAddress:     body.ShippingAddress,
			SourceID:            body.SourceID,
			ExpectedCartVersion: body.ExpectedCartVersion,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutRetryPayment reattempts capture on a payment-failed order.
func CheckoutRetryPayment(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body retryPaymentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RetryPayment(r.Context(), middleware.UserIDFromContext(r.Context()), orderID, body.SourceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

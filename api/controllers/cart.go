package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/graybeam/storefront-backend/api/middleware"
	"github.com/graybeam/storefront-backend/api/responses"
	"github.com/graybeam/storefront-backend/api/validators"
	"github.com/graybeam/storefront-backend/internal/cart"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
)

type cartItemBody struct {
	ProductID       string `json:"product_id" validate:"required"`
	Quantity        int    `json:"quantity" validate:"required,gte=1,lte=99"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type cartQuantityBody struct {
	Quantity        int    `json:"quantity" validate:"required,gte=1,lte=99"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type cartVersionBody struct {
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// cartRefFromRequest resolves the caller's cart identity. Signed-in users
// get their account cart; everybody else must present a guest token.
func cartRefFromRequest(r *http.Request) (cart.CartRef, error) {
	if userID := middleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
		return cart.CartRef{UserID: userID}, nil
	}
	if token := middleware.GuestToken(r); token != "" {
		return cart.CartRef{GuestToken: token}, nil
	}
	return cart.CartRef{}, pkgerrors.New(pkgerrors.CodeValidation, "guest cart token or authentication required")
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref, err := cartRefFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetCart(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref, err := cartRefFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartItemBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParsePathUUID(body.ProductID, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddItem(r.Context(), ref, cart.AddItemInput{
			ProductID:       productID,
			Quantity:        body.Quantity,
			ExpectedVersion: body.ExpectedVersion,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func CartUpdateQuantity(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref, err := cartRefFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartQuantityBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateQuantity(r.Context(), ref, cart.UpdateQuantityInput{
			ProductID:       productID,
			Quantity:        body.Quantity,
			ExpectedVersion: body.ExpectedVersion,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref, err := cartRefFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var expected *int64
		if r.ContentLength > 0 {
			var body cartVersionBody
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			expected = body.ExpectedVersion
		}

		result, err := svc.RemoveItem(r.Context(), ref, productID, expected)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref, err := cartRefFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Clear(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

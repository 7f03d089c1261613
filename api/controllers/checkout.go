package controllers

import (
	"net/http"

	"github.com/avelinehq/cartside/api/responses"
	"github.com/avelinehq/cartside/api/validators"
	"github.com/avelinehq/cartside/internal/lifecycle"
	pkgerrors "github.com/avelinehq/cartside/pkg/errors"
	"github.com/avelinehq/cartside/pkg/logger"
)

// CheckoutBegin freezes the cart and opens an order with the external
// checkout collaborator.
func CheckoutBegin(core *lifecycle.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}

		var payload beginCheckoutRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		active, err := core.Checkout().Begin(r.Context(), payload.Contact)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderRef: active.OrderRef,
			Total:    active.Total.String(),
			Items:    len(active.Lines),
		})
	}
}

// CheckoutConfirm acknowledges payment success and clears the cart.
func CheckoutConfirm(core *lifecycle.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}

		if err := core.Checkout().ConfirmSuccess(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmResponse{Cleared: true})
	}
}

// CheckoutCancel abandons the checkout mid-flow. The cart stays intact.
func CheckoutCancel(core *lifecycle.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}

		if err := core.Checkout().Cancel(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmResponse{Cleared: false})
	}
}

type beginCheckoutRequest struct {
	Contact string `json:"contact" validate:"omitempty,email"`
}

type checkoutResponse struct {
	OrderRef string `json:"order_ref"`
	Total    string `json:"total"`
	Items    int    `json:"items"`
}

type confirmResponse struct {
	Cleared bool `json:"cleared"`
}

package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/avelinehq/cartside/api/responses"
	"github.com/avelinehq/cartside/api/validators"
	"github.com/avelinehq/cartside/internal/lifecycle"
	pkgerrors "github.com/avelinehq/cartside/pkg/errors"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/money"
	"github.com/avelinehq/cartside/pkg/types"
)

// CartGet returns the current lines and totals.
func CartGet(core *lifecycle.Coordinator, policy money.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}
		responses.WriteSuccess(w, newCartResponse(core, policy))
	}
}

// CartAddItem adds a product with its captured price snapshot. Adding a
// product already in the cart bumps its quantity and keeps the original
// snapshot.
func CartAddItem(core *lifecycle.Coordinator, policy money.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(payload.UnitListPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit list price"))
			return
		}
		if price.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unit list price cannot be negative"))
			return
		}

		core.Store().Add(payload.ProductID, types.PriceSnapshot{
			UnitListPrice:   price,
			DiscountPercent: payload.DiscountPercent,
		})
		responses.WriteSuccess(w, newCartResponse(core, policy))
	}
}

// CartSetQuantity sets an absolute quantity for a line. Zero or below
// removes the line.
func CartSetQuantity(core *lifecycle.Coordinator, policy money.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}

		productID := strings.TrimSpace(chi.URLParam(r, "productID"))
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		core.Store().SetQuantity(productID, payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(core, policy))
	}
}

// CartRemoveItem drops a line. Removing an absent product is a no-op.
func CartRemoveItem(core *lifecycle.Coordinator, policy money.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}

		productID := strings.TrimSpace(chi.URLParam(r, "productID"))
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
			return
		}

		core.Store().Remove(productID)
		responses.WriteSuccess(w, newCartResponse(core, policy))
	}
}

// CartClear empties the cart.
func CartClear(core *lifecycle.Coordinator, policy money.ShippingPolicy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if core == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart core unavailable"))
			return
		}

		core.Store().Clear()
		responses.WriteSuccess(w, newCartResponse(core, policy))
	}
}

type addItemRequest struct {
	ProductID       string `json:"product_id" validate:"required"`
	UnitListPrice   string `json:"unit_list_price" validate:"required"`
	DiscountPercent *int   `json:"discount_percent" validate:"omitempty,min=0,max=100"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartLineResponse struct {
	ProductID       string `json:"product_id"`
	UnitListPrice   string `json:"unit_list_price"`
	DiscountPercent *int   `json:"discount_percent,omitempty"`
	EffectivePrice  string `json:"effective_price"`
	Quantity        int    `json:"quantity"`
	LineTotal       string `json:"line_total"`
}

type cartResponse struct {
	Owner    string             `json:"owner"`
	Revision int64              `json:"revision"`
	Items    []cartLineResponse `json:"items"`
	Totals   totalsResponse     `json:"totals"`
}

type totalsResponse struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Total    string `json:"total"`
}

func newCartResponse(core *lifecycle.Coordinator, policy money.ShippingPolicy) cartResponse {
	lines := core.Store().Lines()
	items := make([]cartLineResponse, 0, len(lines))
	for _, line := range lines {
		items = append(items, cartLineResponse{
			ProductID:       line.ProductID,
			UnitListPrice:   line.UnitListPrice.String(),
			DiscountPercent: line.DiscountPercent,
			EffectivePrice:  money.EffectivePrice(line.UnitListPrice, line.DiscountPercent).String(),
			Quantity:        line.Quantity,
			LineTotal:       money.LineTotal(line).String(),
		})
	}

	subtotal := money.CartTotal(lines)
	shipping := policy.Fee(subtotal)
	return cartResponse{
		Owner:    core.ActiveOwner().String(),
		Revision: core.Store().Revision(),
		Items:    items,
		Totals: totalsResponse{
			Subtotal: subtotal.String(),
			Shipping: shipping.String(),
			Total:    subtotal.Add(shipping).String(),
		},
	}
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/middleware"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/responses"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/validators"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/cart"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
)

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Size      string `json:"size,omitempty"`
	UnitPrice string `json:"unitPrice" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=99"`
}

// GetCart returns the caller's aggregated cart.
func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		view, err := svc.GetCart(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AddCartItem adds a product line, merging quantity onto an existing line for
// the same product and size.
func AddCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unitPrice, err := decimal.NewFromString(payload.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unitPrice must be a non-negative amount").
					WithDetails(map[string]string{"field": "unitPrice"}))
			return
		}

		item, err := svc.AddItem(r.Context(), customerID, cart.AddItemInput{
			ProductID: payload.ProductID,
			Name:      payload.Name,
			Size:      payload.Size,
			UnitPrice: unitPrice,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// UpdateCartItem changes the quantity of one cart line.
func UpdateCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())

		itemID, err := validators.ParseUUIDParam(chi.URLParam(r, "itemID"), "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateQuantity(r.Context(), customerID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// RemoveCartItem deletes one cart line.
func RemoveCartItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())

		itemID, err := validators.ParseUUIDParam(chi.URLParam(r, "itemID"), "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveItem(r.Context(), customerID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// ClearCart empties the caller's cart.
func ClearCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		if err := svc.Clear(r.Context(), customerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

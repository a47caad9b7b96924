package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/middleware"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/responses"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/validators"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/orders"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
)

// ListOrders returns the caller's orders, newest first.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())
		summaries, err := svc.ListByCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summaries)
	}
}

// GetOrder returns one order by id, scoped to the caller.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if detail.CustomerID != middleware.CustomerIDFromContext(r.Context()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// GetOrderByNumber resolves an order from its public number.
func GetOrderByNumber(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number required"))
			return
		}

		detail, err := svc.GetByNumber(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if detail.CustomerID != middleware.CustomerIDFromContext(r.Context()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

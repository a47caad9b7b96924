package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/middleware"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/responses"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/validators"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/orders"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

type transitionRequest struct {
	Status   string           `json:"status" validate:"required"`
	Note     string           `json:"note,omitempty" validate:"omitempty,max=500"`
	Delivery *deliveryRequest `json:"delivery,omitempty"`
}

type deliveryRequest struct {
	Courier        string `json:"courier,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	EstimatedDate  string `json:"estimatedDate,omitempty"`
}

// TransitionOrderStatus moves an order along the fulfilment progression.
// Staff-only; the staff name is recorded on the audit trail.
func TransitionOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		var delivery *types.DeliveryInfo
		if payload.Delivery != nil {
			delivery = &types.DeliveryInfo{
				Courier:        payload.Delivery.Courier,
				TrackingNumber: payload.Delivery.TrackingNumber,
				EstimatedDate:  payload.Delivery.EstimatedDate,
			}
		}

		detail, err := svc.TransitionStatus(r.Context(), orders.TransitionInput{
			OrderID:   orderID,
			To:        status,
			Note:      payload.Note,
			UpdatedBy: middleware.StaffNameFromContext(r.Context()),
			Delivery:  delivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

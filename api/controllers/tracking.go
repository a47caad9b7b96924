package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/responses"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/tracking"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
)

// TrackOrder returns the public fulfilment timeline for an order number.
// Tracking by number is deliberately open so a receipt is enough to follow a
// delivery.
func TrackOrder(tracker *tracking.Tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tracker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracking unavailable"))
			return
		}

		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		timeline, err := tracker.ByNumber(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, timeline)
	}
}

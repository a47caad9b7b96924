package controllers

import (
	"net/http"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/middleware"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/responses"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/validators"
	checkoutsvc "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/checkout"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/payments"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

type checkoutRequest struct {
	PaymentMethod string          `json:"paymentMethod" validate:"required,oneof=mpesa card cash"`
	Shipping      shippingRequest `json:"shipping" validate:"required"`
	TermsAccepted bool            `json:"termsAccepted"`
	MpesaPhone    string          `json:"mpesaPhone,omitempty" validate:"omitempty,min=10,max=13"`
	CardSourceID  string          `json:"cardSourceId,omitempty"`
}

type shippingRequest struct {
	FullName string `json:"fullName" validate:"required,min=2"`
	Phone    string `json:"phone" validate:"required,min=10,max=13"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Address  string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	Country  string `json:"country,omitempty"`
	Method   string `json:"method" validate:"required,oneof=standard express pickup"`
	Notes    string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// Checkout submits the caller's cart as an order and collects payment.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID := middleware.CustomerIDFromContext(r.Context())

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}
		shippingMethod, err := enums.ParseShippingMethod(payload.Shipping.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping method"))
			return
		}

		details, err := paymentDetails(method, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		country := payload.Shipping.Country
		if country == "" {
			country = "Kenya"
		}

		result, err := svc.PlaceOrder(r.Context(), checkoutsvc.Input{
			CustomerID:    customerID,
			PaymentMethod: method,
			Shipping: types.ShippingInfo{
				FullName: payload.Shipping.FullName,
				Phone:    payload.Shipping.Phone,
				Email:    payload.Shipping.Email,
				Address:  payload.Shipping.Address,
				City:     payload.Shipping.City,
				Country:  country,
				Method:   shippingMethod,
				Notes:    payload.Shipping.Notes,
			},
			Payment:       details,
			TermsAccepted: payload.TermsAccepted,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func paymentDetails(method enums.PaymentMethod, payload checkoutRequest) (payments.Details, error) {
	switch method {
	case enums.PaymentMethodMpesa:
		if payload.MpesaPhone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "mpesaPhone required for mpesa payments").
				WithDetails(map[string]string{"field": "mpesaPhone"})
		}
		return payments.MpesaDetails{Phone: payload.MpesaPhone}, nil
	case enums.PaymentMethodCard:
		if payload.CardSourceID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cardSourceId required for card payments").
				WithDetails(map[string]string{"field": "cardSourceId"})
		}
		return payments.CardDetails{SourceID: payload.CardSourceID}, nil
	case enums.PaymentMethodCash:
		return payments.CashDetails{}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
}

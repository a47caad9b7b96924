package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/responses"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
)

type contextKey string

const (
	ctxCustomerID contextKey = "customer_id"
	ctxStaffName  contextKey = "staff_name"
)

const (
	customerIDHeader = "X-Customer-Id"
	staffNameHeader  = "X-Staff-Name"
)

// CustomerIDFromContext returns the authenticated customer, or uuid.Nil.
func CustomerIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxCustomerID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func StaffNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStaffName).(string); ok {
		return v
	}
	return ""
}

// WithCustomerID injects the customer identifier into the context.
func WithCustomerID(ctx context.Context, customerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCustomerID, customerID)
}

func WithStaffName(ctx context.Context, staff string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStaffName, staff)
}

// CustomerContext resolves the caller identity from the gateway-provided
// headers. Identity verification happens upstream; this only propagates it.
func CustomerContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := strings.TrimSpace(r.Header.Get(customerIDHeader)); raw != "" {
				customerID, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(ctx, logg, w,
						pkgerrors.New(pkgerrors.CodeValidation, "customer id header must be a UUID"))
					return
				}
				ctx = WithCustomerID(ctx, customerID)
				if logg != nil {
					ctx = logg.WithCustomerID(ctx, customerID.String())
				}
			}
			if staff := strings.TrimSpace(r.Header.Get(staffNameHeader)); staff != "" {
				ctx = WithStaffName(ctx, staff)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCustomer rejects requests that did not resolve a customer identity.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CustomerIDFromContext(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "customer identity required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
)

// Result is the terminal or intermediate state of a payment attempt as
// reported by a provider.
type Result string

const (
	ResultCompleted Result = "completed"
	ResultFailed    Result = "failed"
	ResultPending   Result = "pending"
)

// Outcome is the provider-agnostic answer to a submit or status check.
// ProviderRef is the handle used for subsequent status polls; TransactionID is
// only set once the payment settled.
type Outcome struct {
	Result        Result
	ProviderRef   string
	TransactionID string
	Message       string
}

// Details carries the method-specific inputs for a payment.
type Details interface {
	Method() enums.PaymentMethod
}

// MpesaDetails requests an STK push to the given phone.
type MpesaDetails struct {
	Phone string
}

func (MpesaDetails) Method() enums.PaymentMethod { return enums.PaymentMethodMpesa }

// CardDetails charges a tokenized card source.
type CardDetails struct {
	SourceID string
}

func (CardDetails) Method() enums.PaymentMethod { return enums.PaymentMethodCard }

// CashDetails marks the order as payable on delivery.
type CashDetails struct{}

func (CashDetails) Method() enums.PaymentMethod { return enums.PaymentMethodCash }

// Request is one payment attempt for an order.
type Request struct {
	OrderID     uuid.UUID
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Details     Details
}

// Gateway is the boundary every payment provider adapter implements. Submit
// starts the payment; a pending outcome means the caller must poll CheckStatus
// with the returned provider reference.
type Gateway interface {
	Submit(ctx context.Context, req Request) (*Outcome, error)
	CheckStatus(ctx context.Context, providerRef string) (*Outcome, error)
}

// Dispatcher routes payment requests to the adapter registered for the method.
type Dispatcher struct {
	gateways map[enums.PaymentMethod]Gateway
}

// NewDispatcher wires one adapter per supported payment method.
func NewDispatcher(mpesa, card, cash Gateway) (*Dispatcher, error) {
	if mpesa == nil {
		return nil, fmt.Errorf("mpesa gateway required")
	}
	if card == nil {
		return nil, fmt.Errorf("card gateway required")
	}
	if cash == nil {
		return nil, fmt.Errorf("cash gateway required")
	}
	return &Dispatcher{
		gateways: map[enums.PaymentMethod]Gateway{
			enums.PaymentMethodMpesa: mpesa,
			enums.PaymentMethodCard:  card,
			enums.PaymentMethodCash:  cash,
		},
	}, nil
}

// ForMethod returns the adapter handling the given payment method.
func (d *Dispatcher) ForMethod(method enums.PaymentMethod) (Gateway, error) {
	gw, ok := d.gateways[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", method))
	}
	return gw, nil
}

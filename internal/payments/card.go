package payments

import (
	"context"
	"fmt"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/square"
)

type squareClient interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// CardGateway charges tokenized cards through Square. Square answers
// synchronously for most charges; an APPROVED or PENDING payment falls back to
// status polling.
type CardGateway struct {
	client squareClient
}

func NewCardGateway(client squareClient) (*CardGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &CardGateway{client: client}, nil
}

func (g *CardGateway) Submit(ctx context.Context, req Request) (*Outcome, error) {
	details, ok := req.Details.(CardDetails)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card details required")
	}
	if details.SourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card source id required")
	}

	payment, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: req.Amount.Mul(centsPerUnit).IntPart(),
		Currency:    req.Currency,
		SourceID:    details.SourceID,
		ReferenceID: req.OrderNumber,
		Note:        fmt.Sprintf("Tiffah order %s", req.OrderNumber),
	})
	if err != nil {
		return nil, err
	}
	return outcomeFromPayment(payment), nil
}

func (g *CardGateway) CheckStatus(ctx context.Context, providerRef string) (*Outcome, error) {
	payment, err := g.client.GetPayment(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	return outcomeFromPayment(payment), nil
}

func outcomeFromPayment(payment *sq.Payment) *Outcome {
	id := stringValue(payment.GetID())
	switch stringValue(payment.GetStatus()) {
	case "COMPLETED":
		return &Outcome{Result: ResultCompleted, ProviderRef: id, TransactionID: id}
	case "FAILED", "CANCELED":
		return &Outcome{Result: ResultFailed, ProviderRef: id, Message: "payment was not approved"}
	default:
		// APPROVED and PENDING settle later.
		return &Outcome{Result: ResultPending, ProviderRef: id}
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

var _ Gateway = (*CardGateway)(nil)

package payments

import (
	"context"
	"fmt"
	"regexp"

	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/mpesa"
)

// Kenyan MSISDN in international format, e.g. 254712345678.
var kenyanPhoneRe = regexp.MustCompile(`^254[17]\d{8}$`)

type darajaClient interface {
	STKPush(ctx context.Context, params mpesa.STKPushParams) (*mpesa.STKPushResponse, error)
	STKQuery(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// MpesaGateway adapts the Daraja STK push flow to the payment boundary. Submit
// always reports pending; settlement is observed through CheckStatus polls.
type MpesaGateway struct {
	client darajaClient
}

func NewMpesaGateway(client darajaClient) (*MpesaGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("daraja client required")
	}
	return &MpesaGateway{client: client}, nil
}

func (g *MpesaGateway) Submit(ctx context.Context, req Request) (*Outcome, error) {
	details, ok := req.Details.(MpesaDetails)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mpesa details required")
	}
	if !kenyanPhoneRe.MatchString(details.Phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone must be in 2547XXXXXXXX format")
	}

	// Daraja only accepts whole shillings.
	amount := req.Amount.Ceil().IntPart()
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	resp, err := g.client.STKPush(ctx, mpesa.STKPushParams{
		Phone:            details.Phone,
		Amount:           amount,
		AccountReference: req.OrderNumber,
		Description:      fmt.Sprintf("Tiffah order %s", req.OrderNumber),
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "mpesa submit failed")
	}

	return &Outcome{
		Result:      ResultPending,
		ProviderRef: resp.CheckoutRequestID,
		Message:     resp.CustomerMessage,
	}, nil
}

func (g *MpesaGateway) CheckStatus(ctx context.Context, providerRef string) (*Outcome, error) {
	resp, err := g.client.STKQuery(ctx, providerRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mpesa status check failed")
	}
	if resp.Pending {
		return &Outcome{Result: ResultPending, ProviderRef: providerRef}, nil
	}

	switch resp.ResultCode {
	case mpesa.ResultCodeSuccess:
		return &Outcome{
			Result:        ResultCompleted,
			ProviderRef:   providerRef,
			TransactionID: providerRef,
			Message:       resp.ResultDesc,
		}, nil
	default:
		return &Outcome{
			Result:      ResultFailed,
			ProviderRef: providerRef,
			Message:     resp.ResultDesc,
		}, nil
	}
}

var _ Gateway = (*MpesaGateway)(nil)

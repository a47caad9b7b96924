package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
)

var centsPerUnit = decimal.NewFromInt(100)

// CashGateway accepts cash-on-delivery orders. There is no external provider;
// the payment settles immediately with a synthetic receipt so checkout can
// complete, and the courier collects on handover.
type CashGateway struct{}

func NewCashGateway() *CashGateway {
	return &CashGateway{}
}

func (g *CashGateway) Submit(ctx context.Context, req Request) (*Outcome, error) {
	if _, ok := req.Details.(CashDetails); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash details required")
	}
	ref := fmt.Sprintf("CASH-%s", req.OrderNumber)
	return &Outcome{
		Result:        ResultCompleted,
		ProviderRef:   ref,
		TransactionID: ref,
		Message:       "payable on delivery",
	}, nil
}

func (g *CashGateway) CheckStatus(ctx context.Context, providerRef string) (*Outcome, error) {
	return &Outcome{
		Result:        ResultCompleted,
		ProviderRef:   providerRef,
		TransactionID: providerRef,
	}, nil
}

var _ Gateway = (*CashGateway)(nil)

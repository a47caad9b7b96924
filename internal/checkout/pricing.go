package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/config"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
)

// Quote is the priced breakdown of a cart at checkout time. All amounts are
// KES with two decimal places.
type Quote struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	VATAmount    decimal.Decimal `json:"vatAmount"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Total        decimal.Decimal `json:"total"`
}

// Pricer computes order totals from the configured VAT rate and flat
// per-method shipping fees.
type Pricer struct {
	vatRate decimal.Decimal
	fees    map[enums.ShippingMethod]decimal.Decimal
}

// NewPricer builds a pricer from the checkout and shipping configuration.
func NewPricer(checkoutCfg config.CheckoutConfig, shippingCfg config.ShippingConfig) *Pricer {
	return &Pricer{
		vatRate: decimal.NewFromInt(int64(checkoutCfg.VATRatePercent)).Div(decimal.NewFromInt(100)),
		fees: map[enums.ShippingMethod]decimal.Decimal{
			enums.ShippingMethodStandard: decimal.NewFromInt(int64(shippingCfg.StandardFee)),
			enums.ShippingMethodExpress:  decimal.NewFromInt(int64(shippingCfg.ExpressFee)),
			enums.ShippingMethodPickup:   decimal.NewFromInt(int64(shippingCfg.PickupFee)),
		},
	}
}

// Price returns the quote for a subtotal and shipping method. VAT is charged
// on the goods subtotal only, not on shipping.
func (p *Pricer) Price(subtotal decimal.Decimal, method enums.ShippingMethod) (*Quote, error) {
	fee, ok := p.fees[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown shipping method %q", method))
	}
	vat := subtotal.Mul(p.vatRate).Round(2)
	return &Quote{
		Subtotal:     subtotal.Round(2),
		VATAmount:    vat,
		ShippingCost: fee.Round(2),
		Total:        subtotal.Add(vat).Add(fee).Round(2),
	}, nil
}

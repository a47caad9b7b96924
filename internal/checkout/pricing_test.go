package checkout

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/config"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
)

func testPricer() *Pricer {
	return NewPricer(
		config.CheckoutConfig{VATRatePercent: 16},
		config.ShippingConfig{StandardFee: 200, ExpressFee: 500, PickupFee: 0},
	)
}

func TestPricerQuote(t *testing.T) {
	cases := []struct {
		name         string
		subtotal     string
		method       enums.ShippingMethod
		wantVAT      string
		wantShipping string
		wantTotal    string
	}{
		{
			name:         "standard delivery",
			subtotal:     "2000",
			method:       enums.ShippingMethodStandard,
			wantVAT:      "320.00",
			wantShipping: "200.00",
			wantTotal:    "2520.00",
		},
		{
			name:         "express delivery",
			subtotal:     "2000",
			method:       enums.ShippingMethodExpress,
			wantVAT:      "320.00",
			wantShipping: "500.00",
			wantTotal:    "2820.00",
		},
		{
			name:         "pickup is free",
			subtotal:     "1000",
			method:       enums.ShippingMethodPickup,
			wantVAT:      "160.00",
			wantShipping: "0.00",
			wantTotal:    "1160.00",
		},
		{
			name:         "vat rounds to cents",
			subtotal:     "333.33",
			method:       enums.ShippingMethodPickup,
			wantVAT:      "53.33",
			wantShipping: "0.00",
			wantTotal:    "386.66",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subtotal, err := decimal.NewFromString(tc.subtotal)
			if err != nil {
				t.Fatalf("parse subtotal: %v", err)
			}

			quote, err := testPricer().Price(subtotal, tc.method)
			if err != nil {
				t.Fatalf("Price: %v", err)
			}
			if got := quote.VATAmount.StringFixed(2); got != tc.wantVAT {
				t.Errorf("expected VAT %s, got %s", tc.wantVAT, got)
			}
			if got := quote.ShippingCost.StringFixed(2); got != tc.wantShipping {
				t.Errorf("expected shipping %s, got %s", tc.wantShipping, got)
			}
			if got := quote.Total.StringFixed(2); got != tc.wantTotal {
				t.Errorf("expected total %s, got %s", tc.wantTotal, got)
			}
		})
	}
}

func TestPricerRejectsUnknownMethod(t *testing.T) {
	_, err := testPricer().Price(decimal.NewFromInt(100), enums.ShippingMethod("drone"))
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPricerVATChargedOnGoodsOnly(t *testing.T) {
	quote, err := testPricer().Price(decimal.NewFromInt(100), enums.ShippingMethodExpress)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	// 16% of 100, not of 600.
	if got := quote.VATAmount.StringFixed(2); got != "16.00" {
		t.Errorf("expected VAT on subtotal only, got %s", got)
	}
}

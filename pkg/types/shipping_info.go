package types

import (
	"strings"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
)

// ShippingInfo is the address/method snapshot frozen onto an order at
// creation time. It is stored as jsonb and never rewritten afterwards.
type ShippingInfo struct {
	FullName string               `json:"full_name"`
	Phone    string               `json:"phone"`
	Email    string               `json:"email,omitempty"`
	Address  string               `json:"address"`
	City     string               `json:"city"`
	Country  string               `json:"country"`
	Method   enums.ShippingMethod `json:"method"`
	Notes    string               `json:"notes,omitempty"`
}

// MissingField returns the first required field that is empty, or "".
func (s ShippingInfo) MissingField() string {
	checks := []struct {
		name  string
		value string
	}{
		{"full_name", s.FullName},
		{"phone", s.Phone},
		{"address", s.Address},
		{"city", s.City},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			return check.name
		}
	}
	if !s.Method.IsValid() {
		return "shipping_method"
	}
	return ""
}

// DeliveryInfo is the staff-maintained delivery state. Unlike ShippingInfo it
// is mutable after order creation.
type DeliveryInfo struct {
	Courier        string `json:"courier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	EstimatedDate  string `json:"estimated_date,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

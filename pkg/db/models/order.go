package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

// Order is the persisted customer order. Monetary fields and the item
// snapshots are frozen at creation; only status, payment state, delivery info
// and the history trail change afterwards.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string    `gorm:"column:order_number;uniqueIndex;not null"`
	CustomerID  uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`

	Status enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`

	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	VATAmount    decimal.Decimal `gorm:"column:vat_amount;type:numeric(12,2);not null"`
	ShippingCost decimal.Decimal `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`

	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	TransactionID *string             `gorm:"column:transaction_id"`

	ShippingInfo types.ShippingInfo  `gorm:"column:shipping_info;type:jsonb;serializer:json;not null"`
	DeliveryInfo *types.DeliveryInfo `gorm:"column:delivery_info;type:jsonb;serializer:json"`

	Items   []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []OrderStatusEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	OrderDate time.Time `gorm:"column:order_date;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
)

// OrderCreatedEvent signals a freshly placed order, before payment settles.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
}

// OrderPaidEvent is emitted once per order when payment is confirmed.
type OrderPaidEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	TransactionID string              `json:"transaction_id"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaidAt        time.Time           `json:"paid_at"`
}

// OrderStatusChangedEvent reports a fulfilment status transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	Note        string            `json:"note,omitempty"`
	UpdatedBy   string            `json:"updated_by,omitempty"`
}

// PaymentFailedEvent records a payment that was declined or timed out. The
// order itself stays pending.
type PaymentFailedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Reason        string              `json:"reason"`
	TimedOut      bool                `json:"timed_out"`
}

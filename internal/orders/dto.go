package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

// OrderSummary exposes the fields returned in order lists.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	Status        enums.OrderStatus   `json:"status"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	ItemCount     int                 `json:"itemCount"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	OrderDate     time.Time           `json:"orderDate"`
}

// HistoryEntry is one audit trail row in the order detail.
type HistoryEntry struct {
	Status    enums.OrderStatus `json:"status"`
	Note      string            `json:"note,omitempty"`
	UpdatedBy string            `json:"updatedBy,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// OrderDetail is the full order view returned for a single lookup.
type OrderDetail struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	CustomerID    uuid.UUID           `json:"customerId"`
	Status        enums.OrderStatus   `json:"status"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	VATAmount     decimal.Decimal     `json:"vatAmount"`
	ShippingCost  decimal.Decimal     `json:"shippingCost"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	TransactionID *string             `json:"transactionId,omitempty"`
	ShippingInfo  types.ShippingInfo  `json:"shippingInfo"`
	DeliveryInfo  *types.DeliveryInfo `json:"deliveryInfo,omitempty"`
	Items         []models.OrderItem  `json:"items"`
	History       []HistoryEntry      `json:"history"`
	OrderDate     time.Time           `json:"orderDate"`
}

// ToSummary maps a persisted order to its list representation.
func ToSummary(order models.Order) OrderSummary {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return OrderSummary{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		TotalAmount:   order.TotalAmount,
		ItemCount:     count,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		OrderDate:     order.OrderDate,
	}
}

// ToDetail maps a persisted order to its detail representation.
func ToDetail(order models.Order) OrderDetail {
	history := make([]HistoryEntry, 0, len(order.History))
	for _, event := range order.History {
		entry := HistoryEntry{
			Status:    event.Status,
			Note:      event.Note,
			CreatedAt: event.CreatedAt,
		}
		if event.UpdatedBy != nil {
			entry.UpdatedBy = *event.UpdatedBy
		}
		history = append(history, entry)
	}
	return OrderDetail{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		Status:        order.Status,
		Subtotal:      order.Subtotal,
		VATAmount:     order.VATAmount,
		ShippingCost:  order.ShippingCost,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		TransactionID: order.TransactionID,
		ShippingInfo:  order.ShippingInfo,
		DeliveryInfo:  order.DeliveryInfo,
		Items:         order.Items,
		History:       history,
		OrderDate:     order.OrderDate,
	}
}

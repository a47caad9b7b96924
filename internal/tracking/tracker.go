package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/orders"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
)

// fulfilmentSteps is the customer-facing progression, in order. Cancelled
// orders sit outside it.
var fulfilmentSteps = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusProcessing,
	enums.OrderStatusReady,
	enums.OrderStatusOutForDelivery,
	enums.OrderStatusDelivered,
}

// Step is one rung of the tracking timeline.
type Step struct {
	Status  enums.OrderStatus `json:"status"`
	Label   string            `json:"label"`
	Done    bool              `json:"done"`
	Current bool              `json:"current"`
}

// Timeline is the tracking view for a single order.
type Timeline struct {
	OrderNumber string                `json:"orderNumber"`
	Status      enums.OrderStatus     `json:"status"`
	Cancelled   bool                  `json:"cancelled"`
	StepIndex   int                   `json:"stepIndex"`
	Steps       []Step                `json:"steps"`
	History     []orders.HistoryEntry `json:"history"`
}

var stepLabels = map[enums.OrderStatus]string{
	enums.OrderStatusPending:        "Order placed",
	enums.OrderStatusProcessing:     "Being prepared",
	enums.OrderStatusReady:          "Ready for delivery",
	enums.OrderStatusOutForDelivery: "Out for delivery",
	enums.OrderStatusDelivered:      "Delivered",
}

type orderLookup interface {
	GetByNumber(ctx context.Context, orderNumber string) (*orders.OrderDetail, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDetail, error)
}

// Tracker builds customer-facing order timelines.
type Tracker struct {
	orders orderLookup
	logg   *logger.Logger
}

func NewTracker(orderSvc orderLookup, logg *logger.Logger) (*Tracker, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Tracker{orders: orderSvc, logg: logg}, nil
}

// ByNumber resolves a timeline from the public order number.
func (t *Tracker) ByNumber(ctx context.Context, orderNumber string) (*Timeline, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	detail, err := t.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return t.build(ctx, detail), nil
}

// ByID resolves a timeline from the internal order id.
func (t *Tracker) ByID(ctx context.Context, orderID uuid.UUID) (*Timeline, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	detail, err := t.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return t.build(ctx, detail), nil
}

func (t *Tracker) build(ctx context.Context, detail *orders.OrderDetail) *Timeline {
	index, known := StepIndex(detail.Status)
	if !known && detail.Status != enums.OrderStatusCancelled {
		t.logg.Warn(t.logg.WithFields(ctx, map[string]any{
			"order_number": detail.OrderNumber,
			"status":       detail.Status.String(),
		}), "order has unrecognized status, treating as placed")
	}

	cancelled := detail.Status == enums.OrderStatusCancelled
	steps := make([]Step, 0, len(fulfilmentSteps))
	for i, status := range fulfilmentSteps {
		steps = append(steps, Step{
			Status:  status,
			Label:   stepLabels[status],
			Done:    !cancelled && i <= index,
			Current: !cancelled && i == index,
		})
	}

	return &Timeline{
		OrderNumber: detail.OrderNumber,
		Status:      detail.Status,
		Cancelled:   cancelled,
		StepIndex:   index,
		Steps:       steps,
		History:     detail.History,
	}
}

// StepIndex returns the position of a status on the fulfilment progression
// and whether the status belongs to it. Cancelled maps to -1; anything
// unrecognized maps to the first step.
func StepIndex(status enums.OrderStatus) (int, bool) {
	if status == enums.OrderStatusCancelled {
		return -1, true
	}
	for i, step := range fulfilmentSteps {
		if step == status {
			return i, true
		}
	}
	return 0, false
}

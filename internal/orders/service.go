package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/outbox"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/outbox/payloads"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Staff-driven fulfilment transitions. Terminal states have no entries.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:        {enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:     {enums.OrderStatusReady, enums.OrderStatusCancelled},
	enums.OrderStatusReady:          {enums.OrderStatusOutForDelivery, enums.OrderStatusCancelled},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusDelivered},
}

// Service defines order tracking and staff fulfilment operations.
type Service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDetail, error)
	GetByNumber(ctx context.Context, orderNumber string) (*OrderDetail, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]OrderSummary, error)
	TransitionStatus(ctx context.Context, input TransitionInput) (*OrderDetail, error)
}

// TransitionInput captures a staff-driven status change.
type TransitionInput struct {
	OrderID   uuid.UUID
	To        enums.OrderStatus
	Note      string
	UpdatedBy string
	Delivery  *types.DeliveryInfo
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	detail := ToDetail(*order)
	return &detail, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*OrderDetail, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	detail := ToDetail(*order)
	return &detail, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]OrderSummary, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	summaries := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, ToSummary(row))
	}
	return summaries, nil
}

// TransitionStatus applies a staff fulfilment transition. Re-applying the
// current status is a no-op; every other move must be allowed by the
// transition table.
func (s *service) TransitionStatus(ctx context.Context, input TransitionInput) (*OrderDetail, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.To))
	}

	var result *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status == input.To {
			detail := ToDetail(*order)
			result = &detail
			return nil
		}
		if !transitionAllowed(order.Status, input.To) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, input.To)).
				WithDetails(map[string]string{"from": order.Status.String(), "to": input.To.String()})
		}

		var updatedBy *string
		if input.UpdatedBy != "" {
			updatedBy = &input.UpdatedBy
		}
		if err := repo.UpdateStatus(ctx, order.ID, input.To, input.Note, updatedBy); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeOrderUpdate, err, "update order status")
		}
		if input.Delivery != nil {
			if err := repo.SetDeliveryInfo(ctx, order.ID, input.Delivery); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeOrderUpdate, err, "set delivery info")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(order.CustomerID, input.UpdatedBy),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				FromStatus:  order.Status,
				ToStatus:    input.To,
				Note:        input.Note,
				UpdatedBy:   input.UpdatedBy,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		refreshed, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		detail := ToDetail(*refreshed)
		result = &detail
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func buildActor(customerID uuid.UUID, staff string) *outbox.ActorRef {
	actor := &outbox.ActorRef{CustomerID: customerID}
	if staff != "" {
		actor.Staff = &staff
	}
	return actor
}

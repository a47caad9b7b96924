package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/cart"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/orders"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/payments"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/config"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db"
	dbmodels "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/metrics"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/outbox"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/outbox/payloads"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartReader interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*cart.View, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

type gatewayResolver interface {
	ForMethod(method enums.PaymentMethod) (payments.Gateway, error)
}

// Input is a single place-order request. Details must match PaymentMethod.
type Input struct {
	CustomerID    uuid.UUID
	PaymentMethod enums.PaymentMethod
	Shipping      types.ShippingInfo
	Payment       payments.Details
	TermsAccepted bool
}

// Result is the outcome of a completed checkout run.
type Result struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	TransactionID string              `json:"transactionId,omitempty"`
	Subtotal      string              `json:"subtotal"`
	VATAmount     string              `json:"vatAmount"`
	ShippingCost  string              `json:"shippingCost"`
	Total         string              `json:"total"`
}

// Service drives a cart through validation, order creation, payment and
// confirmation. A failed payment leaves the created order behind in pending
// so the customer can retry or staff can intervene.
type Service interface {
	PlaceOrder(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	carts    cartReader
	repo     orders.Repository
	tx       txRunner
	gateways gatewayResolver
	outbox   outboxPublisher
	pricer   *Pricer
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
	cfg      config.CheckoutConfig
	delay    Delayer
	now      func() time.Time
}

// NewService wires the checkout orchestrator. The delayer and clock are
// injectable so tests can run the polling loop without real sleeps.
func NewService(
	carts cartReader,
	repo orders.Repository,
	tx txRunner,
	gateways gatewayResolver,
	outboxSvc outboxPublisher,
	pricer *Pricer,
	logg *logger.Logger,
	checkoutMetrics *metrics.CheckoutMetrics,
	cfg config.CheckoutConfig,
	delay Delayer,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("gateway resolver required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if delay == nil {
		delay = SleepDelayer
	}
	return &service{
		carts:    carts,
		repo:     repo,
		tx:       tx,
		gateways: gateways,
		outbox:   outboxSvc,
		pricer:   pricer,
		logg:     logg,
		metrics:  checkoutMetrics,
		cfg:      cfg,
		delay:    delay,
		now:      time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input Input) (*Result, error) {
	started := s.now()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"customer_id":    input.CustomerID.String(),
		"payment_method": input.PaymentMethod.String(),
	})

	result, err := s.placeOrder(ctx, input)
	s.metrics.ObserveDuration(input.PaymentMethod.String(), s.now().Sub(started))
	if err != nil {
		s.metrics.IncAttempt(input.PaymentMethod.String(), "failed")
		return nil, err
	}
	s.metrics.IncAttempt(input.PaymentMethod.String(), "completed")
	return result, nil
}

func (s *service) placeOrder(ctx context.Context, input Input) (*Result, error) {
	ctx = s.logg.WithField(ctx, "checkout_state", enums.CheckoutStateValidating.String())

	view, gateway, quote, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "checkout_state", enums.CheckoutStateCreating.String())
	order, err := s.createOrder(ctx, input, view, quote)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	})
	s.logg.Info(ctx, "order created")

	ctx = s.logg.WithField(ctx, "checkout_state", enums.CheckoutStateAwaitingPayment.String())
	outcome, err := s.collectPayment(ctx, gateway, order, input.Payment)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "checkout_state", enums.CheckoutStateConfirming.String())
	if err := s.confirmPayment(ctx, order, outcome); err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, input.CustomerID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart not cleared after checkout")
	}

	ctx = s.logg.WithField(ctx, "checkout_state", enums.CheckoutStateCompleted.String())
	s.logg.Info(ctx, "checkout completed")

	return &Result{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        enums.OrderStatusProcessing,
		PaymentStatus: enums.PaymentStatusCompleted,
		TransactionID: outcome.TransactionID,
		Subtotal:      quote.Subtotal.StringFixed(2),
		VATAmount:     quote.VATAmount.StringFixed(2),
		ShippingCost:  quote.ShippingCost.StringFixed(2),
		Total:         quote.Total.StringFixed(2),
	}, nil
}

func (s *service) validate(ctx context.Context, input Input) (*cart.View, payments.Gateway, *Quote, error) {
	if input.CustomerID == uuid.Nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if !input.TermsAccepted {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "terms must be accepted").
			WithDetails(map[string]string{"field": "termsAccepted"})
	}
	if !input.PaymentMethod.IsValid() {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.Payment == nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "payment details required")
	}
	if input.Payment.Method() != input.PaymentMethod {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment details are for %s, not %s", input.Payment.Method(), input.PaymentMethod))
	}
	if field := input.Shipping.MissingField(); field != "" {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("shipping %s required", field)).
			WithDetails(map[string]string{"field": field})
	}

	gateway, err := s.gateways.ForMethod(input.PaymentMethod)
	if err != nil {
		return nil, nil, nil, err
	}

	view, err := s.carts.GetCart(ctx, input.CustomerID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(view.Items) == 0 {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	quote, err := s.pricer.Price(view.Subtotal, input.Shipping.Method)
	if err != nil {
		return nil, nil, nil, err
	}
	return view, gateway, quote, nil
}

// createOrder snapshots the cart into an order inside one transaction. The
// cart itself is not touched here; it is only cleared after confirmation.
func (s *service) createOrder(ctx context.Context, input Input, view *cart.View, quote *Quote) (*dbmodels.Order, error) {
	var created *dbmodels.Order

	attempts := s.cfg.OrderNumberRetry
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		orderNumber, err := orders.NewOrderNumber(s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeOrderCreation, err, "generate order number")
		}

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			order := &dbmodels.Order{
				OrderNumber:   orderNumber,
				CustomerID:    input.CustomerID,
				Status:        enums.OrderStatusPending,
				Subtotal:      quote.Subtotal,
				VATAmount:     quote.VATAmount,
				ShippingCost:  quote.ShippingCost,
				TotalAmount:   quote.Total,
				PaymentMethod: input.PaymentMethod,
				PaymentStatus: enums.PaymentStatusPending,
				ShippingInfo:  input.Shipping,
				Items:         orderItemsFromCart(view.Items),
			}
			order, err := repo.Create(ctx, order)
			if err != nil {
				return err
			}

			if err := repo.AppendHistory(ctx, &dbmodels.OrderStatusEvent{
				OrderID: order.ID,
				Status:  enums.OrderStatusPending,
				Note:    "Order created",
			}); err != nil {
				return err
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{CustomerID: input.CustomerID},
				Data: payloads.OrderCreatedEvent{
					OrderID:       order.ID,
					OrderNumber:   order.OrderNumber,
					CustomerID:    order.CustomerID,
					TotalAmount:   order.TotalAmount,
					PaymentMethod: order.PaymentMethod,
					ItemCount:     len(order.Items),
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}

			created = order
			return nil
		})
		if err == nil {
			return created, nil
		}
		if db.IsUniqueViolation(err, "order_number") && attempt < attempts-1 {
			continue
		}
		var domainErr *pkgerrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeOrderCreation, err, "create order")
	}
	return nil, pkgerrors.New(pkgerrors.CodeOrderCreation, "order number collisions exhausted retries")
}

// collectPayment submits the payment and, for asynchronous providers, polls
// until the payment settles, fails, or the attempt budget runs out. A timeout
// returns CodePaymentTimeout with the order left in pending.
func (s *service) collectPayment(ctx context.Context, gateway payments.Gateway, order *dbmodels.Order, details payments.Details) (*payments.Outcome, error) {
	outcome, err := gateway.Submit(ctx, payments.Request{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
		Currency:    "KES",
		Details:     details,
	})
	if err != nil {
		return nil, s.recordPaymentFailure(ctx, order, failureMessage(err), false, err)
	}

	switch outcome.Result {
	case payments.ResultCompleted:
		return outcome, nil
	case payments.ResultFailed:
		failure := pkgerrors.New(pkgerrors.CodePayment, paymentFailureText(outcome.Message))
		return nil, s.recordPaymentFailure(ctx, order, outcome.Message, false, failure)
	}

	return s.pollPayment(ctx, gateway, order, outcome.ProviderRef)
}

func (s *service) pollPayment(ctx context.Context, gateway payments.Gateway, order *dbmodels.Order, providerRef string) (*payments.Outcome, error) {
	attempts := s.cfg.PollMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := s.delay(ctx, s.cfg.PollDelay); err != nil {
			s.metrics.IncPoll("interrupted")
			wrapped := pkgerrors.Wrap(pkgerrors.CodePaymentTimeout, err, "payment confirmation interrupted")
			return nil, s.recordPaymentFailure(ctx, order, "Payment confirmation interrupted", true, wrapped)
		}

		outcome, err := gateway.CheckStatus(ctx, providerRef)
		if err != nil {
			// Transient provider trouble; the remaining attempts may still
			// see the payment settle.
			s.metrics.IncPoll("error")
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"poll_attempt": attempt,
				"error":        err.Error(),
			}), "payment status check failed")
			continue
		}

		switch outcome.Result {
		case payments.ResultCompleted:
			s.metrics.IncPoll("completed")
			return outcome, nil
		case payments.ResultFailed:
			s.metrics.IncPoll("failed")
			failure := pkgerrors.New(pkgerrors.CodePayment, paymentFailureText(outcome.Message))
			return nil, s.recordPaymentFailure(ctx, order, outcome.Message, false, failure)
		}
		s.metrics.IncPoll("pending")
	}

	timeout := pkgerrors.New(pkgerrors.CodePaymentTimeout,
		"payment confirmation timed out; the order is saved and can be settled later").
		WithDetails(map[string]string{"order_number": order.OrderNumber})
	return nil, s.recordPaymentFailure(ctx, order, "Payment confirmation timed out", true, timeout)
}

// recordPaymentFailure marks the payment failed and emits the failure event
// without moving the order out of pending. The passed-in failure is returned
// so callers can hand it straight up.
func (s *service) recordPaymentFailure(ctx context.Context, order *dbmodels.Order, reason string, timedOut bool, failure error) error {
	note := "Payment failed"
	if reason != "" {
		note = "Payment failed: " + reason
	}
	if timedOut {
		note = "Payment confirmation timed out"
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdatePayment(ctx, order.ID, enums.PaymentStatusFailed, nil); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, &dbmodels.OrderStatusEvent{
			OrderID: order.ID,
			Status:  enums.OrderStatusPending,
			Note:    note,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{CustomerID: order.CustomerID},
			Data: payloads.PaymentFailedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				PaymentMethod: order.PaymentMethod,
				Reason:        reason,
				TimedOut:      timedOut,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "recording payment failure", err)
	}
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "payment not completed")
	return failure
}

// confirmPayment moves the order to processing and records the settled
// payment. It re-reads the order inside the transaction so a retried
// confirmation of an already-settled order is a no-op.
func (s *service) confirmPayment(ctx context.Context, order *dbmodels.Order, outcome *payments.Outcome) error {
	// A cancelled caller must not have a late settlement applied on its behalf.
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePaymentTimeout, err, "checkout cancelled before confirmation")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if current.PaymentStatus == enums.PaymentStatusCompleted &&
			current.Status == enums.OrderStatusProcessing {
			return nil
		}

		var txID *string
		if outcome.TransactionID != "" {
			txID = &outcome.TransactionID
		}
		if err := repo.UpdatePayment(ctx, order.ID, enums.PaymentStatusCompleted, txID); err != nil {
			return err
		}
		note := fmt.Sprintf("Payment confirmed via %s (%s)", order.PaymentMethod, enums.PaymentStatusCompleted)
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, note, nil); err != nil {
			return err
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{CustomerID: order.CustomerID},
			Data: payloads.OrderPaidEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CustomerID:    order.CustomerID,
				TotalAmount:   order.TotalAmount,
				PaymentMethod: order.PaymentMethod,
				TransactionID: outcome.TransactionID,
				PaidAt:        s.now(),
			},
		})
	})
	if err != nil {
		// The customer was charged but the order record is stale. This needs
		// eyes on it, not a silent retry.
		s.logg.Error(s.logg.WithField(ctx, "transaction_id", outcome.TransactionID),
			"payment settled but order update failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeOrderUpdate, err,
			"payment received but order confirmation failed; support has been notified")
	}
	return nil
}

func orderItemsFromCart(items []dbmodels.CartItem) []dbmodels.OrderItem {
	out := make([]dbmodels.OrderItem, 0, len(items))
	for _, item := range items {
		var size *string
		if item.Size != "" {
			value := item.Size
			size = &value
		}
		out = append(out, dbmodels.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      size,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return out
}

func failureMessage(err error) string {
	var domainErr *pkgerrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message()
	}
	return err.Error()
}

func paymentFailureText(providerMessage string) string {
	if providerMessage == "" {
		return "payment was not completed"
	}
	return providerMessage
}

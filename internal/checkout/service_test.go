package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/cart"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/orders"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/payments"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/config"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	pkgerrors "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/errors"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/outbox"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

type stubCartReader struct {
	view     *cart.View
	getErr   error
	clearErr error
	cleared  int
}

func (s *stubCartReader) GetCart(ctx context.Context, customerID uuid.UUID) (*cart.View, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.view, nil
}

func (s *stubCartReader) Clear(ctx context.Context, customerID uuid.UUID) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared++
	return nil
}

type stubOrdersRepo struct {
	order     *models.Order
	history   []models.OrderStatusEvent
	createErr error
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.order = order
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if s.order == nil || s.order.OrderNumber != orderNumber {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	if s.order == nil || s.order.CustomerID != customerID {
		return nil, nil
	}
	return []models.Order{*s.order}, nil
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, note string, updatedBy *string) error {
	if s.order == nil || s.order.ID != orderID {
		return gorm.ErrRecordNotFound
	}
	s.order.Status = status
	s.history = append(s.history, models.OrderStatusEvent{
		OrderID:   orderID,
		Status:    status,
		Note:      note,
		UpdatedBy: updatedBy,
	})
	return nil
}

func (s *stubOrdersRepo) UpdatePayment(ctx context.Context, orderID uuid.UUID, paymentStatus enums.PaymentStatus, transactionID *string) error {
	if s.order == nil || s.order.ID != orderID {
		return gorm.ErrRecordNotFound
	}
	s.order.PaymentStatus = paymentStatus
	if transactionID != nil {
		s.order.TransactionID = transactionID
	}
	return nil
}

func (s *stubOrdersRepo) AppendHistory(ctx context.Context, event *models.OrderStatusEvent) error {
	s.history = append(s.history, *event)
	return nil
}

func (s *stubOrdersRepo) SetDeliveryInfo(ctx context.Context, orderID uuid.UUID, info *types.DeliveryInfo) error {
	if s.order == nil || s.order.ID != orderID {
		return gorm.ErrRecordNotFound
	}
	s.order.DeliveryInfo = info
	return nil
}

type stubGateway struct {
	submitOutcome *payments.Outcome
	submitErr     error
	submitted     []payments.Request

	statusOutcomes []*payments.Outcome
	statusErrs     []error
	statusCalls    int
}

func (s *stubGateway) Submit(ctx context.Context, req payments.Request) (*payments.Outcome, error) {
	s.submitted = append(s.submitted, req)
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.submitOutcome, nil
}

func (s *stubGateway) CheckStatus(ctx context.Context, providerRef string) (*payments.Outcome, error) {
	idx := s.statusCalls
	s.statusCalls++
	if idx < len(s.statusErrs) && s.statusErrs[idx] != nil {
		return nil, s.statusErrs[idx]
	}
	if idx < len(s.statusOutcomes) {
		return s.statusOutcomes[idx], nil
	}
	return &payments.Outcome{Result: payments.ResultPending, ProviderRef: providerRef}, nil
}

type stubResolver struct {
	gateway payments.Gateway
}

func (s *stubResolver) ForMethod(method enums.PaymentMethod) (payments.Gateway, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	return s.gateway, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutboxPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutboxPublisher) countByType(eventType enums.OutboxEventType) int {
	count := 0
	for _, event := range s.events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type countingDelayer struct {
	calls []time.Duration
	err   error
}

func (d *countingDelayer) delay(ctx context.Context, duration time.Duration) error {
	d.calls = append(d.calls, duration)
	return d.err
}

type fixture struct {
	carts   *stubCartReader
	repo    *stubOrdersRepo
	gateway *stubGateway
	outbox  *stubOutboxPublisher
	delayer *countingDelayer
	svc     Service
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		VATRatePercent:   16,
		PollMaxAttempts:  3,
		PollDelay:        5 * time.Second,
		OrderNumberRetry: 5,
	}
}

func newFixture(t *testing.T, items []models.CartItem) *fixture {
	t.Helper()

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	f := &fixture{
		carts: &stubCartReader{view: &cart.View{
			Items:     items,
			Subtotal:  subtotal,
			ItemCount: len(items),
		}},
		repo:    &stubOrdersRepo{},
		gateway: &stubGateway{},
		outbox:  &stubOutboxPublisher{},
		delayer: &countingDelayer{},
	}

	cfg := testCheckoutConfig()
	pricer := NewPricer(cfg, config.ShippingConfig{StandardFee: 200, ExpressFee: 500, PickupFee: 0})
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})

	svc, err := NewService(
		f.carts,
		f.repo,
		stubTxRunner{},
		&stubResolver{gateway: f.gateway},
		f.outbox,
		pricer,
		logg,
		nil,
		cfg,
		f.delayer.delay,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func defaultItems() []models.CartItem {
	return []models.CartItem{
		{
			ProductID: "prod-1",
			Name:      "Vintage denim jacket",
			Size:      "M",
			UnitPrice: decimal.NewFromInt(1500),
			Quantity:  1,
		},
		{
			ProductID: "prod-2",
			Name:      "Ankara print dress",
			UnitPrice: decimal.NewFromInt(250),
			Quantity:  2,
		},
	}
}

func defaultShipping() types.ShippingInfo {
	return types.ShippingInfo{
		FullName: "Wanjiku Kamau",
		Phone:    "254712345678",
		Address:  "Moi Avenue 12",
		City:     "Nairobi",
		Country:  "Kenya",
		Method:   enums.ShippingMethodStandard,
	}
}

func cashInput(customerID uuid.UUID) Input {
	return Input{
		CustomerID:    customerID,
		PaymentMethod: enums.PaymentMethodCash,
		Shipping:      defaultShipping(),
		Payment:       payments.CashDetails{},
		TermsAccepted: true,
	}
}

func mpesaInput(customerID uuid.UUID) Input {
	return Input{
		CustomerID:    customerID,
		PaymentMethod: enums.PaymentMethodMpesa,
		Shipping:      defaultShipping(),
		Payment:       payments.MpesaDetails{Phone: "254712345678"},
		TermsAccepted: true,
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	var domainErr *pkgerrors.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected domain error with code %s, got %v", code, err)
	}
	if domainErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%s)", code, domainErr.Code(), domainErr.Message())
	}
	return domainErr
}

func TestPlaceOrderCashCompletes(t *testing.T) {
	f := newFixture(t, defaultItems())
	customerID := uuid.New()
	f.gateway.submitOutcome = &payments.Outcome{
		Result:        payments.ResultCompleted,
		TransactionID: "CASH-receipt",
	}

	result, err := f.svc.PlaceOrder(context.Background(), cashInput(customerID))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if result.Subtotal != "2000.00" {
		t.Errorf("expected subtotal 2000.00, got %s", result.Subtotal)
	}
	if result.VATAmount != "320.00" {
		t.Errorf("expected VAT 320.00, got %s", result.VATAmount)
	}
	if result.ShippingCost != "200.00" {
		t.Errorf("expected shipping 200.00, got %s", result.ShippingCost)
	}
	if result.Total != "2520.00" {
		t.Errorf("expected total 2520.00, got %s", result.Total)
	}
	if result.Status != enums.OrderStatusProcessing {
		t.Errorf("expected status processing, got %s", result.Status)
	}
	if result.PaymentStatus != enums.PaymentStatusCompleted {
		t.Errorf("expected payment completed, got %s", result.PaymentStatus)
	}

	order := f.repo.order
	if order == nil {
		t.Fatal("expected order persisted")
	}
	if order.Status != enums.OrderStatusProcessing {
		t.Errorf("expected order processing, got %s", order.Status)
	}
	if order.TransactionID == nil || *order.TransactionID != "CASH-receipt" {
		t.Errorf("expected transaction id CASH-receipt, got %v", order.TransactionID)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(order.Items))
	}
	if !order.Items[1].LineTotal.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected line total 500, got %s", order.Items[1].LineTotal)
	}

	// Order created + payment confirmed.
	if len(f.repo.history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(f.repo.history))
	}
	if f.repo.history[0].Note != "Order created" {
		t.Errorf("unexpected first history note %q", f.repo.history[0].Note)
	}
	if f.repo.history[1].Note != "Payment confirmed via cash (completed)" {
		t.Errorf("unexpected second history note %q", f.repo.history[1].Note)
	}

	if f.carts.cleared != 1 {
		t.Errorf("expected cart cleared once, got %d", f.carts.cleared)
	}
	if f.outbox.countByType(enums.EventOrderCreated) != 1 {
		t.Error("expected one order created event")
	}
	if f.outbox.countByType(enums.EventOrderPaid) != 1 {
		t.Error("expected one order paid event")
	}
	if len(f.delayer.calls) != 0 {
		t.Errorf("expected no polling for synchronous payment, got %d delays", len(f.delayer.calls))
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	customerID := uuid.New()

	cases := []struct {
		name  string
		setup func(f *fixture) Input
	}{
		{
			name: "empty cart",
			setup: func(f *fixture) Input {
				f.carts.view = &cart.View{}
				return cashInput(customerID)
			},
		},
		{
			name: "missing shipping address",
			setup: func(f *fixture) Input {
				input := cashInput(customerID)
				input.Shipping.Address = ""
				return input
			},
		},
		{
			name: "details do not match method",
			setup: func(f *fixture) Input {
				input := cashInput(customerID)
				input.Payment = payments.MpesaDetails{Phone: "254712345678"}
				return input
			},
		},
		{
			name: "nil customer",
			setup: func(f *fixture) Input {
				return cashInput(uuid.Nil)
			},
		},
		{
			name: "invalid payment method",
			setup: func(f *fixture) Input {
				input := cashInput(customerID)
				input.PaymentMethod = enums.PaymentMethod("bitcoin")
				return input
			},
		},
		{
			name: "terms not accepted",
			setup: func(f *fixture) Input {
				input := cashInput(customerID)
				input.TermsAccepted = false
				return input
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, defaultItems())
			input := tc.setup(f)

			_, err := f.svc.PlaceOrder(context.Background(), input)
			assertCode(t, err, pkgerrors.CodeValidation)

			if f.repo.order != nil {
				t.Error("expected no order created")
			}
			if f.carts.cleared != 0 {
				t.Error("expected cart untouched")
			}
		})
	}
}

func TestPlaceOrderCreationFailureLeavesCart(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.repo.createErr = errors.New("connection refused")
	f.gateway.submitOutcome = &payments.Outcome{Result: payments.ResultCompleted}

	_, err := f.svc.PlaceOrder(context.Background(), cashInput(uuid.New()))
	assertCode(t, err, pkgerrors.CodeOrderCreation)

	if f.carts.cleared != 0 {
		t.Error("expected cart untouched after creation failure")
	}
	if len(f.gateway.submitted) != 0 {
		t.Error("expected no payment submitted")
	}
	if len(f.outbox.events) != 0 {
		t.Errorf("expected no events, got %d", len(f.outbox.events))
	}
}

func TestPlaceOrderPaymentDeclined(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.gateway.submitOutcome = &payments.Outcome{Result: payments.ResultPending, ProviderRef: "ws_CO_1"}
	f.gateway.statusOutcomes = []*payments.Outcome{
		{Result: payments.ResultFailed, Message: "Insufficient funds"},
	}

	_, err := f.svc.PlaceOrder(context.Background(), mpesaInput(uuid.New()))
	domainErr := assertCode(t, err, pkgerrors.CodePayment)
	if domainErr.Message() != "Insufficient funds" {
		t.Errorf("expected provider reason surfaced, got %q", domainErr.Message())
	}

	order := f.repo.order
	if order == nil {
		t.Fatal("expected order persisted")
	}
	if order.Status != enums.OrderStatusPending {
		t.Errorf("expected order still pending, got %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusFailed {
		t.Errorf("expected payment failed, got %s", order.PaymentStatus)
	}
	if f.carts.cleared != 0 {
		t.Error("expected cart kept after declined payment")
	}

	if len(f.repo.history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(f.repo.history))
	}
	if f.repo.history[1].Note != "Payment failed: Insufficient funds" {
		t.Errorf("unexpected failure note %q", f.repo.history[1].Note)
	}
	if f.outbox.countByType(enums.EventPaymentFailed) != 1 {
		t.Error("expected one payment failed event")
	}
	if f.outbox.countByType(enums.EventOrderPaid) != 0 {
		t.Error("expected no paid event")
	}
}

func TestPlaceOrderPollTimeout(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.gateway.submitOutcome = &payments.Outcome{Result: payments.ResultPending, ProviderRef: "ws_CO_1"}
	f.gateway.statusOutcomes = []*payments.Outcome{
		{Result: payments.ResultPending},
		{Result: payments.ResultPending},
		{Result: payments.ResultPending},
	}

	_, err := f.svc.PlaceOrder(context.Background(), mpesaInput(uuid.New()))
	assertCode(t, err, pkgerrors.CodePaymentTimeout)

	if len(f.delayer.calls) != 3 {
		t.Fatalf("expected 3 poll delays, got %d", len(f.delayer.calls))
	}
	for _, d := range f.delayer.calls {
		if d != 5*time.Second {
			t.Errorf("expected 5s delay, got %s", d)
		}
	}
	if f.gateway.statusCalls != 3 {
		t.Errorf("expected 3 status checks, got %d", f.gateway.statusCalls)
	}

	order := f.repo.order
	if order.Status != enums.OrderStatusPending {
		t.Errorf("expected order still pending, got %s", order.Status)
	}
	if f.repo.history[len(f.repo.history)-1].Note != "Payment confirmation timed out" {
		t.Errorf("unexpected timeout note %q", f.repo.history[len(f.repo.history)-1].Note)
	}
	if f.outbox.countByType(enums.EventPaymentFailed) != 1 {
		t.Error("expected one payment failed event")
	}
}

func TestPlaceOrderSettlesOnSecondPoll(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.gateway.submitOutcome = &payments.Outcome{Result: payments.ResultPending, ProviderRef: "ws_CO_1"}
	f.gateway.statusOutcomes = []*payments.Outcome{
		{Result: payments.ResultPending},
		{Result: payments.ResultCompleted, TransactionID: "NLJ7RT61SV"},
	}

	result, err := f.svc.PlaceOrder(context.Background(), mpesaInput(uuid.New()))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if result.TransactionID != "NLJ7RT61SV" {
		t.Errorf("expected mpesa receipt, got %q", result.TransactionID)
	}
	if len(f.delayer.calls) != 2 {
		t.Errorf("expected 2 poll delays, got %d", len(f.delayer.calls))
	}
	if f.repo.order.Status != enums.OrderStatusProcessing {
		t.Errorf("expected order processing, got %s", f.repo.order.Status)
	}
	if f.carts.cleared != 1 {
		t.Errorf("expected cart cleared, got %d", f.carts.cleared)
	}
}

func TestPlaceOrderTransientStatusErrorsDoNotAbort(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.gateway.submitOutcome = &payments.Outcome{Result: payments.ResultPending, ProviderRef: "ws_CO_1"}
	f.gateway.statusErrs = []error{errors.New("gateway timeout"), nil}
	f.gateway.statusOutcomes = []*payments.Outcome{
		nil,
		{Result: payments.ResultCompleted, TransactionID: "NLJ7RT61SV"},
	}

	result, err := f.svc.PlaceOrder(context.Background(), mpesaInput(uuid.New()))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.TransactionID != "NLJ7RT61SV" {
		t.Errorf("expected mpesa receipt, got %q", result.TransactionID)
	}
}

func TestPlaceOrderCancelledContextStopsPolling(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.gateway.submitOutcome = &payments.Outcome{Result: payments.ResultPending, ProviderRef: "ws_CO_1"}
	f.delayer.err = context.Canceled

	_, err := f.svc.PlaceOrder(context.Background(), mpesaInput(uuid.New()))
	assertCode(t, err, pkgerrors.CodePaymentTimeout)

	if len(f.delayer.calls) != 1 {
		t.Errorf("expected polling to stop on first delay, got %d", len(f.delayer.calls))
	}
	if f.gateway.statusCalls != 0 {
		t.Errorf("expected no status checks, got %d", f.gateway.statusCalls)
	}
	if f.repo.order.Status != enums.OrderStatusPending {
		t.Errorf("expected order still pending, got %s", f.repo.order.Status)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.gateway.submitOutcome = &payments.Outcome{
		Result:        payments.ResultCompleted,
		TransactionID: "CASH-receipt",
	}

	if _, err := f.svc.PlaceOrder(context.Background(), cashInput(uuid.New())); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	svc := f.svc.(*service)
	order := f.repo.order
	outcome := &payments.Outcome{Result: payments.ResultCompleted, TransactionID: "CASH-receipt"}
	if err := svc.confirmPayment(context.Background(), order, outcome); err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}

	// No extra history or paid events from the repeat.
	if len(f.repo.history) != 2 {
		t.Errorf("expected 2 history rows after repeat, got %d", len(f.repo.history))
	}
	if f.outbox.countByType(enums.EventOrderPaid) != 1 {
		t.Errorf("expected a single paid event, got %d", f.outbox.countByType(enums.EventOrderPaid))
	}
}

func TestPlaceOrderCartClearFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.gateway.submitOutcome = &payments.Outcome{Result: payments.ResultCompleted, TransactionID: "CASH-receipt"}
	f.carts.clearErr = errors.New("redis down")

	result, err := f.svc.PlaceOrder(context.Background(), cashInput(uuid.New()))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.Status != enums.OrderStatusProcessing {
		t.Errorf("expected processing, got %s", result.Status)
	}
}

func TestPlaceOrderNumberFormat(t *testing.T) {
	f := newFixture(t, defaultItems())
	f.gateway.submitOutcome = &payments.Outcome{Result: payments.ResultCompleted, TransactionID: "CASH-receipt"}

	result, err := f.svc.PlaceOrder(context.Background(), cashInput(uuid.New()))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	wantPrefix := "TTS-" + time.Now().Format("20060102") + "-"
	if len(result.OrderNumber) != len(wantPrefix)+4 || result.OrderNumber[:len(wantPrefix)] != wantPrefix {
		t.Errorf("unexpected order number %q", result.OrderNumber)
	}
}

package orders

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal TEXT NOT NULL,
  vat_amount TEXT NOT NULL,
  shipping_cost TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  transaction_id TEXT,
  shipping_info TEXT NOT NULL,
  delivery_info TEXT,
  order_date DATETIME,
  updated_at DATETIME
);`
	items := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  size TEXT,
  unit_price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  line_total TEXT NOT NULL,
  created_at DATETIME
);`
	events := `
CREATE TABLE IF NOT EXISTS order_status_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  updated_by TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(items).Error)
	require.NoError(t, db.Exec(events).Error)
	return db
}

func newOrder(number string, customerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		CustomerID:    customerID,
		Status:        enums.OrderStatusPending,
		Subtotal:      decimal.RequireFromString("2000.00"),
		VATAmount:     decimal.RequireFromString("320.00"),
		ShippingCost:  decimal.RequireFromString("200.00"),
		TotalAmount:   decimal.RequireFromString("2520.00"),
		PaymentMethod: enums.PaymentMethodMpesa,
		PaymentStatus: enums.PaymentStatusPending,
		ShippingInfo: types.ShippingInfo{
			FullName: "Wanjiku Kamau",
			Phone:    "254712345678",
			Address:  "Moi Avenue 12",
			City:     "Nairobi",
			Method:   enums.ShippingMethodStandard,
		},
		Items: []models.OrderItem{
			{
				ID:        uuid.New(),
				ProductID: "prod-1",
				Name:      "Vintage denim jacket",
				UnitPrice: decimal.RequireFromString("2000.00"),
				Quantity:  1,
				LineTotal: decimal.RequireFromString("2000.00"),
			},
		},
		History: []models.OrderStatusEvent{
			{
				ID:     uuid.New(),
				Status: enums.OrderStatusPending,
				Note:   "Order created",
			},
		},
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	customerID := uuid.New()

	created, err := repo.Create(context.Background(), newOrder("TTS-20260830-0001", customerID))
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	require.Len(t, found.History, 1)
	assert.Equal(t, "Order created", found.History[0].Note)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("2520.00")))
	assert.Equal(t, "Wanjiku Kamau", found.ShippingInfo.FullName)

	byNumber, err := repo.FindByNumber(context.Background(), "TTS-20260830-0001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)
}

func TestRepositoryDuplicateOrderNumber(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Create(context.Background(), newOrder("TTS-20260830-0002", uuid.New()))
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), newOrder("TTS-20260830-0002", uuid.New()))
	require.Error(t, err)
}

func TestRepositoryUpdateStatusAppendsHistory(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	created, err := repo.Create(context.Background(), newOrder("TTS-20260830-0003", uuid.New()))
	require.NoError(t, err)

	staff := "staff@tiffah.co.ke"
	require.NoError(t, repo.UpdateStatus(context.Background(), created.ID, enums.OrderStatusProcessing, "Payment confirmed", &staff))

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, found.Status)
	require.Len(t, found.History, 2)
	assert.Equal(t, "Payment confirmed", found.History[1].Note)
	require.NotNil(t, found.History[1].UpdatedBy)
	assert.Equal(t, staff, *found.History[1].UpdatedBy)
}

func TestRepositoryUpdatePayment(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	created, err := repo.Create(context.Background(), newOrder("TTS-20260830-0004", uuid.New()))
	require.NoError(t, err)

	txID := "ws_CO_123"
	require.NoError(t, repo.UpdatePayment(context.Background(), created.ID, enums.PaymentStatusCompleted, &txID))

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, found.PaymentStatus)
	require.NotNil(t, found.TransactionID)
	assert.Equal(t, txID, *found.TransactionID)
}

func TestRepositoryListByCustomerOrdering(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	customerID := uuid.New()

	older := newOrder("TTS-20260829-0001", customerID)
	older.OrderDate = time.Now().Add(-time.Hour)
	_, err := repo.Create(context.Background(), older)
	require.NoError(t, err)

	newer := newOrder("TTS-20260830-0005", customerID)
	newer.OrderDate = time.Now()
	_, err = repo.Create(context.Background(), newer)
	require.NoError(t, err)

	rows, err := repo.ListByCustomer(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "TTS-20260830-0005", rows[0].OrderNumber)
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^TTS-20260830-\d{4}$`)

	for i := 0; i < 20; i++ {
		number, err := NewOrderNumber(now)
		require.NoError(t, err)
		assert.Regexp(t, pattern, number)
	}
}

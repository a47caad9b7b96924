package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

// GormRepository exposes persistence operations for orders.
type GormRepository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &GormRepository{db: tx}
}

// Create inserts the order together with its item snapshots and any seeded
// history rows in one statement chain.
func (r *GormRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order with its items and full history.
func (r *GormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByNumber loads an order by its human-facing number.
func (r *GormRepository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCustomer returns the customer's orders, most recent first.
func (r *GormRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("order_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus moves the order to a new status and appends the matching
// history row. Callers run this inside a transaction so both writes land
// together.
func (r *GormRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, note string, updatedBy *string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return err
	}
	return r.AppendHistory(ctx, &models.OrderStatusEvent{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    status,
		Note:      note,
		UpdatedBy: updatedBy,
	})
}

// UpdatePayment records the settlement state of the order's payment.
func (r *GormRepository) UpdatePayment(ctx context.Context, orderID uuid.UUID, paymentStatus enums.PaymentStatus, transactionID *string) error {
	updates := map[string]any{
		"payment_status": paymentStatus,
		"updated_at":     time.Now(),
	}
	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// AppendHistory inserts one audit trail row.
func (r *GormRepository) AppendHistory(ctx context.Context, event *models.OrderStatusEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// SetDeliveryInfo attaches courier details to the order.
func (r *GormRepository) SetDeliveryInfo(ctx context.Context, orderID uuid.UUID, info *types.DeliveryInfo) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Select("delivery_info", "updated_at").
		Updates(&models.Order{DeliveryInfo: info, UpdatedAt: time.Now()}).Error
}

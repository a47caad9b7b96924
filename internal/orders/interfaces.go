package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/types"
)

// Repository defines the persistence surface for orders and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, note string, updatedBy *string) error
	UpdatePayment(ctx context.Context, orderID uuid.UUID, paymentStatus enums.PaymentStatus, transactionID *string) error
	AppendHistory(ctx context.Context, event *models.OrderStatusEvent) error
	SetDeliveryInfo(ctx context.Context, orderID uuid.UUID, info *types.DeliveryInfo) error
}

package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
	FindByID(ctx context.Context, customerID, itemID uuid.UUID) (*models.CartItem, error)
	FindByProductAndSize(ctx context.Context, customerID uuid.UUID, productID, size string) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) error
	Delete(ctx context.Context, customerID, itemID uuid.UUID) error
	DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error
}

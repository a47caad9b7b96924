package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db/models"
)

// Repository exposes persistence operations for cart items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByCustomer returns the customer's cart in insertion order.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns a cart item restricted to the owning customer.
func (r *Repository) FindByID(ctx context.Context, customerID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", itemID, customerID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByProductAndSize returns the line matching the merge key, if any.
func (r *Repository) FindByProductAndSize(ctx context.Context, customerID uuid.UUID, productID, size string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ? AND size = ?", customerID, productID, size).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new cart item.
func (r *Repository) Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateQuantity sets the quantity of an item owned by the customer.
func (r *Repository) UpdateQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND customer_id = ?", itemID, customerID).
		Update("quantity", quantity).Error
}

// Delete removes a single item owned by the customer.
func (r *Repository) Delete(ctx context.Context, customerID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", itemID, customerID).
		Delete(&models.CartItem{}).Error
}

// DeleteByCustomer empties the customer's cart.
func (r *Repository) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.CartItem{}).Error
}

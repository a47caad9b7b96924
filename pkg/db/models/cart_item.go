package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one line in a customer's active cart. The (customer, product,
// size) tuple is unique; adding the same product again merges quantities.
type CartItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_cart_customer_product_size"`
	ProductID  string          `gorm:"column:product_id;not null;uniqueIndex:ux_cart_customer_product_size"`
	Size       string          `gorm:"column:size;not null;default:'';uniqueIndex:ux_cart_customer_product_size"`
	Name       string          `gorm:"column:name;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

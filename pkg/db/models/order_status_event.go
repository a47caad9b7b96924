package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/enums"
)

// OrderStatusEvent is one entry in an order's append-only audit trail.
// Rows are only ever inserted; the newest row mirrors Order.Status.
type OrderStatusEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	Note      string            `gorm:"column:note;not null"`
	UpdatedBy *string           `gorm:"column:updated_by"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

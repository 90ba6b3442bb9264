package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem captures one product line with the unit price snapshotted at
// order-creation time. The live catalog price is never re-read.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:numeric(10,2);not null"`
	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

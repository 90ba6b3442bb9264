package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curamedis/caresupply-backend/pkg/enums"
)

// Product is a catalog entry with its live price and stock counter.
// StockQuantity may go negative: a manual corrective entry records
// backlog debt instead of clamping at zero.
type Product struct {
	ID                        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                      string            `gorm:"column:name;not null"`
	Type                      enums.ProductType `gorm:"column:type;type:text;not null"`
	UnitPrice                 decimal.Decimal   `gorm:"column:unit_price;type:numeric(10,2);not null"`
	MinOrderQuantity          int               `gorm:"column:min_order_quantity;not null;default:1"`
	IsActive                  bool              `gorm:"column:is_active;not null;default:true"`
	StockQuantity             int               `gorm:"column:stock_quantity;not null;default:0"`
	LowStockThreshold         int               `gorm:"column:low_stock_threshold;not null;default:0"`
	LowStockAlertAcknowledged bool              `gorm:"column:low_stock_alert_acknowledged;not null;default:false"`
	CreatedAt                 time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// RecurringOrderTemplateItem holds product+quantity only; the price is
// resolved from the live catalog when the template executes.
type RecurringOrderTemplateItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TemplateID uuid.UUID `gorm:"column:template_id;type:uuid;not null"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curamedis/caresupply-backend/pkg/enums"
)

// Order is the per-patient order aggregate. Exactly one of
// CreatedByUserID / CreatedByWorkerID is set for manual orders; both are
// nil when the recurring scheduler generated the order.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstitutionID     uuid.UUID         `gorm:"column:institution_id;type:uuid;not null"`
	PatientID         *uuid.UUID        `gorm:"column:patient_id;type:uuid"`
	CreatedByUserID   *uuid.UUID        `gorm:"column:created_by_user_id;type:uuid"`
	CreatedByWorkerID *uuid.UUID        `gorm:"column:created_by_worker_id;type:uuid"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	IsRecurring       bool              `gorm:"column:is_recurring;not null;default:false"`
	ScheduledDate     *time.Time        `gorm:"column:scheduled_date;type:date"`
	IsConfirmed       bool              `gorm:"column:is_confirmed;not null;default:false"`
	ApprovedByUserID  *uuid.UUID        `gorm:"column:approved_by_user_id;type:uuid"`
	ApprovedAt        *time.Time        `gorm:"column:approved_at"`
	ShippedAt         *time.Time        `gorm:"column:shipped_at"`
	TotalAmount       decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

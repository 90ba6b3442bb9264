package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/curamedis/caresupply-backend/pkg/db/types"
)

// RecurringOrderExecution is the idempotency record for one template's
// activity in one calendar month. ExecutionMonth stores the first day of
// the month; the (template_id, execution_month) pair is unique, which is
// what prevents double order creation within a month.
type RecurringOrderExecution struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TemplateID         uuid.UUID         `gorm:"column:template_id;type:uuid;not null;uniqueIndex:uq_executions_template_month"`
	ExecutionMonth     time.Time         `gorm:"column:execution_month;type:date;not null;uniqueIndex:uq_executions_template_month"`
	NotificationSent   bool              `gorm:"column:notification_sent;not null;default:false"`
	NotificationSentAt *time.Time        `gorm:"column:notification_sent_at"`
	IsApproved         bool              `gorm:"column:is_approved;not null;default:false"`
	ApprovedAt         *time.Time        `gorm:"column:approved_at"`
	ApprovedByUserID   *uuid.UUID        `gorm:"column:approved_by_user_id;type:uuid"`
	OrdersCreated      bool              `gorm:"column:orders_created;not null;default:false"`
	OrdersCreatedAt    *time.Time        `gorm:"column:orders_created_at"`
	CreatedOrderIDs    dbtypes.UUIDArray `gorm:"column:created_order_ids;type:uuid[]"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

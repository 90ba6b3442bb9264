package models

import (
	"time"

	"github.com/google/uuid"
)

// RecurringOrderTemplate is the blueprint the scheduler expands into
// concrete orders. A nil PatientID means every active patient of the
// institution at execution time.
type RecurringOrderTemplate struct {
	ID                     uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstitutionID          uuid.UUID                    `gorm:"column:institution_id;type:uuid;not null"`
	PatientID              *uuid.UUID                   `gorm:"column:patient_id;type:uuid"`
	Name                   string                       `gorm:"column:name;not null"`
	IsActive               bool                         `gorm:"column:is_active;not null;default:true"`
	ExecutionDayOfMonth    int                          `gorm:"column:execution_day_of_month;not null"`
	DeliveryDayOfMonth     int                          `gorm:"column:delivery_day_of_month;not null"`
	NotificationDaysBefore int                          `gorm:"column:notification_days_before;not null;default:0"`
	CreatedByUserID        uuid.UUID                    `gorm:"column:created_by_user_id;type:uuid;not null"`
	Items                  []RecurringOrderTemplateItem `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Worker is an institution staff account allowed to place manual orders.
type Worker struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstitutionID uuid.UUID `gorm:"column:institution_id;type:uuid;not null"`
	Name          string    `gorm:"column:name;not null"`
	Email         string    `gorm:"column:email;not null;uniqueIndex"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Patient belongs to an institution; only active patients receive recurring orders.
type Patient struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InstitutionID uuid.UUID `gorm:"column:institution_id;type:uuid;not null"`
	FirstName     string    `gorm:"column:first_name;not null"`
	LastName      string    `gorm:"column:last_name;not null"`
	RoomNumber    *string   `gorm:"column:room_number"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

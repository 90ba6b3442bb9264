package models

import (
	"time"

	"github.com/google/uuid"
)

// Institution is a care facility that orders consumables for its patients.
type Institution struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	Patients  []Patient `gorm:"foreignKey:InstitutionID;constraint:OnDelete:CASCADE"`
	Workers   []Worker  `gorm:"foreignKey:InstitutionID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

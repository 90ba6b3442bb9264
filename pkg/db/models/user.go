package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/curamedis/caresupply-backend/pkg/enums"
)

// User is an administrative account on the supplier side.
type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string          `gorm:"column:email;not null;uniqueIndex"`
	Name      string          `gorm:"column:name;not null"`
	Role      enums.ActorRole `gorm:"column:role;type:text;not null;default:'admin'"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

package patients

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
)

// Repository resolves the patient set for an institution. The active set
// is evaluated at call time, never cached, so templates that target "all
// active patients" see membership changes immediately.
type Repository interface {
	ListActivePatients(ctx context.Context, institutionID uuid.UUID) ([]models.Patient, error)
	CountActivePatients(ctx context.Context, institutionID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActivePatients(ctx context.Context, institutionID uuid.UUID) ([]models.Patient, error) {
	var patients []models.Patient
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND is_active = ?", institutionID, true).
		Order("last_name ASC, first_name ASC").
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *repository) CountActivePatients(ctx context.Context, institutionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("institution_id = ? AND is_active = ?", institutionID, true).
		Count(&count).Error
	return count, err
}

package recurring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/internal/notifications"
	"github.com/curamedis/caresupply-backend/internal/orders"
	"github.com/curamedis/caresupply-backend/pkg/db/models"
)

// Repository defines persistence for templates and their monthly executions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTemplate(ctx context.Context, template *models.RecurringOrderTemplate) error
	FindTemplate(ctx context.Context, templateID uuid.UUID) (*models.RecurringOrderTemplate, error)
	ListTemplates(ctx context.Context, institutionID uuid.UUID) ([]models.RecurringOrderTemplate, error)
	UpdateTemplate(ctx context.Context, templateID uuid.UUID, updates map[string]any) error
	DeleteTemplate(ctx context.Context, templateID uuid.UUID) error

	TemplatesNeedingExecution(ctx context.Context, dayOfMonth int) ([]TemplateBatch, error)
	TemplatesNeedingNotification(ctx context.Context, dayOfMonth int) ([]TemplateBatch, error)
	TemplateBatchByID(ctx context.Context, templateID uuid.UUID) (*TemplateBatch, error)

	CreateExecution(ctx context.Context, templateID uuid.UUID, month time.Time) error
	ClaimExecution(ctx context.Context, executionID uuid.UUID) (bool, error)
	FindExecution(ctx context.Context, executionID uuid.UUID) (*models.RecurringOrderExecution, error)
	FindExecutionForMonth(ctx context.Context, templateID uuid.UUID, month time.Time) (*models.RecurringOrderExecution, error)
	UpdateExecution(ctx context.Context, executionID uuid.UUID, updates map[string]any) error
	ListPendingApprovals(ctx context.Context, institutionID *uuid.UUID) ([]PendingApproval, error)
}

// OrderCreator is the order-lifecycle entry point the scheduler drives.
type OrderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
}

// PatientDirectory resolves the live active-patient set of an institution.
type PatientDirectory interface {
	ListActivePatients(ctx context.Context, institutionID uuid.UUID) ([]models.Patient, error)
}

// NoticePublisher delivers the advance heads-up to the institution. The
// mail renderer behind it is a separate consumer.
type NoticePublisher interface {
	PublishAdvanceNotice(ctx context.Context, event notifications.AdvanceNoticeEvent) error
}

package recurring

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
)

// TemplateItemInput is one product+quantity line on a template. No price
// is stored; pricing is resolved from the live catalog at execution time.
type TemplateItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateTemplateInput carries a new recurring-order template.
type CreateTemplateInput struct {
	InstitutionID          uuid.UUID
	PatientID              *uuid.UUID
	Name                   string
	ExecutionDayOfMonth    int
	DeliveryDayOfMonth     int
	NotificationDaysBefore int
	CreatedByUserID        uuid.UUID
	Items                  []TemplateItemInput
}

// TemplateItemView is a template line joined to the current catalog.
type TemplateItemView struct {
	ProductID        uuid.UUID
	ProductName      string
	Quantity         int
	CurrentUnitPrice decimal.Decimal
}

// TemplateBatch is what the selection queries hand to the scheduler: the
// template, its lines at current catalog prices, and the live count of
// active patients (meaningful when the template is not patient-scoped).
type TemplateBatch struct {
	Template           models.RecurringOrderTemplate
	Items              []TemplateItemView
	ActivePatientCount int64
}

// PendingApproval is an execution awaiting the human approval gate.
type PendingApproval struct {
	Execution     models.RecurringOrderExecution
	TemplateID    uuid.UUID
	TemplateName  string
	InstitutionID uuid.UUID
}

// DailyRunSummary reports one daily-check pass.
type DailyRunSummary struct {
	TemplatesMatched int
	TemplatesRun     int
	TemplatesSkipped int
	TemplatesFailed  int
	OrdersCreated    int
	RunDate          time.Time
}

// NotificationRunSummary reports one advance-notification pass.
type NotificationRunSummary struct {
	TemplatesMatched  int
	NotificationsSent int
	TemplatesSkipped  int
	TemplatesFailed   int
	RunDate           time.Time
}

package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
	"github.com/curamedis/caresupply-backend/pkg/logger"
)

const (
	minDayOfMonth = 1
	// Days are capped at 28 so every template fires in every month,
	// including February.
	maxDayOfMonth = 28
)

// Service owns recurring templates, the daily scheduler passes, and the
// approval gate.
type Service interface {
	CreateTemplate(ctx context.Context, input CreateTemplateInput) (*models.RecurringOrderTemplate, error)
	GetTemplate(ctx context.Context, templateID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.RecurringOrderTemplate, error)
	ListTemplates(ctx context.Context, institutionID uuid.UUID) ([]models.RecurringOrderTemplate, error)
	ToggleTemplateActive(ctx context.Context, templateID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.RecurringOrderTemplate, error)
	DeleteTemplate(ctx context.Context, templateID uuid.UUID, actorInstitutionID *uuid.UUID) error

	ListPendingApprovals(ctx context.Context, actorInstitutionID *uuid.UUID) ([]PendingApproval, error)
	ApproveExecution(ctx context.Context, executionID uuid.UUID, approverID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.RecurringOrderExecution, error)

	RunDailyCheck(ctx context.Context) (*DailyRunSummary, error)
	RunNotificationCheck(ctx context.Context) (*NotificationRunSummary, error)
}

// ServiceParams configures the recurring-order service.
type ServiceParams struct {
	Repo     Repository
	Orders   OrderCreator
	Patients PatientDirectory
	Notices  NoticePublisher
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	orders   OrderCreator
	patients PatientDirectory
	notices  NoticePublisher
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the recurring-order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("recurring repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if params.Patients == nil {
		return nil, fmt.Errorf("patient directory required")
	}
	if params.Notices == nil {
		return nil, fmt.Errorf("notice publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		patients: params.Patients,
		notices:  params.Notices,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) CreateTemplate(ctx context.Context, input CreateTemplateInput) (*models.RecurringOrderTemplate, error) {
	if input.InstitutionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "institution id required")
	}
	if input.CreatedByUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template creator required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template name required")
	}
	if input.ExecutionDayOfMonth < minDayOfMonth || input.ExecutionDayOfMonth > maxDayOfMonth {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("execution day of month must be between %d and %d", minDayOfMonth, maxDayOfMonth))
	}
	if input.DeliveryDayOfMonth < minDayOfMonth || input.DeliveryDayOfMonth > maxDayOfMonth {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("delivery day of month must be between %d and %d", minDayOfMonth, maxDayOfMonth))
	}
	if input.DeliveryDayOfMonth <= input.ExecutionDayOfMonth {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery day must be after execution day")
	}
	if input.NotificationDaysBefore < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification days before cannot be negative")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
	}

	template := &models.RecurringOrderTemplate{
		InstitutionID:          input.InstitutionID,
		PatientID:              input.PatientID,
		Name:                   input.Name,
		IsActive:               true,
		ExecutionDayOfMonth:    input.ExecutionDayOfMonth,
		DeliveryDayOfMonth:     input.DeliveryDayOfMonth,
		NotificationDaysBefore: input.NotificationDaysBefore,
		CreatedByUserID:        input.CreatedByUserID,
	}
	for _, item := range input.Items {
		template.Items = append(template.Items, models.RecurringOrderTemplateItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create template")
	}
	return template, nil
}

func (s *service) GetTemplate(ctx context.Context, templateID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.RecurringOrderTemplate, error) {
	template, err := s.loadOwnedTemplate(ctx, templateID, actorInstitutionID)
	if err != nil {
		return nil, err
	}
	return template, nil
}

func (s *service) ListTemplates(ctx context.Context, institutionID uuid.UUID) ([]models.RecurringOrderTemplate, error) {
	if institutionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "institution id required")
	}
	templates, err := s.repo.ListTemplates(ctx, institutionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list templates")
	}
	return templates, nil
}

func (s *service) ToggleTemplateActive(ctx context.Context, templateID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.RecurringOrderTemplate, error) {
	template, err := s.loadOwnedTemplate(ctx, templateID, actorInstitutionID)
	if err != nil {
		return nil, err
	}
	next := !template.IsActive
	if err := s.repo.UpdateTemplate(ctx, template.ID, map[string]any{"is_active": next}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle template")
	}
	template.IsActive = next
	return template, nil
}

func (s *service) DeleteTemplate(ctx context.Context, templateID uuid.UUID, actorInstitutionID *uuid.UUID) error {
	template, err := s.loadOwnedTemplate(ctx, templateID, actorInstitutionID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, template.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete template")
	}
	return nil
}

func (s *service) loadOwnedTemplate(ctx context.Context, templateID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.RecurringOrderTemplate, error) {
	if templateID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "template id required")
	}
	template, err := s.repo.FindTemplate(ctx, templateID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
	}
	if actorInstitutionID != nil && template.InstitutionID != *actorInstitutionID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "template belongs to another institution")
	}
	return template, nil
}

func (s *service) ListPendingApprovals(ctx context.Context, actorInstitutionID *uuid.UUID) ([]PendingApproval, error) {
	approvals, err := s.repo.ListPendingApprovals(ctx, actorInstitutionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending approvals")
	}
	return approvals, nil
}

// ApproveExecution is the human half of the approval gate. It rejects
// with NotFound when the execution is already approved or fulfilled: the
// pending approval the caller named no longer exists. The gate itself is
// a guarded claim update, so a concurrent approval of the same execution
// loses the claim instead of double-creating orders.
func (s *service) ApproveExecution(ctx context.Context, executionID uuid.UUID, approverID uuid.UUID, actorInstitutionID *uuid.UUID) (*models.RecurringOrderExecution, error) {
	if executionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "execution id required")
	}
	if approverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approver required")
	}

	execution, err := s.repo.FindExecution(ctx, executionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pending approval not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load execution")
	}
	batch, err := s.repo.TemplateBatchByID(ctx, execution.TemplateID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
	}
	if actorInstitutionID != nil && batch.Template.InstitutionID != *actorInstitutionID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "execution belongs to another institution")
	}

	claimed, err := s.repo.ClaimExecution(ctx, executionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim execution")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pending approval not found")
	}

	result, fulfillErr := s.fulfillExecution(ctx, *batch, execution, approverID)
	refreshed, err := s.repo.FindExecution(ctx, executionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload execution")
	}
	if fulfillErr != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"execution_id":   executionID,
			"orders_created": len(result.OrderIDs),
		})
		s.logg.Error(logCtx, "approval fulfilled with failures", fulfillErr)
		return refreshed, pkgerrors.Wrap(pkgerrors.CodeValidation, fulfillErr, "approve execution")
	}
	return refreshed, nil
}

// RunDailyCheck is the scheduler's single daily entry point. Each
// template is processed independently; one template's failure never
// aborts its siblings.
func (s *service) RunDailyCheck(ctx context.Context) (*DailyRunSummary, error) {
	now := s.now().UTC()
	today := now.Day()
	month := monthStart(now)

	batches, err := s.repo.TemplatesNeedingExecution(ctx, today)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query templates needing execution")
	}

	summary := &DailyRunSummary{
		TemplatesMatched: len(batches),
		RunDate:          now,
	}
	var errs error
	for _, batch := range batches {
		created, skipped, err := s.executeTemplate(ctx, batch, month)
		summary.OrdersCreated += created
		if err != nil {
			summary.TemplatesFailed++
			errs = multierr.Append(errs, fmt.Errorf("template %s: %w", batch.Template.ID, err))
			logCtx := s.logg.WithField(ctx, "template_id", batch.Template.ID)
			s.logg.Error(logCtx, "template execution failed", err)
			continue
		}
		if skipped {
			summary.TemplatesSkipped++
			continue
		}
		summary.TemplatesRun++
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"templates_matched": summary.TemplatesMatched,
		"templates_run":     summary.TemplatesRun,
		"templates_skipped": summary.TemplatesSkipped,
		"templates_failed":  summary.TemplatesFailed,
		"orders_created":    summary.OrdersCreated,
	})
	s.logg.Info(logCtx, "daily check complete")
	return summary, errs
}

// executeTemplate runs one template's automatic path: ensure this
// month's execution row exists, claim it, then fulfill with approval
// attributed to the template's creator. A lost claim means the month was
// already handled, by an earlier tick or by a human approval.
func (s *service) executeTemplate(ctx context.Context, batch TemplateBatch, month time.Time) (int, bool, error) {
	if err := s.repo.CreateExecution(ctx, batch.Template.ID, month); err != nil {
		return 0, false, fmt.Errorf("create execution: %w", err)
	}
	execution, err := s.repo.FindExecutionForMonth(ctx, batch.Template.ID, month)
	if err != nil {
		return 0, false, fmt.Errorf("load execution: %w", err)
	}
	claimed, err := s.repo.ClaimExecution(ctx, execution.ID)
	if err != nil {
		return 0, false, fmt.Errorf("claim execution: %w", err)
	}
	if !claimed {
		return 0, true, nil
	}

	result, err := s.fulfillExecution(ctx, batch, execution, batch.Template.CreatedByUserID)
	return len(result.OrderIDs), false, err
}

// RunNotificationCheck sends the advance heads-up for templates whose
// notification window lands on today. No orders are created here; the
// execution row is opened early and marked notification_sent.
func (s *service) RunNotificationCheck(ctx context.Context) (*NotificationRunSummary, error) {
	now := s.now().UTC()
	today := now.Day()
	month := monthStart(now)

	batches, err := s.repo.TemplatesNeedingNotification(ctx, today)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query templates needing notification")
	}

	summary := &NotificationRunSummary{
		TemplatesMatched: len(batches),
		RunDate:          now,
	}
	var errs error
	for _, batch := range batches {
		sent, err := s.notifyTemplate(ctx, batch, month, now)
		if err != nil {
			summary.TemplatesFailed++
			errs = multierr.Append(errs, fmt.Errorf("template %s: %w", batch.Template.ID, err))
			logCtx := s.logg.WithField(ctx, "template_id", batch.Template.ID)
			s.logg.Error(logCtx, "advance notification failed", err)
			continue
		}
		if !sent {
			summary.TemplatesSkipped++
			continue
		}
		summary.NotificationsSent++
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"templates_matched":  summary.TemplatesMatched,
		"notifications_sent": summary.NotificationsSent,
		"templates_skipped":  summary.TemplatesSkipped,
		"templates_failed":   summary.TemplatesFailed,
	})
	s.logg.Info(logCtx, "notification check complete")
	return summary, errs
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/curamedis/caresupply-backend/internal/notifications"
	"github.com/curamedis/caresupply-backend/internal/orders"
	"github.com/curamedis/caresupply-backend/pkg/db/models"
	dbtypes "github.com/curamedis/caresupply-backend/pkg/db/types"
)

type fulfillResult struct {
	OrderIDs      []uuid.UUID
	PatientsTried int
}

// fulfillExecution is the single order-creation primitive shared by the
// automatic scheduler (approver = template creator) and the human
// approval gate. One order per resolved patient, priced from the current
// catalog by the order lifecycle. A failure for one patient does not
// abort the others; the execution is marked fulfilled with whatever
// orders were created, because retrying it would double-create the
// successful ones.
func (s *service) fulfillExecution(ctx context.Context, batch TemplateBatch, execution *models.RecurringOrderExecution, approverID uuid.UUID) (fulfillResult, error) {
	template := batch.Template
	month := execution.ExecutionMonth
	deliveryDate := time.Date(month.Year(), month.Month(), template.DeliveryDayOfMonth, 0, 0, 0, 0, time.UTC)

	targets, err := s.resolveTargets(ctx, template)
	if err != nil {
		return fulfillResult{}, err
	}

	items := make([]orders.OrderItemInput, 0, len(template.Items))
	for _, item := range template.Items {
		items = append(items, orders.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result := fulfillResult{PatientsTried: len(targets)}
	var errs error
	for _, patientID := range targets {
		pid := patientID
		order, err := s.orders.CreateOrder(ctx, orders.CreateOrderInput{
			InstitutionID: template.InstitutionID,
			PatientID:     &pid,
			Items:         items,
			ScheduledDate: &deliveryDate,
			IsRecurring:   true,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("patient %s: %w", pid, err))
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"template_id": template.ID,
				"patient_id":  pid,
			})
			s.logg.Error(logCtx, "recurring order creation failed", err)
			continue
		}
		result.OrderIDs = append(result.OrderIDs, order.ID)
	}

	now := s.now().UTC()
	updates := map[string]any{
		"is_approved":         true,
		"approved_at":         now,
		"approved_by_user_id": approverID,
		"orders_created":      true,
		"orders_created_at":   now,
		"created_order_ids":   dbtypes.UUIDArray(result.OrderIDs),
	}
	if err := s.repo.UpdateExecution(ctx, execution.ID, updates); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("mark execution fulfilled: %w", err))
	}
	return result, errs
}

// resolveTargets expands the template's patient scope at execution time:
// the pinned patient, or every currently-active patient of the
// institution. The set is never cached on the template.
func (s *service) resolveTargets(ctx context.Context, template models.RecurringOrderTemplate) ([]uuid.UUID, error) {
	if template.PatientID != nil {
		return []uuid.UUID{*template.PatientID}, nil
	}
	patients, err := s.patients.ListActivePatients(ctx, template.InstitutionID)
	if err != nil {
		return nil, fmt.Errorf("list active patients: %w", err)
	}
	targets := make([]uuid.UUID, 0, len(patients))
	for _, patient := range patients {
		targets = append(targets, patient.ID)
	}
	return targets, nil
}

// notifyTemplate opens this month's execution row early and publishes
// the advance-notice event once. Returns false when the notification was
// already sent for this month.
func (s *service) notifyTemplate(ctx context.Context, batch TemplateBatch, month time.Time, now time.Time) (bool, error) {
	template := batch.Template
	if err := s.repo.CreateExecution(ctx, template.ID, month); err != nil {
		return false, fmt.Errorf("create execution: %w", err)
	}
	execution, err := s.repo.FindExecutionForMonth(ctx, template.ID, month)
	if err != nil {
		return false, fmt.Errorf("load execution: %w", err)
	}
	if execution.NotificationSent {
		return false, nil
	}

	patientCount := batch.ActivePatientCount
	if template.PatientID != nil {
		patientCount = 1
	}
	event := notifications.AdvanceNoticeEvent{
		ExecutionID:   execution.ID,
		TemplateID:    template.ID,
		TemplateName:  template.Name,
		InstitutionID: template.InstitutionID,
		PatientID:     template.PatientID,
		PatientCount:  patientCount,
		ExecutionDate: time.Date(month.Year(), month.Month(), template.ExecutionDayOfMonth, 0, 0, 0, 0, time.UTC),
		DeliveryDate:  time.Date(month.Year(), month.Month(), template.DeliveryDayOfMonth, 0, 0, 0, 0, time.UTC),
		OccurredAt:    now,
	}
	for _, item := range batch.Items {
		event.Items = append(event.Items, notifications.AdvanceNoticeItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.CurrentUnitPrice,
		})
	}

	if err := s.notices.PublishAdvanceNotice(ctx, event); err != nil {
		return false, fmt.Errorf("publish advance notice: %w", err)
	}

	updates := map[string]any{
		"notification_sent":    true,
		"notification_sent_at": now,
	}
	if err := s.repo.UpdateExecution(ctx, execution.ID, updates); err != nil {
		return false, fmt.Errorf("mark notification sent: %w", err)
	}
	return true, nil
}

package recurring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/curamedis/caresupply-backend/internal/notifications"
	"github.com/curamedis/caresupply-backend/internal/orders"
	"github.com/curamedis/caresupply-backend/pkg/db/models"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
	"github.com/curamedis/caresupply-backend/pkg/logger"
)

type fakeRepo struct {
	templates  map[uuid.UUID]*models.RecurringOrderTemplate
	executions map[uuid.UUID]*models.RecurringOrderExecution
	batches    map[uuid.UUID]*TemplateBatch

	executionBatches     []TemplateBatch
	notificationBatches  []TemplateBatch
	templateUpdates      map[string]any
	deletedTemplates     []uuid.UUID
	executionUpdates     map[uuid.UUID]map[string]any
	pendingApprovals     []PendingApproval
	createExecutionCalls int
	claimDenied          bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		templates:        map[uuid.UUID]*models.RecurringOrderTemplate{},
		executions:       map[uuid.UUID]*models.RecurringOrderExecution{},
		batches:          map[uuid.UUID]*TemplateBatch{},
		executionUpdates: map[uuid.UUID]map[string]any{},
	}
}

func (f *fakeRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepo) CreateTemplate(_ context.Context, template *models.RecurringOrderTemplate) error {
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	f.templates[template.ID] = template
	return nil
}

func (f *fakeRepo) FindTemplate(_ context.Context, templateID uuid.UUID) (*models.RecurringOrderTemplate, error) {
	template, ok := f.templates[templateID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return template, nil
}

func (f *fakeRepo) ListTemplates(_ context.Context, institutionID uuid.UUID) ([]models.RecurringOrderTemplate, error) {
	var out []models.RecurringOrderTemplate
	for _, template := range f.templates {
		if template.InstitutionID == institutionID {
			out = append(out, *template)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateTemplate(_ context.Context, templateID uuid.UUID, updates map[string]any) error {
	f.templateUpdates = updates
	return nil
}

func (f *fakeRepo) DeleteTemplate(_ context.Context, templateID uuid.UUID) error {
	f.deletedTemplates = append(f.deletedTemplates, templateID)
	delete(f.templates, templateID)
	return nil
}

func (f *fakeRepo) TemplatesNeedingExecution(context.Context, int) ([]TemplateBatch, error) {
	return f.executionBatches, nil
}

func (f *fakeRepo) TemplatesNeedingNotification(context.Context, int) ([]TemplateBatch, error) {
	return f.notificationBatches, nil
}

func (f *fakeRepo) TemplateBatchByID(_ context.Context, templateID uuid.UUID) (*TemplateBatch, error) {
	batch, ok := f.batches[templateID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return batch, nil
}

func (f *fakeRepo) CreateExecution(_ context.Context, templateID uuid.UUID, month time.Time) error {
	f.createExecutionCalls++
	for _, execution := range f.executions {
		if execution.TemplateID == templateID && execution.ExecutionMonth.Equal(month) {
			// conflict target hit, insert skipped
			return nil
		}
	}
	execution := &models.RecurringOrderExecution{
		ID:             uuid.New(),
		TemplateID:     templateID,
		ExecutionMonth: month,
	}
	f.executions[execution.ID] = execution
	return nil
}

func (f *fakeRepo) ClaimExecution(_ context.Context, executionID uuid.UUID) (bool, error) {
	if f.claimDenied {
		return false, nil
	}
	execution, ok := f.executions[executionID]
	if !ok {
		return false, nil
	}
	if execution.IsApproved || execution.OrdersCreated {
		return false, nil
	}
	execution.IsApproved = true
	return true, nil
}

func (f *fakeRepo) FindExecution(_ context.Context, executionID uuid.UUID) (*models.RecurringOrderExecution, error) {
	execution, ok := f.executions[executionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return execution, nil
}

func (f *fakeRepo) FindExecutionForMonth(_ context.Context, templateID uuid.UUID, month time.Time) (*models.RecurringOrderExecution, error) {
	for _, execution := range f.executions {
		if execution.TemplateID == templateID && execution.ExecutionMonth.Equal(month) {
			return execution, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) UpdateExecution(_ context.Context, executionID uuid.UUID, updates map[string]any) error {
	f.executionUpdates[executionID] = updates
	execution, ok := f.executions[executionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["orders_created"].(bool); ok {
		execution.OrdersCreated = v
	}
	if v, ok := updates["is_approved"].(bool); ok {
		execution.IsApproved = v
	}
	if v, ok := updates["notification_sent"].(bool); ok {
		execution.NotificationSent = v
	}
	return nil
}

func (f *fakeRepo) ListPendingApprovals(context.Context, *uuid.UUID) ([]PendingApproval, error) {
	return f.pendingApprovals, nil
}

type fakeOrderCreator struct {
	inputs  []orders.CreateOrderInput
	failFor map[uuid.UUID]error
}

func (f *fakeOrderCreator) CreateOrder(_ context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	if input.PatientID != nil && f.failFor != nil {
		if err, ok := f.failFor[*input.PatientID]; ok {
			return nil, err
		}
	}
	f.inputs = append(f.inputs, input)
	return &models.Order{ID: uuid.New(), IsRecurring: input.IsRecurring}, nil
}

type fakePatients struct {
	patients map[uuid.UUID][]models.Patient
}

func (f *fakePatients) ListActivePatients(_ context.Context, institutionID uuid.UUID) ([]models.Patient, error) {
	return f.patients[institutionID], nil
}

type fakeNotices struct {
	events []notifications.AdvanceNoticeEvent
	err    error
}

func (f *fakeNotices) PublishAdvanceNotice(_ context.Context, event notifications.AdvanceNoticeEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fixture struct {
	repo     *fakeRepo
	orders   *fakeOrderCreator
	patients *fakePatients
	notices  *fakeNotices
	svc      *service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newFakeRepo(),
		orders:   &fakeOrderCreator{},
		patients: &fakePatients{patients: map[uuid.UUID][]models.Patient{}},
		notices:  &fakeNotices{},
	}
	svc, err := NewService(ServiceParams{
		Repo:     f.repo,
		Orders:   f.orders,
		Patients: f.patients,
		Notices:  f.notices,
		Logger:   logger.New(logger.Options{ServiceName: "recurring-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return now }
	return f
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error with code %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
}

func (f *fixture) seedTemplate(institutionID uuid.UUID, patientID *uuid.UUID) TemplateBatch {
	template := models.RecurringOrderTemplate{
		ID:                  uuid.New(),
		InstitutionID:       institutionID,
		PatientID:           patientID,
		Name:                "monthly basics",
		IsActive:            true,
		ExecutionDayOfMonth: 5,
		DeliveryDayOfMonth:  20,
		CreatedByUserID:     uuid.New(),
		Items: []models.RecurringOrderTemplateItem{
			{ProductID: uuid.New(), Quantity: 2},
		},
	}
	f.repo.templates[template.ID] = &template
	batch := TemplateBatch{
		Template: template,
		Items: []TemplateItemView{
			{ProductID: template.Items[0].ProductID, ProductName: "bandages", Quantity: 2},
		},
	}
	f.repo.batches[template.ID] = &batch
	return batch
}

func TestCreateTemplateValidatesDays(t *testing.T) {
	f := newFixture(t, time.Now())
	base := CreateTemplateInput{
		InstitutionID:       uuid.New(),
		CreatedByUserID:     uuid.New(),
		Name:                "weekly",
		ExecutionDayOfMonth: 5,
		DeliveryDayOfMonth:  20,
		Items:               []TemplateItemInput{{ProductID: uuid.New(), Quantity: 1}},
	}

	input := base
	input.ExecutionDayOfMonth = 29
	_, err := f.svc.CreateTemplate(context.Background(), input)
	expectCode(t, err, pkgerrors.CodeValidation)

	input = base
	input.DeliveryDayOfMonth = 5
	_, err = f.svc.CreateTemplate(context.Background(), input)
	expectCode(t, err, pkgerrors.CodeValidation)

	input = base
	input.Items = nil
	_, err = f.svc.CreateTemplate(context.Background(), input)
	expectCode(t, err, pkgerrors.CodeValidation)

	template, err := f.svc.CreateTemplate(context.Background(), base)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if !template.IsActive {
		t.Fatalf("new templates start active")
	}
}

func TestTemplateOwnershipChecks(t *testing.T) {
	f := newFixture(t, time.Now())
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)

	other := uuid.New()
	_, err := f.svc.GetTemplate(context.Background(), batch.Template.ID, &other)
	expectCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.GetTemplate(context.Background(), uuid.New(), &institutionID)
	expectCode(t, err, pkgerrors.CodeNotFound)

	toggled, err := f.svc.ToggleTemplateActive(context.Background(), batch.Template.ID, &institutionID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.IsActive {
		t.Fatalf("expected template toggled inactive")
	}
}

func TestRunDailyCheckCreatesOrderPerActivePatient(t *testing.T) {
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)
	f.repo.executionBatches = []TemplateBatch{batch}
	f.patients.patients[institutionID] = []models.Patient{
		{ID: uuid.New()}, {ID: uuid.New()}, {ID: uuid.New()},
	}

	summary, err := f.svc.RunDailyCheck(context.Background())
	if err != nil {
		t.Fatalf("daily check: %v", err)
	}
	if summary.TemplatesRun != 1 || summary.OrdersCreated != 3 {
		t.Fatalf("expected 1 run / 3 orders, got %+v", summary)
	}
	if len(f.orders.inputs) != 3 {
		t.Fatalf("expected 3 order inputs, got %d", len(f.orders.inputs))
	}

	wantDelivery := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	for _, input := range f.orders.inputs {
		if !input.IsRecurring {
			t.Fatalf("scheduler orders must be recurring")
		}
		if input.ScheduledDate == nil || !input.ScheduledDate.Equal(wantDelivery) {
			t.Fatalf("expected delivery %s, got %v", wantDelivery, input.ScheduledDate)
		}
		if input.PatientID == nil {
			t.Fatalf("expected per-patient order")
		}
	}

	execution, err := f.repo.FindExecutionForMonth(context.Background(), batch.Template.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("find execution: %v", err)
	}
	updates := f.repo.executionUpdates[execution.ID]
	if updates == nil {
		t.Fatalf("expected execution marked fulfilled")
	}
	if created, _ := updates["orders_created"].(bool); !created {
		t.Fatalf("expected orders_created=true, got %+v", updates)
	}
}

func TestRunDailyCheckIsIdempotentWithinMonth(t *testing.T) {
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)
	f.repo.executionBatches = []TemplateBatch{batch}
	f.patients.patients[institutionID] = []models.Patient{{ID: uuid.New()}}

	if _, err := f.svc.RunDailyCheck(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := f.svc.RunDailyCheck(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.TemplatesSkipped != 1 || summary.OrdersCreated != 0 {
		t.Fatalf("expected skip on second run, got %+v", summary)
	}
	if len(f.orders.inputs) != 1 {
		t.Fatalf("expected exactly one order across both runs, got %d", len(f.orders.inputs))
	}
}

func TestRunDailyCheckIsolatesPatientFailures(t *testing.T) {
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)
	f.repo.executionBatches = []TemplateBatch{batch}

	good := uuid.New()
	bad := uuid.New()
	f.patients.patients[institutionID] = []models.Patient{{ID: good}, {ID: bad}}
	f.orders.failFor = map[uuid.UUID]error{bad: errors.New("stock exhausted")}

	summary, err := f.svc.RunDailyCheck(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if summary.OrdersCreated != 1 {
		t.Fatalf("expected the healthy patient's order to be created, got %+v", summary)
	}

	// the execution is still marked fulfilled: a retry would double-create
	execution, findErr := f.repo.FindExecutionForMonth(context.Background(), batch.Template.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if findErr != nil {
		t.Fatalf("find execution: %v", findErr)
	}
	if !execution.OrdersCreated {
		t.Fatalf("expected execution marked fulfilled despite partial failure")
	}
}

func TestRunDailyCheckPinnedPatientSkipsDirectory(t *testing.T) {
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	institutionID := uuid.New()
	patientID := uuid.New()
	batch := f.seedTemplate(institutionID, &patientID)
	f.repo.executionBatches = []TemplateBatch{batch}

	summary, err := f.svc.RunDailyCheck(context.Background())
	if err != nil {
		t.Fatalf("daily check: %v", err)
	}
	if summary.OrdersCreated != 1 {
		t.Fatalf("expected one order for pinned patient, got %+v", summary)
	}
	if *f.orders.inputs[0].PatientID != patientID {
		t.Fatalf("expected order for pinned patient")
	}
}

func TestApproveExecutionGate(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)
	f.patients.patients[institutionID] = []models.Patient{{ID: uuid.New()}}

	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := f.repo.CreateExecution(context.Background(), batch.Template.ID, month); err != nil {
		t.Fatalf("seed execution: %v", err)
	}
	execution, err := f.repo.FindExecutionForMonth(context.Background(), batch.Template.ID, month)
	if err != nil {
		t.Fatalf("find execution: %v", err)
	}
	execution.NotificationSent = true

	approver := uuid.New()
	approved, err := f.svc.ApproveExecution(context.Background(), execution.ID, approver, &institutionID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.IsApproved || !approved.OrdersCreated {
		t.Fatalf("expected approval to fulfill execution, got %+v", approved)
	}
	updates := f.repo.executionUpdates[execution.ID]
	if got, ok := updates["approved_by_user_id"].(uuid.UUID); !ok || got != approver {
		t.Fatalf("expected approver recorded, got %+v", updates)
	}

	// second approval attempt: the pending approval no longer exists
	_, err = f.svc.ApproveExecution(context.Background(), execution.ID, approver, &institutionID)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestApproveExecutionLosingClaimCreatesNoOrders(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)
	f.patients.patients[institutionID] = []models.Patient{{ID: uuid.New()}}

	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := f.repo.CreateExecution(context.Background(), batch.Template.ID, month); err != nil {
		t.Fatalf("seed execution: %v", err)
	}
	execution, err := f.repo.FindExecutionForMonth(context.Background(), batch.Template.ID, month)
	if err != nil {
		t.Fatalf("find execution: %v", err)
	}

	// another approver wins the claim between this caller's read and
	// its own claim attempt
	f.repo.claimDenied = true

	_, err = f.svc.ApproveExecution(context.Background(), execution.ID, uuid.New(), &institutionID)
	expectCode(t, err, pkgerrors.CodeNotFound)
	if len(f.orders.inputs) != 0 {
		t.Fatalf("losing the claim must not create orders, got %d", len(f.orders.inputs))
	}
}

func TestApproveExecutionScopeAndUnknown(t *testing.T) {
	now := time.Now().UTC()
	f := newFixture(t, now)
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)

	month := monthStart(now)
	if err := f.repo.CreateExecution(context.Background(), batch.Template.ID, month); err != nil {
		t.Fatalf("seed execution: %v", err)
	}
	execution, err := f.repo.FindExecutionForMonth(context.Background(), batch.Template.ID, month)
	if err != nil {
		t.Fatalf("find execution: %v", err)
	}

	other := uuid.New()
	_, err = f.svc.ApproveExecution(context.Background(), execution.ID, uuid.New(), &other)
	expectCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.ApproveExecution(context.Background(), uuid.New(), uuid.New(), &institutionID)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestRunNotificationCheckPublishesOncePerMonth(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)
	batch.ActivePatientCount = 4
	f.repo.notificationBatches = []TemplateBatch{batch}

	summary, err := f.svc.RunNotificationCheck(context.Background())
	if err != nil {
		t.Fatalf("notification check: %v", err)
	}
	if summary.NotificationsSent != 1 {
		t.Fatalf("expected one notification, got %+v", summary)
	}
	if len(f.notices.events) != 1 {
		t.Fatalf("expected one event, got %d", len(f.notices.events))
	}
	event := f.notices.events[0]
	if event.PatientCount != 4 {
		t.Fatalf("expected patient count 4, got %d", event.PatientCount)
	}
	wantExecution := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if !event.ExecutionDate.Equal(wantExecution) {
		t.Fatalf("expected execution date %s, got %s", wantExecution, event.ExecutionDate)
	}
	if len(event.Items) != 1 || event.Items[0].ProductName != "bandages" {
		t.Fatalf("expected joined catalog items on the event, got %+v", event.Items)
	}

	// second pass in the same month is a no-op
	summary, err = f.svc.RunNotificationCheck(context.Background())
	if err != nil {
		t.Fatalf("second notification check: %v", err)
	}
	if summary.TemplatesSkipped != 1 || len(f.notices.events) != 1 {
		t.Fatalf("expected skip on second pass, got %+v", summary)
	}
}

func TestRunNotificationCheckPublishFailureLeavesFlagUnset(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	institutionID := uuid.New()
	batch := f.seedTemplate(institutionID, nil)
	f.repo.notificationBatches = []TemplateBatch{batch}
	f.notices.err = fmt.Errorf("broker unavailable")

	summary, err := f.svc.RunNotificationCheck(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if summary.TemplatesFailed != 1 {
		t.Fatalf("expected one failure, got %+v", summary)
	}

	execution, findErr := f.repo.FindExecutionForMonth(context.Background(), batch.Template.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if findErr != nil {
		t.Fatalf("find execution: %v", findErr)
	}
	if execution.NotificationSent {
		t.Fatalf("publish failure must leave notification_sent unset so the next pass retries")
	}
}

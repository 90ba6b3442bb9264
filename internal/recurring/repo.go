package recurring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/curamedis/caresupply-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed template/execution repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTemplate(ctx context.Context, template *models.RecurringOrderTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *repository) FindTemplate(ctx context.Context, templateID uuid.UUID) (*models.RecurringOrderTemplate, error) {
	var template models.RecurringOrderTemplate
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", templateID).
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *repository) ListTemplates(ctx context.Context, institutionID uuid.UUID) ([]models.RecurringOrderTemplate, error) {
	var templates []models.RecurringOrderTemplate
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("institution_id = ?", institutionID).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *repository) UpdateTemplate(ctx context.Context, templateID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.RecurringOrderTemplate{}).
		Where("id = ?", templateID).
		Updates(updates).Error
}

func (r *repository) DeleteTemplate(ctx context.Context, templateID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", templateID).
		Delete(&models.RecurringOrderTemplate{}).Error
}

func (r *repository) TemplatesNeedingExecution(ctx context.Context, dayOfMonth int) ([]TemplateBatch, error) {
	var templates []models.RecurringOrderTemplate
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("is_active = ? AND execution_day_of_month = ?", true, dayOfMonth).
		Order("created_at ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return r.buildBatches(ctx, templates)
}

func (r *repository) TemplatesNeedingNotification(ctx context.Context, dayOfMonth int) ([]TemplateBatch, error) {
	var templates []models.RecurringOrderTemplate
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("is_active = ? AND notification_days_before > 0 AND execution_day_of_month - notification_days_before = ?", true, dayOfMonth).
		Order("created_at ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return r.buildBatches(ctx, templates)
}

func (r *repository) TemplateBatchByID(ctx context.Context, templateID uuid.UUID) (*TemplateBatch, error) {
	template, err := r.FindTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	batches, err := r.buildBatches(ctx, []models.RecurringOrderTemplate{*template})
	if err != nil {
		return nil, err
	}
	return &batches[0], nil
}

// buildBatches joins template lines to the current catalog and resolves
// the live active-patient count per institution. Prices are never stored
// on the template, so every read reflects the catalog as of now.
func (r *repository) buildBatches(ctx context.Context, templates []models.RecurringOrderTemplate) ([]TemplateBatch, error) {
	if len(templates) == 0 {
		return []TemplateBatch{}, nil
	}

	productIDs := make([]uuid.UUID, 0)
	institutionIDs := make([]uuid.UUID, 0)
	seenProducts := map[uuid.UUID]bool{}
	seenInstitutions := map[uuid.UUID]bool{}
	for _, template := range templates {
		if !seenInstitutions[template.InstitutionID] {
			seenInstitutions[template.InstitutionID] = true
			institutionIDs = append(institutionIDs, template.InstitutionID)
		}
		for _, item := range template.Items {
			if !seenProducts[item.ProductID] {
				seenProducts[item.ProductID] = true
				productIDs = append(productIDs, item.ProductID)
			}
		}
	}

	products := map[uuid.UUID]models.Product{}
	if len(productIDs) > 0 {
		var rows []models.Product
		if err := r.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, p := range rows {
			products[p.ID] = p
		}
	}

	patientCounts := map[uuid.UUID]int64{}
	var counts []struct {
		InstitutionID uuid.UUID
		Count         int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Patient{}).
		Select("institution_id, COUNT(*) AS count").
		Where("institution_id IN ? AND is_active = ?", institutionIDs, true).
		Group("institution_id").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		patientCounts[c.InstitutionID] = c.Count
	}

	batches := make([]TemplateBatch, 0, len(templates))
	for _, template := range templates {
		items := make([]TemplateItemView, 0, len(template.Items))
		for _, item := range template.Items {
			view := TemplateItemView{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			}
			if product, ok := products[item.ProductID]; ok {
				view.ProductName = product.Name
				view.CurrentUnitPrice = product.UnitPrice
			}
			items = append(items, view)
		}
		batches = append(batches, TemplateBatch{
			Template:           template,
			Items:              items,
			ActivePatientCount: patientCounts[template.InstitutionID],
		})
	}
	return batches, nil
}

// CreateExecution is the idempotency primitive: an upsert that is a
// no-op when the (template, month) row already exists. Callers must not
// assume the row is freshly created.
func (r *repository) CreateExecution(ctx context.Context, templateID uuid.UUID, month time.Time) error {
	execution := models.RecurringOrderExecution{
		TemplateID:     templateID,
		ExecutionMonth: month,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "template_id"}, {Name: "execution_month"}},
			DoNothing: true,
		}).
		Create(&execution).Error
}

// ClaimExecution flips is_approved on an execution that is still
// unapproved and unfulfilled. The guarded update is what keeps two
// concurrent approvals, or an approval racing the scheduler tick, from
// both fulfilling the same month.
func (r *repository) ClaimExecution(ctx context.Context, executionID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RecurringOrderExecution{}).
		Where("id = ? AND is_approved = ? AND orders_created = ?", executionID, false, false).
		Update("is_approved", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindExecution(ctx context.Context, executionID uuid.UUID) (*models.RecurringOrderExecution, error) {
	var execution models.RecurringOrderExecution
	err := r.db.WithContext(ctx).
		Where("id = ?", executionID).
		First(&execution).Error
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

func (r *repository) FindExecutionForMonth(ctx context.Context, templateID uuid.UUID, month time.Time) (*models.RecurringOrderExecution, error) {
	var execution models.RecurringOrderExecution
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND execution_month = ?", templateID, month).
		First(&execution).Error
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

func (r *repository) UpdateExecution(ctx context.Context, executionID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.RecurringOrderExecution{}).
		Where("id = ?", executionID).
		Updates(updates).Error
}

func (r *repository) ListPendingApprovals(ctx context.Context, institutionID *uuid.UUID) ([]PendingApproval, error) {
	query := r.db.WithContext(ctx).
		Model(&models.RecurringOrderExecution{}).
		Select("recurring_order_executions.*, recurring_order_templates.name AS template_name, recurring_order_templates.institution_id AS institution_id").
		Joins("JOIN recurring_order_templates ON recurring_order_templates.id = recurring_order_executions.template_id").
		Where("recurring_order_executions.notification_sent = ?", true).
		Where("recurring_order_executions.is_approved = ?", false).
		Where("recurring_order_executions.orders_created = ?", false).
		Order("recurring_order_executions.execution_month ASC")
	if institutionID != nil {
		query = query.Where("recurring_order_templates.institution_id = ?", *institutionID)
	}

	var rows []struct {
		models.RecurringOrderExecution
		TemplateName  string
		InstitutionID uuid.UUID
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	approvals := make([]PendingApproval, 0, len(rows))
	for _, row := range rows {
		approvals = append(approvals, PendingApproval{
			Execution:     row.RecurringOrderExecution,
			TemplateID:    row.TemplateID,
			TemplateName:  row.TemplateName,
			InstitutionID: row.InstitutionID,
		})
	}
	return approvals, nil
}

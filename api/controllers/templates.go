package controllers

import (
	"net/http"

	"github.com/curamedis/caresupply-backend/api/middleware"
	"github.com/curamedis/caresupply-backend/api/responses"
	"github.com/curamedis/caresupply-backend/api/validators"
	"github.com/curamedis/caresupply-backend/internal/recurring"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
	"github.com/curamedis/caresupply-backend/pkg/logger"
)

type templateItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createTemplateRequest struct {
	InstitutionID          *string               `json:"institution_id,omitempty" validate:"omitempty,uuid"`
	PatientID              *string               `json:"patient_id,omitempty" validate:"omitempty,uuid"`
	Name                   string                `json:"name" validate:"required,max=200"`
	ExecutionDayOfMonth    int                   `json:"execution_day_of_month" validate:"required,min=1,max=28"`
	DeliveryDayOfMonth     int                   `json:"delivery_day_of_month" validate:"required,min=1,max=28"`
	NotificationDaysBefore int                   `json:"notification_days_before" validate:"min=0,max=27"`
	Items                  []templateItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateTemplate registers a recurring-order template for the actor's
// institution.
func CreateTemplate(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTemplateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		institutionID, err := resolveInstitution(r, req.InstitutionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		creatorID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patientID, err := parseOptionalUUID(req.PatientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := recurring.CreateTemplateInput{
			InstitutionID:          institutionID,
			PatientID:              patientID,
			Name:                   validators.SanitizeString(req.Name, 200),
			ExecutionDayOfMonth:    req.ExecutionDayOfMonth,
			DeliveryDayOfMonth:     req.DeliveryDayOfMonth,
			NotificationDaysBefore: req.NotificationDaysBefore,
			CreatedByUserID:        creatorID,
		}
		for _, item := range req.Items {
			productID, err := parseOptionalUUID(&item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Items = append(input.Items, recurring.TemplateItemInput{
				ProductID: *productID,
				Quantity:  item.Quantity,
			})
		}

		template, err := svc.CreateTemplate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, template)
	}
}

// ListTemplates returns the institution's templates.
func ListTemplates(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := middleware.InstitutionScopeFromContext(r.Context())
		if scope == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "institution context required"))
			return
		}
		templates, err := svc.ListTemplates(r.Context(), *scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, templates)
	}
}

// GetTemplate returns one template after an ownership check.
func GetTemplate(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateID, err := parseUUIDParam(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		template, err := svc.GetTemplate(r.Context(), templateID, middleware.InstitutionScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, template)
	}
}

// ToggleTemplate flips a template's active flag.
func ToggleTemplate(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateID, err := parseUUIDParam(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		template, err := svc.ToggleTemplateActive(r.Context(), templateID, middleware.InstitutionScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, template)
	}
}

// DeleteTemplate removes a template and its items.
func DeleteTemplate(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templateID, err := parseUUIDParam(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteTemplate(r.Context(), templateID, middleware.InstitutionScopeFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

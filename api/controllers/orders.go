package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/curamedis/caresupply-backend/api/middleware"
	"github.com/curamedis/caresupply-backend/api/responses"
	"github.com/curamedis/caresupply-backend/api/validators"
	"github.com/curamedis/caresupply-backend/internal/orders"
	"github.com/curamedis/caresupply-backend/pkg/enums"
	pkgerrors "github.com/curamedis/caresupply-backend/pkg/errors"
	"github.com/curamedis/caresupply-backend/pkg/logger"
	"github.com/curamedis/caresupply-backend/pkg/pagination"
)

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	InstitutionID *string            `json:"institution_id,omitempty" validate:"omitempty,uuid"`
	PatientID     *string            `json:"patient_id,omitempty" validate:"omitempty,uuid"`
	WorkerID      *string            `json:"worker_id,omitempty" validate:"omitempty,uuid"`
	ScheduledDate *string            `json:"scheduled_date,omitempty"`
	Items         []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateOrder places a manual order. The creator is the authenticated
// admin user unless a worker id is supplied.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		institutionID, err := resolveInstitution(r, req.InstitutionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patientID, err := parseOptionalUUID(req.PatientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		workerID, err := parseOptionalUUID(req.WorkerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.CreateOrderInput{
			InstitutionID: institutionID,
			PatientID:     patientID,
		}
		if workerID != nil {
			input.CreatedByWorkerID = workerID
		} else {
			userID, err := actorUserID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CreatedByUserID = &userID
		}
		if req.ScheduledDate != nil && strings.TrimSpace(*req.ScheduledDate) != "" {
			scheduled, err := time.Parse("2006-01-02", strings.TrimSpace(*req.ScheduledDate))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scheduled_date"))
				return
			}
			input.ScheduledDate = &scheduled
		}
		for _, item := range req.Items {
			productID, err := parseOptionalUUID(&item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Items = append(input.Items, orders.OrderItemInput{
				ProductID: *productID,
				Quantity:  item.Quantity,
			})
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListOrders returns a cursor-paginated order page for the institution.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := middleware.InstitutionScopeFromContext(r.Context())
		if scope == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "institution context required"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), *scope, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func buildOrderFilters(r *http.Request) (orders.OrderFilters, error) {
	filters := orders.OrderFilters{}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter").
				WithDetails(map[string]any{"status": raw})
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("is_recurring")); raw != "" {
		recurring := raw == "true"
		filters.IsRecurring = &recurring
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from date")
		}
		filters.DateFrom = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to date")
		}
		filters.DateTo = &to
	}
	return filters, nil
}

// GetOrder returns one order with its items.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID, middleware.InstitutionScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// TransitionOrder moves an order through the status state machine.
func TransitionOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Transition(r.Context(), orders.TransitionInput{
			OrderID:            orderID,
			NewStatus:          enums.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
			ActorUserID:        &userID,
			ActorInstitutionID: middleware.InstitutionScopeFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// DeleteOrder removes a still-pending order.
func DeleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), orderID, middleware.InstitutionScopeFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

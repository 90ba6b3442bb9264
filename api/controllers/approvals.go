package controllers

import (
	"net/http"

	"github.com/curamedis/caresupply-backend/api/middleware"
	"github.com/curamedis/caresupply-backend/api/responses"
	"github.com/curamedis/caresupply-backend/internal/recurring"
	"github.com/curamedis/caresupply-backend/pkg/logger"
)

// ListPendingApprovals returns executions waiting on the approval gate,
// scoped to the actor's institution when the token carries one.
func ListPendingApprovals(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		approvals, err := svc.ListPendingApprovals(r.Context(), middleware.InstitutionScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, approvals)
	}
}

// ApproveExecution converts a notified execution into created orders.
func ApproveExecution(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		executionID, err := parseUUIDParam(r, "executionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approverID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		execution, err := svc.ApproveExecution(r.Context(), executionID, approverID, middleware.InstitutionScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, execution)
	}
}

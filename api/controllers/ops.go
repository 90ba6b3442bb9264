package controllers

import (
	"net/http"

	"github.com/curamedis/caresupply-backend/api/responses"
	"github.com/curamedis/caresupply-backend/internal/recurring"
	"github.com/curamedis/caresupply-backend/pkg/logger"
)

// TriggerDailyCheck runs the scheduler pass on demand. Ops escape hatch;
// the execution upsert keeps a double trigger from double-creating.
func TriggerDailyCheck(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.RunDailyCheck(r.Context())
		if err != nil && summary == nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil {
			logg.Error(r.Context(), "manual daily check finished with failures", err)
		}
		responses.WriteSuccess(w, summary)
	}
}

// TriggerNotificationCheck runs the advance-notification pass on demand.
func TriggerNotificationCheck(svc recurring.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.RunNotificationCheck(r.Context())
		if err != nil && summary == nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil {
			logg.Error(r.Context(), "manual notification check finished with failures", err)
		}
		responses.WriteSuccess(w, summary)
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curamedis/caresupply-backend/api/controllers"
	"github.com/curamedis/caresupply-backend/api/middleware"
	"github.com/curamedis/caresupply-backend/internal/orders"
	"github.com/curamedis/caresupply-backend/internal/recurring"
	"github.com/curamedis/caresupply-backend/internal/stock"
	"github.com/curamedis/caresupply-backend/pkg/config"
	"github.com/curamedis/caresupply-backend/pkg/db"
	"github.com/curamedis/caresupply-backend/pkg/enums"
	"github.com/curamedis/caresupply-backend/pkg/logger"
	"github.com/curamedis/caresupply-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	ordersSvc orders.Service,
	stockSvc stock.Service,
	recurringSvc recurring.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", controllers.ListTemplates(recurringSvc, logg))
			r.Post("/", controllers.CreateTemplate(recurringSvc, logg))
			r.Get("/{templateId}", controllers.GetTemplate(recurringSvc, logg))
			r.Post("/{templateId}/toggle", controllers.ToggleTemplate(recurringSvc, logg))
			r.Delete("/{templateId}", controllers.DeleteTemplate(recurringSvc, logg))
		})

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", controllers.ListPendingApprovals(recurringSvc, logg))
			r.Post("/{executionId}/approve", controllers.ApproveExecution(recurringSvc, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersSvc, logg))
			r.Post("/", controllers.CreateOrder(ordersSvc, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersSvc, logg))
			r.Post("/{orderId}/transition", controllers.TransitionOrder(ordersSvc, logg))
			r.Delete("/{orderId}", controllers.DeleteOrder(ordersSvc, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/low", controllers.ListLowStock(stockSvc, logg))
			r.Post("/{productId}/increase", controllers.IncreaseStock(stockSvc, logg))
			r.Post("/{productId}/decrease", controllers.DecreaseStock(stockSvc, logg))
			r.Put("/{productId}/quantity", controllers.SetStockQuantity(stockSvc, logg))
			r.Put("/{productId}/threshold", controllers.SetStockThreshold(stockSvc, logg))
			r.Post("/{productId}/acknowledge", controllers.AcknowledgeLowStock(stockSvc, logg))
		})

		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
			r.Post("/daily-check", controllers.TriggerDailyCheck(recurringSvc, logg))
			r.Post("/notification-check", controllers.TriggerNotificationCheck(recurringSvc, logg))
		})
	})

	return r
}

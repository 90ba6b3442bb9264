package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/curamedis/caresupply-backend/internal/orders"
	"github.com/curamedis/caresupply-backend/internal/recurring"
	pkgauth "github.com/curamedis/caresupply-backend/pkg/auth"
	"github.com/curamedis/caresupply-backend/pkg/config"
	"github.com/curamedis/caresupply-backend/pkg/db/models"
	"github.com/curamedis/caresupply-backend/pkg/enums"
	"github.com/curamedis/caresupply-backend/pkg/logger"
	"github.com/curamedis/caresupply-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOrdersService struct{}

func (stubOrdersService) CreateOrder(context.Context, orders.CreateOrderInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrdersService) Transition(context.Context, orders.TransitionInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrdersService) Delete(context.Context, uuid.UUID, *uuid.UUID) error { return nil }

func (stubOrdersService) GetOrder(context.Context, uuid.UUID, *uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrdersService) ListOrders(context.Context, uuid.UUID, pagination.Params, orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubOrdersService) RecomputeTotal(context.Context, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

type stubStockService struct{}

func (stubStockService) Increase(context.Context, uuid.UUID, int) (*models.Product, error) {
	return &models.Product{}, nil
}

func (stubStockService) Decrease(context.Context, uuid.UUID, int) (*models.Product, error) {
	return &models.Product{}, nil
}

func (stubStockService) SetQuantity(context.Context, uuid.UUID, int) (*models.Product, error) {
	return &models.Product{}, nil
}

func (stubStockService) SetThreshold(context.Context, uuid.UUID, int) (*models.Product, error) {
	return &models.Product{}, nil
}

func (stubStockService) Acknowledge(context.Context, uuid.UUID) (*models.Product, error) {
	return &models.Product{}, nil
}

func (stubStockService) ListLowStock(context.Context) ([]models.Product, error) {
	return nil, nil
}

type stubRecurringService struct {
	dailyRuns int
}

func (s *stubRecurringService) CreateTemplate(context.Context, recurring.CreateTemplateInput) (*models.RecurringOrderTemplate, error) {
	return &models.RecurringOrderTemplate{}, nil
}

func (s *stubRecurringService) GetTemplate(context.Context, uuid.UUID, *uuid.UUID) (*models.RecurringOrderTemplate, error) {
	return &models.RecurringOrderTemplate{}, nil
}

func (s *stubRecurringService) ListTemplates(context.Context, uuid.UUID) ([]models.RecurringOrderTemplate, error) {
	return nil, nil
}

func (s *stubRecurringService) ToggleTemplateActive(context.Context, uuid.UUID, *uuid.UUID) (*models.RecurringOrderTemplate, error) {
	return &models.RecurringOrderTemplate{}, nil
}

func (s *stubRecurringService) DeleteTemplate(context.Context, uuid.UUID, *uuid.UUID) error {
	return nil
}

func (s *stubRecurringService) ListPendingApprovals(context.Context, *uuid.UUID) ([]recurring.PendingApproval, error) {
	return nil, nil
}

func (s *stubRecurringService) ApproveExecution(context.Context, uuid.UUID, uuid.UUID, *uuid.UUID) (*models.RecurringOrderExecution, error) {
	return &models.RecurringOrderExecution{}, nil
}

func (s *stubRecurringService) RunDailyCheck(context.Context) (*recurring.DailyRunSummary, error) {
	s.dailyRuns++
	return &recurring.DailyRunSummary{}, nil
}

func (s *stubRecurringService) RunNotificationCheck(context.Context) (*recurring.NotificationRunSummary, error) {
	return &recurring.NotificationRunSummary{}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{
		Secret:            "router-test-secret",
		Issuer:            "caresupply",
		ExpirationMinutes: 15,
	}
	return cfg
}

func testRouter(t *testing.T, cfg *config.Config, recurringSvc recurring.Service) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, stubPinger{}, stubOrdersService{}, stubStockService{}, recurringSvc)
}

func mintToken(t *testing.T, cfg *config.Config, role enums.ActorRole, institutionID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:        uuid.New(),
		InstitutionID: institutionID,
		Role:          role,
		JTI:           uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, cfg, &stubRecurringService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-CareSupply-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, cfg, &stubRecurringService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, cfg, &stubRecurringService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTemplatesListWithScopedToken(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, cfg, &stubRecurringService{})

	institutionID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.ActorRoleAdmin, &institutionID))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOpsEndpointsAdminOnly(t *testing.T) {
	cfg := testConfig()
	svc := &stubRecurringService{}
	router := testRouter(t, cfg, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ops/daily-check", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.ActorRoleWorker, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for worker, got %d", rec.Code)
	}
	if svc.dailyRuns != 0 {
		t.Fatalf("daily check must not run for worker role")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/ops/daily-check", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.ActorRoleAdmin, nil))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.dailyRuns != 1 {
		t.Fatalf("expected one daily run, got %d", svc.dailyRuns)
	}
}

package cron

import (
	"context"
	"fmt"

	"github.com/curamedis/caresupply-backend/internal/recurring"
	"github.com/curamedis/caresupply-backend/pkg/logger"
)

type dailyCheckRunner interface {
	RunDailyCheck(ctx context.Context) (*recurring.DailyRunSummary, error)
}

// NewRecurringOrderJob wraps the recurring-order daily check as a cron job.
func NewRecurringOrderJob(logg *logger.Logger, runner dailyCheckRunner) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if runner == nil {
		return nil, fmt.Errorf("daily check runner required")
	}
	return &recurringOrderJob{logg: logg, runner: runner}, nil
}

type recurringOrderJob struct {
	logg   *logger.Logger
	runner dailyCheckRunner
}

func (j *recurringOrderJob) Name() string { return "recurring-order-execution" }

func (j *recurringOrderJob) Run(ctx context.Context) error {
	summary, err := j.runner.RunDailyCheck(ctx)
	if summary != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"templates_matched": summary.TemplatesMatched,
			"orders_created":    summary.OrdersCreated,
		})
		j.logg.Info(logCtx, "recurring order job finished")
	}
	return err
}

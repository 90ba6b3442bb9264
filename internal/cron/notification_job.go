package cron

import (
	"context"
	"fmt"

	"github.com/curamedis/caresupply-backend/internal/recurring"
	"github.com/curamedis/caresupply-backend/pkg/logger"
)

type notificationCheckRunner interface {
	RunNotificationCheck(ctx context.Context) (*recurring.NotificationRunSummary, error)
}

// NewAdvanceNotificationJob wraps the advance-notification pass as a cron job.
func NewAdvanceNotificationJob(logg *logger.Logger, runner notificationCheckRunner) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if runner == nil {
		return nil, fmt.Errorf("notification check runner required")
	}
	return &advanceNotificationJob{logg: logg, runner: runner}, nil
}

type advanceNotificationJob struct {
	logg   *logger.Logger
	runner notificationCheckRunner
}

func (j *advanceNotificationJob) Name() string { return "recurring-advance-notification" }

func (j *advanceNotificationJob) Run(ctx context.Context) error {
	summary, err := j.runner.RunNotificationCheck(ctx)
	if summary != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"templates_matched":  summary.TemplatesMatched,
			"notifications_sent": summary.NotificationsSent,
		})
		j.logg.Info(logCtx, "advance notification job finished")
	}
	return err
}

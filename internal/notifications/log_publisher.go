package notifications

import (
	"context"
	"fmt"

	"github.com/curamedis/caresupply-backend/pkg/logger"
)

// LogPublisher is the local-dev stand-in used when no Pub/Sub project is
// configured. It records the notice instead of delivering it.
type LogPublisher struct {
	logg *logger.Logger
}

func NewLogPublisher(logg *logger.Logger) (*LogPublisher, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogPublisher{logg: logg}, nil
}

func (p *LogPublisher) PublishAdvanceNotice(ctx context.Context, event AdvanceNoticeEvent) error {
	logCtx := p.logg.WithFields(ctx, map[string]any{
		"event_type":     AdvanceNoticeEventType,
		"execution_id":   event.ExecutionID,
		"template_id":    event.TemplateID,
		"institution_id": event.InstitutionID,
		"patient_count":  event.PatientCount,
	})
	p.logg.Info(logCtx, "advance notice (log only, pub/sub not configured)")
	return nil
}

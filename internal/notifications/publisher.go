package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/curamedis/caresupply-backend/pkg/logger"
)

// topicPublisher is the slice of the Pub/Sub publisher we use.
type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}

// Publisher emits advance-notice events to the notification topic.
type Publisher struct {
	topic topicPublisher
	logg  *logger.Logger
}

// NewPublisher builds the notification publisher around a Pub/Sub topic.
func NewPublisher(topic *pubsub.Publisher, logg *logger.Logger) (*Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("notification topic publisher required")
	}
	return newPublisher(&gcpPublisher{Publisher: topic}, logg)
}

func newPublisher(topic topicPublisher, logg *logger.Logger) (*Publisher, error) {
	if topic == nil {
		return nil, fmt.Errorf("notification topic publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Publisher{topic: topic, logg: logg}, nil
}

// PublishAdvanceNotice sends one advance-notice event and waits for the
// server acknowledgement so the caller can mark notification_sent only
// after the message is durably accepted.
func (p *Publisher) PublishAdvanceNotice(ctx context.Context, event AdvanceNoticeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal advance notice: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type":     AdvanceNoticeEventType,
			"institution_id": event.InstitutionID.String(),
			"template_id":    event.TemplateID.String(),
		},
	})
	msgID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish advance notice: %w", err)
	}

	logCtx := p.logg.WithFields(ctx, map[string]any{
		"message_id":  msgID,
		"template_id": event.TemplateID,
	})
	p.logg.Info(logCtx, "advance notice published")
	return nil
}

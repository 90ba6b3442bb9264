package main

import (
	"context"

	"github.com/curamedis/caresupply-backend/internal/notifications"
	"github.com/curamedis/caresupply-backend/internal/recurring"
	"github.com/curamedis/caresupply-backend/pkg/config"
	"github.com/curamedis/caresupply-backend/pkg/logger"
	"github.com/curamedis/caresupply-backend/pkg/pubsub"
)

// buildNoticePublisher wires the Pub/Sub advance-notice publisher, or a
// log-only stand-in when no GCP project is configured (local dev).
func buildNoticePublisher(ctx context.Context, cfg *config.Config, logg *logger.Logger) (recurring.NoticePublisher, func(), error) {
	if cfg.GCP.ProjectID == "" {
		pub, err := notifications.NewLogPublisher(logg)
		if err != nil {
			return nil, nil, err
		}
		logg.Warn(ctx, "pub/sub project not configured, advance notices will only be logged")
		return pub, func() {}, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, err
	}
	pub, err := notifications.NewPublisher(client.NotificationPublisher(), logg)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing pub/sub client", err)
		}
	}
	return pub, cleanup, nil
}

package driving

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// ChannelService manages push-notification channels.
type ChannelService interface {
	// Watch registers a channel for a calendar. Calendars that cannot be
	// watched return a WatchUnsupported result and no error.
	Watch(ctx context.Context, calendarID string) (*domain.WatchResult, error)

	// Unwatch stops a channel and marks it inactive.
	Unwatch(ctx context.Context, channelID string) error

	// List returns the channels of a calendar.
	List(ctx context.Context, calendarID string) ([]domain.NotificationChannel, error)
}

// WebhookHandler handles inbound push notifications.
type WebhookHandler interface {
	// Handle triggers a sync for the channel's calendar.
	// Returns domain.ErrRecordNotFound, domain.ErrChannelInactive or
	// domain.ErrProcessing.
	Handle(ctx context.Context, channelID, resourceID string) error
}

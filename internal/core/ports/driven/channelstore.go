package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// ChannelStore persists notification channels.
type ChannelStore interface {
	// Save stores or updates a channel.
	Save(ctx context.Context, channel domain.NotificationChannel) error

	// GetByChannelID retrieves a channel by its remote channel ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetByChannelID(ctx context.Context, channelID string) (*domain.NotificationChannel, error)

	// ListByCalendar returns the channels of a calendar.
	ListByCalendar(ctx context.Context, calendarID string) ([]domain.NotificationChannel, error)

	// Deactivate marks a channel inactive.
	Deactivate(ctx context.Context, channelID string) error

	// Delete removes a channel.
	Delete(ctx context.Context, channelID string) error
}

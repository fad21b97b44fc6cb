package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure ChannelManager implements the interface.
var _ driving.ChannelService = (*ChannelManager)(nil)

var channelLog = logger.Named("channels")

// ChannelManager registers and stops push-notification channels.
type ChannelManager struct {
	calendars driven.CalendarStore
	channels  driven.ChannelStore
	factory   driven.CalendarClientFactory
	sink      driven.DiagnosticSink

	now   func() time.Time
	newID func() string
}

// NewChannelManager creates a new channel manager. sink may be nil.
func NewChannelManager(
	calendars driven.CalendarStore,
	channels driven.ChannelStore,
	factory driven.CalendarClientFactory,
	sink driven.DiagnosticSink,
) *ChannelManager {
	return &ChannelManager{
		calendars: calendars,
		channels:  channels,
		factory:   factory,
		sink:      sink,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Watch registers a channel for a calendar and stores it as active.
// Unwatchable calendars return a WatchUnsupported result without error.
func (m *ChannelManager) Watch(ctx context.Context, calendarID string) (*domain.WatchResult, error) {
	cal, err := m.calendars.Get(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	if !cal.Syncable() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotSyncable, calendarID)
	}

	existing, err := m.activeChannel(ctx, cal.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		channelLog.Debug("calendar %s already watched by channel %s", calendarID, existing.ChannelID)
		return &domain.WatchResult{Status: domain.WatchExisting, Channel: existing}, nil
	}

	client, err := m.factory.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	defer client.Close()

	result, err := client.WatchEvents(ctx, cal.RemoteID)
	if err != nil {
		m.report(err)
		return nil, err
	}
	if !result.Created() {
		channelLog.Info("calendar %s does not support push notifications", calendarID)
		return &domain.WatchResult{Status: domain.WatchUnsupported}, nil
	}

	channel := *result.Channel
	channel.ID = m.newID()
	channel.CalendarID = cal.ID
	channel.Active = true
	channel.CreatedAt = m.now()
	if err := m.channels.Save(ctx, channel); err != nil {
		return nil, fmt.Errorf("save channel: %w", err)
	}

	channelLog.Info("watching %s with channel %s", calendarID, channel.ChannelID)
	return &domain.WatchResult{Status: domain.WatchCreated, Channel: &channel}, nil
}

// activeChannel returns the calendar's newest active, unexpired channel.
func (m *ChannelManager) activeChannel(ctx context.Context, calendarID string) (*domain.NotificationChannel, error) {
	channels, err := m.channels.ListByCalendar(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	now := m.now()
	for i := range channels {
		if channels[i].Active && !channels[i].Expired(now) {
			return &channels[i], nil
		}
	}
	return nil, nil
}

// Unwatch stops a channel and marks it inactive. A channel the remote
// service no longer knows is deactivated as well.
func (m *ChannelManager) Unwatch(ctx context.Context, channelID string) error {
	channel, err := m.channels.GetByChannelID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}

	if channel.Active {
		if err := m.stop(ctx, channel); err != nil {
			return err
		}
	}

	if err := m.channels.Deactivate(ctx, channelID); err != nil {
		return fmt.Errorf("deactivate channel: %w", err)
	}
	return nil
}

func (m *ChannelManager) stop(ctx context.Context, channel *domain.NotificationChannel) error {
	client, err := m.factory.Create(ctx)
	if err != nil {
		return fmt.Errorf("create calendar client: %w", err)
	}
	defer client.Close()

	err = client.StopChannel(ctx, channel.ChannelID, channel.ResourceID)
	if errors.Is(err, domain.ErrResourceNotFound) {
		channelLog.Debug("channel %s already stopped remotely", channel.ChannelID)
		return nil
	}
	if err != nil {
		m.report(err)
		return err
	}
	return nil
}

// List returns the channels of a calendar.
func (m *ChannelManager) List(ctx context.Context, calendarID string) ([]domain.NotificationChannel, error) {
	return m.channels.ListByCalendar(ctx, calendarID)
}

// StopAll stops every active channel of a calendar. Failures are joined.
func (m *ChannelManager) StopAll(ctx context.Context, calendarID string) error {
	channels, err := m.channels.ListByCalendar(ctx, calendarID)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	var errs []error
	for _, ch := range channels {
		if !ch.Active {
			continue
		}
		if err := m.Unwatch(ctx, ch.ChannelID); err != nil {
			errs = append(errs, fmt.Errorf("unwatch %s: %w", ch.ChannelID, err))
		}
	}
	return errors.Join(errs...)
}

// report sends client errors to the diagnostic sink.
func (m *ChannelManager) report(err error) {
	if !domain.IsClientError(err) {
		return
	}
	channelLog.Warn("%v", err)
	if m.sink != nil {
		m.sink.Notify(err)
	}
}

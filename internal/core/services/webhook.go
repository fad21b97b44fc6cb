package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure WebhookDispatcher implements the interface.
var _ driving.WebhookHandler = (*WebhookDispatcher)(nil)

// Webhook outcomes reported to metrics.
const (
	WebhookSynced   = "synced"
	WebhookSkipped  = "skipped"
	WebhookNotFound = "not_found"
	WebhookInactive = "inactive"
	WebhookFailed   = "failed"
)

var webhookLog = logger.Named("webhook")

// WebhookDispatcher turns push notifications into sync runs.
type WebhookDispatcher struct {
	channels  driven.ChannelStore
	calendars driven.CalendarStore
	engine    driving.SyncEngine
	strategy  domain.SyncStrategy
	sink      driven.DiagnosticSink
	metrics   driven.SyncMetrics
	now       func() time.Time
}

// NewWebhookDispatcher creates a dispatcher that syncs with SmartSync.
// sink and metrics may be nil.
func NewWebhookDispatcher(
	channels driven.ChannelStore,
	calendars driven.CalendarStore,
	engine driving.SyncEngine,
	sink driven.DiagnosticSink,
	metrics driven.SyncMetrics,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		channels:  channels,
		calendars: calendars,
		engine:    engine,
		strategy:  domain.SmartSync,
		sink:      sink,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Handle syncs the calendar of an active channel.
//
// It returns domain.ErrRecordNotFound when no channel matches (or the
// resource ID differs), domain.ErrChannelInactive for stopped or expired
// channels and domain.ErrProcessing when the sync fails. The cause of a
// processing failure goes to the diagnostic sink only.
func (d *WebhookDispatcher) Handle(ctx context.Context, channelID, resourceID string) error {
	outcome, err := d.handle(ctx, channelID, resourceID)
	if d.metrics != nil {
		d.metrics.ObserveWebhook(outcome)
	}
	return err
}

func (d *WebhookDispatcher) handle(ctx context.Context, channelID, resourceID string) (string, error) {
	channel, err := d.channels.GetByChannelID(ctx, channelID)
	if errors.Is(err, domain.ErrNotFound) {
		return WebhookNotFound, domain.ErrRecordNotFound
	}
	if err != nil {
		d.notify(fmt.Errorf("webhook lookup of channel %s: %w", channelID, err))
		return WebhookFailed, domain.ErrProcessing
	}
	if resourceID != "" && channel.ResourceID != resourceID {
		webhookLog.Warn("channel %s resource mismatch: got %s", channelID, resourceID)
		return WebhookNotFound, domain.ErrRecordNotFound
	}

	if !channel.Active {
		return WebhookInactive, domain.ErrChannelInactive
	}
	if channel.Expired(d.now()) {
		if err := d.channels.Deactivate(ctx, channelID); err != nil {
			webhookLog.Warn("deactivate expired channel %s: %v", channelID, err)
		}
		return WebhookInactive, domain.ErrChannelInactive
	}

	cal, err := d.calendars.Get(ctx, channel.CalendarID)
	if errors.Is(err, domain.ErrNotFound) {
		return WebhookNotFound, domain.ErrRecordNotFound
	}
	if err != nil {
		d.notify(fmt.Errorf("webhook lookup of calendar %s: %w", channel.CalendarID, err))
		return WebhookFailed, domain.ErrProcessing
	}
	if !cal.Syncable() {
		webhookLog.Debug("calendar %s is not syncable, ignoring notification", cal.ID)
		return WebhookSkipped, nil
	}

	if _, err := d.engine.Sync(ctx, cal.ID, d.strategy); err != nil {
		d.notify(fmt.Errorf("webhook sync of calendar %s: %w", cal.ID, err))
		return WebhookFailed, domain.ErrProcessing
	}
	return WebhookSynced, nil
}

func (d *WebhookDispatcher) notify(err error) {
	webhookLog.Error("%v", err)
	if d.sink != nil {
		d.sink.Notify(err)
	}
}

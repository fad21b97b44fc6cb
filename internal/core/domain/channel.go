package domain

import "time"

// NotificationChannel is a push-notification subscription registered with
// the remote service. It references a Calendar but does not own it.
type NotificationChannel struct {
	// ID is the local identifier.
	ID string

	// ChannelID is the identifier sent back in webhook calls.
	ChannelID string

	// ResourceID is the remote identifier of the watched resource.
	ResourceID string

	// CalendarID references the watched Calendar.
	CalendarID string

	// Token is the verification token echoed in webhook calls (optional).
	Token string

	// Active is false once the channel was stopped or expired.
	Active bool

	// Expiration is when the remote service stops delivering notifications.
	Expiration time.Time

	CreatedAt time.Time
}

// Expired returns true if the channel expiration has passed at now.
func (c *NotificationChannel) Expired(now time.Time) bool {
	return !c.Expiration.IsZero() && !now.Before(c.Expiration)
}

// WatchStatus is the outcome of a watch request.
type WatchStatus string

// Watch outcomes.
const (
	// WatchCreated means a channel was registered.
	WatchCreated WatchStatus = "created"

	// WatchExisting means an active, unexpired channel already covers the
	// calendar and no new one was registered.
	WatchExisting WatchStatus = "existing"

	// WatchUnsupported means the calendar cannot be watched (for example
	// public holiday calendars). It is an expected outcome, not an error.
	WatchUnsupported WatchStatus = "unsupported"
)

// WatchResult is returned by watch requests.
type WatchResult struct {
	Status WatchStatus

	// Channel is set when Status is WatchCreated or WatchExisting.
	Channel *NotificationChannel
}

// Created returns true if a channel was registered.
func (r *WatchResult) Created() bool {
	return r != nil && r.Status == WatchCreated && r.Channel != nil
}

// Watching returns true if the calendar has an active channel.
func (r *WatchResult) Watching() bool {
	return r != nil && r.Channel != nil && (r.Status == WatchCreated || r.Status == WatchExisting)
}

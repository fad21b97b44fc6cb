package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/calsync/internal/connectors/google"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.CalendarClient = (*Client)(nil)

const (
	// queryTimeFormat is the UTC layout for timeMin, timeMax and updatedMin.
	queryTimeFormat = "2006-01-02T15:04:05Z"

	// channelTypeWebhook is the only channel type Google supports.
	channelTypeWebhook = "web_hook"
)

// eventFields limits events.list responses to what the translator reads.
var eventFields = []googleapi.Field{
	"nextPageToken",
	"items(description,end,htmlLink,iCalUID,id,start,summary,updated,status)",
}

// ErrMissingWebhookAddress is returned by WatchEvents when no delivery
// address is configured.
var ErrMissingWebhookAddress = errors.New("calendar: webhook address is not configured")

var log = logger.Named("gcal")

// Client is a Google Calendar API client for a single sync run or request.
// It is safe for concurrent use, but the last response timestamp is shared,
// so each run should create its own client.
type Client struct {
	svc     *calendar.Service
	cfg     *Config
	limiter *google.RateLimiter
	retry   *google.RetryPolicy
	sink    driven.DiagnosticSink
	metrics driven.SyncMetrics
	newID   func() string

	mu       sync.Mutex
	lastDate time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithDiagnosticSink sets the sink for non-fatal anomalies.
func WithDiagnosticSink(sink driven.DiagnosticSink) Option {
	return func(c *Client) { c.sink = sink }
}

// WithMetrics records retried calls.
func WithMetrics(m driven.SyncMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRateLimiter shares a limiter between clients.
func WithRateLimiter(l *google.RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetryPolicy overrides the retry policy built from Config.
func WithRetryPolicy(p *google.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient creates a client over an authenticated calendar service.
func NewClient(svc *calendar.Service, cfg *Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Client{
		svc:   svc,
		cfg:   cfg,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = google.NewRateLimiter(cfg.RequestsPerSecond, google.DefaultBurst)
	}
	if c.retry == nil {
		c.retry = google.NewRetryPolicy(cfg.MaxRetries, cfg.Backoff)
	}
	return c
}

// ListEvents fetches the timed events of a calendar matching query.
//
// More results than MaxResults is unexpected: it is reported to the
// diagnostic sink once per call, then the remaining pages are fetched when
// FollowPages is set. Otherwise the first page is used as is. The result
// timestamp is the server Date of the first page.
func (c *Client) ListEvents(ctx context.Context, calendarID string, query domain.EventQuery) (*domain.FetchResult, error) {
	if strings.TrimSpace(calendarID) == "" {
		return nil, domain.ErrMissingCalendarID
	}

	result := &domain.FetchResult{}
	pageToken := ""
	reported := false

	for {
		var page *calendar.Events
		err := c.call(ctx, "events.list", func(ctx context.Context) error {
			var err error
			page, err = c.listCall(calendarID, query, pageToken).Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list events of %s: %w", calendarID, err)
		}

		result.Pages++
		// Edits made while later pages are served must sort after the cursor.
		if ts := c.recordDate(page.Header); !ts.IsZero() && result.Timestamp.IsZero() {
			result.Timestamp = ts
		}
		result.Events = append(result.Events, ToRemoteEvents(page.Items)...)

		if page.NextPageToken == "" {
			result.Complete = true
			break
		}
		if !reported {
			c.notify(fmt.Errorf("%w: calendar %s has more than %d events in range",
				domain.ErrUnexpectedPagination, calendarID, c.cfg.MaxResults))
			reported = true
		}
		if !c.cfg.FollowPages {
			break
		}
		pageToken = page.NextPageToken
	}

	log.Debug("listed %d event(s) of %s in %d page(s)", len(result.Events), calendarID, result.Pages)
	return result, nil
}

func (c *Client) listCall(calendarID string, query domain.EventQuery, pageToken string) *calendar.EventsListCall {
	call := c.svc.Events.List(calendarID).
		SingleEvents(true).
		ShowDeleted(true).
		OrderBy("startTime").
		MaxResults(c.cfg.MaxResults).
		Fields(eventFields...)

	if !query.RangeStart.IsZero() {
		call = call.TimeMin(formatQueryTime(query.RangeStart))
	}
	if !query.RangeEnd.IsZero() {
		call = call.TimeMax(formatQueryTime(query.RangeEnd))
	}
	if query.IsIncremental() {
		call = call.UpdatedMin(formatQueryTime(query.UpdatedAfter))
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call
}

func formatQueryTime(t time.Time) string {
	return t.UTC().Format(queryTimeFormat)
}

// recordDate stores the server Date header as the last result timestamp.
func (c *Client) recordDate(h http.Header) time.Time {
	if h == nil {
		return time.Time{}
	}
	ts, err := http.ParseTime(h.Get("Date"))
	if err != nil {
		return time.Time{}
	}
	ts = ts.UTC()

	c.mu.Lock()
	c.lastDate = ts
	c.mu.Unlock()
	return ts
}

// LastResultTimestamp returns the server Date of the last successful
// events.list response.
func (c *Client) LastResultTimestamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDate
}

// WatchEvents registers a web_hook channel for the calendar's events.
// The returned channel has no local CalendarID; callers assign it.
func (c *Client) WatchEvents(ctx context.Context, calendarID string) (*domain.WatchResult, error) {
	if strings.TrimSpace(calendarID) == "" {
		return nil, domain.ErrMissingCalendarID
	}
	if c.cfg.WebhookAddress == "" {
		return nil, ErrMissingWebhookAddress
	}

	req := &calendar.Channel{
		Id:      c.newID(),
		Type:    channelTypeWebhook,
		Address: c.cfg.WebhookAddress,
		Token:   c.cfg.WebhookToken,
	}
	if c.cfg.ChannelTTL > 0 {
		req.Expiration = time.Now().Add(c.cfg.ChannelTTL).UnixMilli()
	}

	var resp *calendar.Channel
	err := c.call(ctx, "events.watch", func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Events.Watch(calendarID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		if google.IsPushNotSupported(err) {
			c.notify(fmt.Errorf("calendar %s cannot be watched: %w", calendarID, err))
			return &domain.WatchResult{Status: domain.WatchUnsupported}, nil
		}
		if domain.IsClientError(err) {
			log.Warn("watch %s rejected: %v", calendarID, err)
		}
		return nil, fmt.Errorf("watch %s: %w", calendarID, err)
	}

	channel := &domain.NotificationChannel{
		ChannelID:  req.Id,
		ResourceID: resp.ResourceId,
		Token:      req.Token,
		Active:     true,
	}
	if resp.Id != "" {
		channel.ChannelID = resp.Id
	}
	if resp.Expiration > 0 {
		channel.Expiration = time.UnixMilli(resp.Expiration).UTC()
	}
	return &domain.WatchResult{Status: domain.WatchCreated, Channel: channel}, nil
}

// StopChannel stops a push-notification channel.
func (c *Client) StopChannel(ctx context.Context, channelID, resourceID string) error {
	if strings.TrimSpace(channelID) == "" {
		return domain.ErrMissingChannelID
	}
	if strings.TrimSpace(resourceID) == "" {
		return domain.ErrMissingResourceID
	}

	err := c.call(ctx, "channels.stop", func(ctx context.Context) error {
		return c.svc.Channels.Stop(&calendar.Channel{Id: channelID, ResourceId: resourceID}).Context(ctx).Do()
	})
	if err != nil {
		if domain.IsClientError(err) {
			log.Warn("stop channel %s rejected: %v", channelID, err)
		}
		return fmt.Errorf("stop channel %s: %w", channelID, err)
	}
	return nil
}

// CalendarExists checks whether the calendar is accessible.
func (c *Client) CalendarExists(ctx context.Context, calendarID string) (bool, error) {
	if strings.TrimSpace(calendarID) == "" {
		return false, domain.ErrMissingCalendarID
	}

	err := c.call(ctx, "calendars.get", func(ctx context.Context) error {
		_, err := c.svc.Calendars.Get(calendarID).Fields("id").Context(ctx).Do()
		return err
	})
	if err != nil {
		if google.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("get calendar %s: %w", calendarID, err)
	}
	return true, nil
}

// CreateCalendar creates a secondary calendar and returns its ID.
func (c *Client) CreateCalendar(ctx context.Context, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: calendar title is required", domain.ErrInvalidInput)
	}

	var created *calendar.Calendar
	err := c.call(ctx, "calendars.insert", func(ctx context.Context) error {
		var err error
		created, err = c.svc.Calendars.Insert(&calendar.Calendar{Summary: title}).Fields("id").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create calendar: %w", err)
	}
	return created.Id, nil
}

// UpdateCalendar renames a calendar.
func (c *Client) UpdateCalendar(ctx context.Context, calendarID, title string) error {
	if strings.TrimSpace(calendarID) == "" {
		return domain.ErrMissingCalendarID
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: calendar title is required", domain.ErrInvalidInput)
	}

	err := c.call(ctx, "calendars.patch", func(ctx context.Context) error {
		_, err := c.svc.Calendars.Patch(calendarID, &calendar.Calendar{Summary: title}).Fields("id").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("update calendar %s: %w", calendarID, err)
	}
	return nil
}

// DeleteCalendar deletes a calendar. Calendars that are already gone are ignored.
func (c *Client) DeleteCalendar(ctx context.Context, calendarID string) error {
	if strings.TrimSpace(calendarID) == "" {
		return domain.ErrMissingCalendarID
	}

	err := c.call(ctx, "calendars.delete", func(ctx context.Context) error {
		return c.svc.Calendars.Delete(calendarID).Context(ctx).Do()
	})
	if err != nil && !google.IsNotFound(err) && !google.IsGone(err) {
		return fmt.Errorf("delete calendar %s: %w", calendarID, err)
	}
	return nil
}

// Close releases resources. The underlying HTTP client is shared, so
// there is nothing to release.
func (c *Client) Close() error {
	return nil
}

// call runs one API request through the rate limiter and retry policy.
func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	policy := *c.retry
	policy.OnRetry = func(retry int, err error) {
		log.Warn("%s failed, retry %d of %d: %v", operation, retry, policy.MaxAttempts-1, err)
		if c.metrics != nil {
			c.metrics.ObserveRetry(operation)
		}
	}

	return policy.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err := google.WrapError(fn(ctx))
		if rerr, ok := domain.AsRemoteError(err); ok &&
			rerr.Kind == domain.KindRateLimitExceeded && rerr.RetryAfter > 0 {
			c.limiter.RecordRateLimitError(rerr.RetryAfter)
		}
		return err
	})
}

func (c *Client) notify(err error) {
	log.Warn("%v", err)
	if c.sink != nil {
		c.sink.Notify(err)
	}
}

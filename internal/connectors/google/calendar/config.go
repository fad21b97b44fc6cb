package calendar

import (
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// DefaultMaxResults is the events page-size cap.
const DefaultMaxResults int64 = 6000

// Config holds Google Calendar client configuration.
type Config struct {
	// MaxResults is the page size for events.list requests.
	MaxResults int64
	// FollowPages fetches the remaining pages when the cap is exceeded.
	FollowPages bool

	// WebhookAddress is the HTTPS URL push notifications are delivered to.
	WebhookAddress string
	// WebhookToken is echoed back in X-Goog-Channel-Token (optional).
	WebhookToken string
	// ChannelTTL requests a channel lifetime. Zero leaves it to Google.
	ChannelTTL time.Duration

	// MaxRetries is the number of attempts for transient failures.
	MaxRetries int
	// Backoff is the delay before the first retry.
	Backoff time.Duration
	// RequestsPerSecond throttles requests made by one client.
	RequestsPerSecond float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxResults:  DefaultMaxResults,
		FollowPages: true,
	}
}

// ConfigFromSettings builds the client configuration from application settings.
func ConfigFromSettings(s domain.Settings) *Config {
	cfg := DefaultConfig()
	if s.Sync.MaxResults > 0 {
		cfg.MaxResults = s.Sync.MaxResults
	}
	cfg.FollowPages = s.Sync.FollowPages
	cfg.WebhookAddress = s.Webhook.Address
	cfg.WebhookToken = s.Webhook.Token
	cfg.ChannelTTL = s.Webhook.ChannelTTL
	cfg.MaxRetries = s.Sync.MaxRetries
	cfg.Backoff = s.Sync.Backoff
	cfg.RequestsPerSecond = s.Sync.RequestsPerSecond
	return cfg
}

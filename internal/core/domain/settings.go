package domain

import "time"

// Settings is the typed application configuration.
type Settings struct {
	Google  GoogleSettings
	Sync    SyncSettings
	Webhook WebhookSettings
	Storage StorageSettings
	Metrics MetricsSettings
}

// GoogleSettings configures access to the Google Calendar API.
type GoogleSettings struct {
	// CredentialsFile is a service account or authorized-user JSON file.
	CredentialsFile string

	// TokenFile holds a previously obtained OAuth token as JSON.
	// Used together with ClientID and ClientSecret.
	TokenFile    string
	ClientID     string
	ClientSecret string

	// Endpoint overrides the API base URL.
	Endpoint string
}

// SyncSettings configures sync behaviour.
type SyncSettings struct {
	// MaxResults is the events page-size cap.
	MaxResults int64

	// FollowPages fetches further pages instead of stopping at the first.
	FollowPages bool

	// PastWindow and FutureWindow bound the query range around now.
	// Zero leaves that side unbounded.
	PastWindow   time.Duration
	FutureWindow time.Duration

	// MaxRetries is the number of attempts for transient failures.
	MaxRetries int

	// Backoff is the base delay between attempts, doubled each retry.
	Backoff time.Duration

	// RequestsPerSecond throttles API calls per client.
	RequestsPerSecond float64

	// Strategy is the default strategy name for CLI-triggered syncs.
	Strategy string
}

// WebhookSettings configures push notifications.
type WebhookSettings struct {
	// Address is the public HTTPS URL Google delivers notifications to.
	Address string

	// ListenAddr is the local address the webhook server binds.
	ListenAddr string

	// Token is echoed by Google in X-Goog-Channel-Token and verified.
	Token string

	// ChannelTTL requests a channel lifetime. Zero uses the service default.
	ChannelTTL time.Duration
}

// StorageSettings configures persistence.
type StorageSettings struct {
	// DataDir holds the SQLite database.
	DataDir string
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
}

// DefaultSettings returns sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Sync: SyncSettings{
			MaxResults:        6000,
			FollowPages:       true,
			MaxRetries:        3,
			Backoff:           500 * time.Millisecond,
			RequestsPerSecond: 5,
			Strategy:          SmartSync.Name,
		},
		Webhook: WebhookSettings{
			ListenAddr: ":8080",
		},
	}
}

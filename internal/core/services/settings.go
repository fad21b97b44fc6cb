package services

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCredentialsFile   = "google.credentials_file"
	keyTokenFile         = "google.token_file"
	keyClientID          = "google.client_id"
	keyClientSecret      = "google.client_secret"
	keyEndpoint          = "google.endpoint"
	keyMaxResults        = "sync.max_results"
	keyFollowPages       = "sync.follow_pages"
	keyPastDays          = "sync.past_days"
	keyFutureDays        = "sync.future_days"
	keyMaxRetries        = "sync.max_retries"
	keyBackoffMS         = "sync.backoff_ms"
	keyRequestsPerSecond = "sync.requests_per_second"
	keyStrategy          = "sync.strategy"
	keyWebhookAddress    = "webhook.address"
	keyListenAddr        = "webhook.listen_addr"
	keyWebhookToken      = "webhook.token"
	keyChannelTTLHours   = "webhook.channel_ttl_hours"
	keyDataDir           = "storage.data_dir"
	keyMetricsEnabled    = "metrics.enabled"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindFloat
)

// settingKinds lists every supported key and its value type.
var settingKinds = map[string]valueKind{
	keyCredentialsFile:   kindString,
	keyTokenFile:         kindString,
	keyClientID:          kindString,
	keyClientSecret:      kindString,
	keyEndpoint:          kindString,
	keyMaxResults:        kindInt,
	keyFollowPages:       kindBool,
	keyPastDays:          kindInt,
	keyFutureDays:        kindInt,
	keyMaxRetries:        kindInt,
	keyBackoffMS:         kindInt,
	keyRequestsPerSecond: kindFloat,
	keyStrategy:          kindString,
	keyWebhookAddress:    kindString,
	keyListenAddr:        kindString,
	keyWebhookToken:      kindString,
	keyChannelTTLHours:   kindInt,
	keyDataDir:           kindString,
	keyMetricsEnabled:    kindBool,
}

// SettingKeys returns the supported configuration keys, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService reads typed settings from the config store.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings, applying defaults for
// unset keys.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()
	day := 24 * time.Hour

	settings := &domain.Settings{
		Google: domain.GoogleSettings{
			CredentialsFile: s.configStore.GetString(keyCredentialsFile),
			TokenFile:       s.configStore.GetString(keyTokenFile),
			ClientID:        s.configStore.GetString(keyClientID),
			ClientSecret:    s.configStore.GetString(keyClientSecret),
			Endpoint:        s.configStore.GetString(keyEndpoint),
		},
		Sync: domain.SyncSettings{
			MaxResults:        int64(s.getInt(keyMaxResults, int(defaults.Sync.MaxResults))),
			FollowPages:       s.getBool(keyFollowPages, defaults.Sync.FollowPages),
			PastWindow:        time.Duration(s.configStore.GetInt(keyPastDays)) * day,
			FutureWindow:      time.Duration(s.configStore.GetInt(keyFutureDays)) * day,
			MaxRetries:        s.getInt(keyMaxRetries, defaults.Sync.MaxRetries),
			Backoff:           time.Duration(s.getInt(keyBackoffMS, int(defaults.Sync.Backoff/time.Millisecond))) * time.Millisecond,
			RequestsPerSecond: s.getFloat(keyRequestsPerSecond, defaults.Sync.RequestsPerSecond),
			Strategy:          s.getString(keyStrategy, defaults.Sync.Strategy),
		},
		Webhook: domain.WebhookSettings{
			Address:    s.configStore.GetString(keyWebhookAddress),
			ListenAddr: s.getString(keyListenAddr, defaults.Webhook.ListenAddr),
			Token:      s.configStore.GetString(keyWebhookToken),
			ChannelTTL: time.Duration(s.configStore.GetInt(keyChannelTTLHours)) * time.Hour,
		},
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(keyDataDir),
		},
		Metrics: domain.MetricsSettings{
			Enabled: s.getBool(keyMetricsEnabled, defaults.Metrics.Enabled),
		},
	}

	return settings, nil
}

// Keys returns the supported configuration keys, sorted.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

// Lookup returns the stored value of a key. set is false when nothing is
// stored and the default applies.
func (s *SettingsService) Lookup(key string) (value any, set bool, err error) {
	if _, ok := settingKinds[key]; !ok {
		return nil, false, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value, set = s.configStore.Get(key)
	return value, set, nil
}

// Set stores a single key. String values, as given on the command line,
// are converted to the key's type.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	converted, err := convertSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if key == keyStrategy {
		if _, err := domain.StrategyByName(converted.(string)); err != nil {
			return err
		}
	}

	if err := s.configStore.Set(key, converted); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func convertSetting(kind valueKind, value any) (any, error) {
	str, isString := value.(string)
	switch kind {
	case kindInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		}
		if isString {
			return strconv.ParseInt(strings.TrimSpace(str), 10, 64)
		}
	case kindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
		if isString {
			return strconv.ParseBool(strings.TrimSpace(str))
		}
	case kindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
		if isString {
			return strconv.ParseFloat(strings.TrimSpace(str), 64)
		}
	case kindString:
		if isString {
			return str, nil
		}
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", value, value)
}

// Validate checks the settings are usable for syncing.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var problems []string
	if _, err := domain.StrategyByName(settings.Sync.Strategy); err != nil {
		problems = append(problems, err.Error())
	}
	if settings.Sync.MaxResults <= 0 {
		problems = append(problems, keyMaxResults+" must be positive")
	}
	if settings.Sync.MaxRetries < 1 {
		problems = append(problems, keyMaxRetries+" must be at least 1")
	}
	if settings.Sync.RequestsPerSecond <= 0 {
		problems = append(problems, keyRequestsPerSecond+" must be positive")
	}
	if settings.Google.TokenFile != "" && (settings.Google.ClientID == "" || settings.Google.ClientSecret == "") {
		problems = append(problems, keyTokenFile+" requires "+keyClientID+" and "+keyClientSecret)
	}
	if addr := settings.Webhook.Address; addr != "" {
		u, err := url.Parse(addr)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			problems = append(problems, keyWebhookAddress+" must be an https URL")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

// Package google provides shared infrastructure for the Google Calendar connector.
//
// This package contains the pieces every remote call goes through:
//   - Service construction from a credentials file, an OAuth token file or
//     explicit client options
//   - TokenSource construction for stored OAuth tokens
//   - Translation of Google API errors into the domain.RemoteError taxonomy
//   - An explicit retry policy for transient failures
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	svc, err := google.NewCalendarService(ctx, settings.Google)
//	limiter := google.NewRateLimiter(settings.Sync.RequestsPerSecond, 10)
//	policy := google.NewRetryPolicy(settings.Sync.MaxRetries, settings.Sync.Backoff)
//
// # OAuth2 Scopes
//
// The connector needs https://www.googleapis.com/auth/calendar to manage
// calendars and push-notification channels. Read-only syncing works with
// https://www.googleapis.com/auth/calendar.readonly.
package google

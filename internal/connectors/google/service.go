package google

import (
	"context"
	"fmt"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// NewCalendarService creates a Google Calendar API service.
//
// Credentials are resolved in order: explicit opts, a credentials file, a
// stored OAuth token with client id and secret, and finally Application
// Default Credentials.
func NewCalendarService(ctx context.Context, cfg domain.GoogleSettings, opts ...option.ClientOption) (*calendar.Service, error) {
	all := make([]option.ClientOption, 0, len(opts)+2)
	if cfg.Endpoint != "" {
		all = append(all, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case len(opts) > 0:
	case cfg.CredentialsFile != "":
		all = append(all, option.WithCredentialsFile(cfg.CredentialsFile)) //nolint:staticcheck // file is operator supplied
	case cfg.TokenFile != "":
		ts, err := NewTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		all = append(all, option.WithTokenSource(ts))
	}
	all = append(all, opts...)

	svc, err := calendar.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

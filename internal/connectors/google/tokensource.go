package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// ErrMissingClientCredentials is returned when a token file is configured
// without the OAuth client id and secret needed to refresh it.
var ErrMissingClientCredentials = errors.New("google: token file requires client id and client secret")

// LoadToken reads an OAuth token stored as JSON.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tok, nil
}

// SaveToken writes an OAuth token as JSON with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// OAuthConfig returns the OAuth2 client configuration for the Calendar API.
func OAuthConfig(cfg domain.GoogleSettings) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
}

// NewTokenSource creates a refreshing oauth2.TokenSource from the stored
// token file. Refreshed tokens are written back to the same file.
func NewTokenSource(ctx context.Context, cfg domain.GoogleSettings) (oauth2.TokenSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingClientCredentials
	}

	tok, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	base := OAuthConfig(cfg).TokenSource(ctx, tok)
	return &persistingTokenSource{
		base: base,
		path: cfg.TokenFile,
		last: tok.AccessToken,
	}, nil
}

// persistingTokenSource saves the token whenever the access token changes.
type persistingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

// Token implements oauth2.TokenSource.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := SaveToken(p.path, tok); err != nil {
			return nil, err
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

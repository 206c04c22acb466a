// ABOUTME: OAuth configuration and token management for the Google People and Calendar APIs
// ABOUTME: Tokens are stored under the XDG data directory and refresh automatically
package google

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

const (
	// CallbackAddr is where the local OAuth callback listens.
	CallbackAddr = "localhost:8080"
	CallbackPath = "/oauth/callback"

	contactsScope = "https://www.googleapis.com/auth/contacts.readonly"
	calendarScope = "https://www.googleapis.com/auth/calendar.readonly"
)

// NewOAuthConfig builds the OAuth2 config from GOOGLE_CLIENT_ID and
// GOOGLE_CLIENT_SECRET. Users register their own OAuth app.
func NewOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  "http://" + CallbackAddr + CallbackPath,
		Scopes:       []string{contactsScope, calendarScope},
		Endpoint:     googleoauth.Endpoint,
	}
}

// Config returns the OAuth config, or an error when credentials are missing.
func Config() (*oauth2.Config, error) {
	config := NewOAuthConfig()
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}
	return config, nil
}

// TokenPath returns the XDG path for the stored OAuth token.
func TokenPath() string {
	return filepath.Join(xdg.DataHome, "pipecrm", "google-credentials.json")
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

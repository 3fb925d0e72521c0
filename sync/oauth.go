// ABOUTME: OAuth configuration for the Google Calendar integration
// ABOUTME: Builds the oauth2 config with calendar scopes and offline access
package sync

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"nuconnect/config"
)

// Scopes requested at consent time. Calendar read/write plus the identity
// scopes used to show the connected account in the UI.
var oauthScopes = []string{
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/calendar.events",
	"email",
	"profile",
}

// NewOAuthConfig creates the oauth2 config for the Google Calendar flow.
// The redirect URL is supplied per call site; callers clone the config and
// set it before use.
func NewOAuthConfig(cfg *config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       oauthScopes,
		Endpoint:     google.Endpoint,
	}
}

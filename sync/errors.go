// ABOUTME: Error taxonomy for the calendar sync engine
// ABOUTME: Sentinel and typed errors distinguishing auth, provider, and translation failures
package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a user has no stored credential.
	// Not retryable without re-authorization.
	ErrNotConnected = errors.New("google calendar not connected")

	// ErrSyncDisabled is returned when the user's credential exists but
	// sync is switched off.
	ErrSyncDisabled = errors.New("calendar sync is disabled")

	// ErrSyncInProgress is returned when a sync attempt for the same user
	// is already running. The caller should retry after the current
	// attempt finishes.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// OAuthExchangeError wraps a provider-reported failure during the one-shot
// code-for-token exchange.
type OAuthExchangeError struct {
	Err error
}

func (e *OAuthExchangeError) Error() string {
	return fmt.Sprintf("oauth code exchange failed: %v", e.Err)
}

func (e *OAuthExchangeError) Unwrap() error { return e.Err }

// TokenRefreshError indicates the refresh token was rejected or absent.
// The credential must be marked SYNC_FAILED but never deleted; only the
// user can reconnect.
type TokenRefreshError struct {
	Err error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// ProviderError wraps a network or provider-side failure. Retryable on the
// next scheduled tick.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("google calendar %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TranslationError indicates a malformed external event that cannot be
// mapped to a local record. The event is skipped; the pass continues.
type TranslationError struct {
	ExternalID string
	Reason     string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("cannot translate event %q: %s", e.ExternalID, e.Reason)
}

// ABOUTME: Sync engine facade over the credential store and calendar client
// ABOUTME: Handles connect, disconnect, status, and the per-user sync path
package sync

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"nuconnect/db"
	"nuconnect/models"
)

// Status is the boundary view of a user's sync state.
type Status struct {
	Connected         bool       `json:"connected"`
	SyncEnabled       bool       `json:"sync_enabled"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	Status            string     `json:"status"`
	PrimaryCalendarID string     `json:"primary_calendar_id,omitempty"`
	Email             string     `json:"email,omitempty"`
	PendingChanges    int        `json:"pending_changes"`
}

// Engine coordinates the credential store, the calendar client, and the
// reconciler. All state lives in the database; the engine itself only keeps
// the per-user in-flight guard.
type Engine struct {
	database *sql.DB
	client   CalendarAPI
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewEngine(database *sql.DB, client CalendarAPI, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		database: database,
		client:   client,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		inFlight: make(map[string]bool),
	}
}

// AuthorizationURL builds the provider consent URL. Pure passthrough.
func (e *Engine) AuthorizationURL(redirectURI string) string {
	return e.client.AuthorizationURL(redirectURI)
}

// Connect exchanges an authorization code, resolves the primary calendar,
// and stores the credential. An existing refresh token survives when the
// new exchange does not return one; Google only sends it on first consent.
func (e *Engine) Connect(ctx context.Context, userID, code, redirectURI string) (*models.Credential, string, error) {
	tokens, err := e.client.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, "", err
	}

	existing, err := db.GetCredential(e.database, userID)
	if err != nil {
		return nil, "", err
	}

	cred := &models.Credential{
		UserID:         userID,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		TokenExpiresAt: tokens.ExpiresAt,
		SyncEnabled:    true,
		Status:         models.SyncStatusConnected,
	}
	if existing != nil {
		cred.CreatedAt = existing.CreatedAt
		cred.LastSyncAt = existing.LastSyncAt
		if cred.RefreshToken == nil {
			cred.RefreshToken = existing.RefreshToken
		}
	}

	calendarID, summary, err := e.client.PrimaryCalendar(ctx, cred)
	if err != nil {
		return nil, "", err
	}
	cred.PrimaryCalendarID = calendarID

	if err := db.UpsertCredential(e.database, cred); err != nil {
		return nil, "", err
	}

	e.logger.Info("google calendar connected", "user", userID, "calendar", calendarID)
	return cred, summary, nil
}

// Disconnect deletes the credential. Idempotent; an in-flight sync for the
// user is not interrupted, only future runs are prevented.
func (e *Engine) Disconnect(userID string) error {
	if err := db.DeleteCredential(e.database, userID); err != nil {
		return err
	}
	e.logger.Info("google calendar disconnected", "user", userID)
	return nil
}

// Status reports the user's connection and sync state.
func (e *Engine) Status(userID string) (*Status, error) {
	cred, err := db.GetCredential(e.database, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return &Status{Connected: false, Status: models.SyncStatusNotConnected}, nil
	}

	pending, err := db.CountUnsyncedEvents(e.database, userID)
	if err != nil {
		return nil, err
	}

	return &Status{
		Connected:         true,
		SyncEnabled:       cred.SyncEnabled,
		LastSyncAt:        cred.LastSyncAt,
		Status:            cred.Status,
		PrimaryCalendarID: cred.PrimaryCalendarID,
		PendingChanges:    pending,
	}, nil
}

// SyncUser runs one reconciliation pass for a user: refresh the token if
// needed, reconcile, and record the outcome on the credential. Attempts for
// the same user are serialized; a concurrent attempt gets ErrSyncInProgress.
func (e *Engine) SyncUser(ctx context.Context, userID string) (*models.SyncResult, error) {
	if !e.tryAcquire(userID) {
		return nil, ErrSyncInProgress
	}
	defer e.release(userID)

	cred, err := db.GetCredential(e.database, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotConnected
	}
	if !cred.SyncEnabled {
		return nil, ErrSyncDisabled
	}

	refreshed, err := e.client.RefreshIfNeeded(ctx, *cred)
	if err != nil {
		e.recordFailure(userID, err)
		return nil, err
	}
	if refreshed.AccessToken != cred.AccessToken {
		if err := db.UpdateCredentialToken(e.database, userID, refreshed.AccessToken, refreshed.TokenExpiresAt); err != nil {
			return nil, err
		}
	}

	result, err := e.reconcile(ctx, &refreshed)
	if err != nil {
		e.recordFailure(userID, err)
		return nil, err
	}

	result.SyncedAt = e.now()
	result.Message = "Sync completed successfully"
	if err := db.UpdateCredentialSyncOutcome(e.database, userID, models.SyncStatusSynced, result.SyncedAt); err != nil {
		return nil, err
	}

	e.logger.Info("sync completed",
		"user", userID,
		"imported", result.Imported,
		"exported", result.Exported,
		"conflicts", result.Conflicts,
		"skipped", result.Skipped)

	return result, nil
}

// recordFailure marks the credential SYNC_FAILED. The credential itself is
// never deleted here; re-authorization is a human decision.
func (e *Engine) recordFailure(userID string, cause error) {
	if err := db.UpdateCredentialSyncOutcome(e.database, userID, models.SyncStatusSyncFailed, e.now()); err != nil {
		e.logger.Error("failed to record sync failure", "user", userID, "error", err)
	}
	e.logger.Error("sync failed", "user", userID, "error", cause)
}

func (e *Engine) tryAcquire(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[userID] {
		return false
	}
	e.inFlight[userID] = true
	return true
}

func (e *Engine) release(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, userID)
}

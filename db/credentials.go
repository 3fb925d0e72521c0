// ABOUTME: Google credential database operations
// ABOUTME: Handles per-user OAuth token storage and sync status tracking
package db

import (
	"database/sql"
	"fmt"
	"time"

	"nuconnect/models"
)

// GetCredential retrieves the stored credential for a user. Returns nil
// when the user has never connected.
func GetCredential(db *sql.DB, userID string) (*models.Credential, error) {
	cred := &models.Credential{}
	var refreshToken sql.NullString
	var expiresAt sql.NullTime
	var primaryCalendarID sql.NullString
	var lastSyncAt sql.NullTime

	err := db.QueryRow(`
		SELECT user_id, access_token, refresh_token, token_expires_at, sync_enabled,
		       primary_calendar_id, last_sync_at, sync_status, created_at, updated_at
		FROM google_credentials WHERE user_id = ?
	`, userID).Scan(
		&cred.UserID,
		&cred.AccessToken,
		&refreshToken,
		&expiresAt,
		&cred.SyncEnabled,
		&primaryCalendarID,
		&lastSyncAt,
		&cred.Status,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if refreshToken.Valid {
		cred.RefreshToken = &refreshToken.String
	}
	if expiresAt.Valid {
		cred.TokenExpiresAt = expiresAt.Time
	}
	if primaryCalendarID.Valid {
		cred.PrimaryCalendarID = primaryCalendarID.String
	}
	if lastSyncAt.Valid {
		cred.LastSyncAt = &lastSyncAt.Time
	}

	return cred, nil
}

// UpsertCredential creates or overwrites the credential row for a user.
func UpsertCredential(db *sql.DB, cred *models.Credential) error {
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO google_credentials
			(user_id, access_token, refresh_token, token_expires_at, sync_enabled,
			 primary_calendar_id, last_sync_at, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			sync_enabled = excluded.sync_enabled,
			primary_calendar_id = excluded.primary_calendar_id,
			last_sync_at = excluded.last_sync_at,
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at
	`, cred.UserID, cred.AccessToken, cred.RefreshToken, cred.TokenExpiresAt,
		cred.SyncEnabled, nullIfEmpty(cred.PrimaryCalendarID), cred.LastSyncAt,
		cred.Status, cred.CreatedAt, cred.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	return nil
}

// DeleteCredential removes a user's credential. No-op when not connected.
func DeleteCredential(db *sql.DB, userID string) error {
	_, err := db.Exec(`DELETE FROM google_credentials WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// ListSyncEnabled returns credentials eligible for unattended sync: sync
// enabled and a refresh token present. A credential without a refresh token
// cannot survive token expiry, so it is excluded outright.
func ListSyncEnabled(db *sql.DB) ([]models.Credential, error) {
	rows, err := db.Query(`
		SELECT user_id, access_token, refresh_token, token_expires_at, sync_enabled,
		       primary_calendar_id, last_sync_at, sync_status, created_at, updated_at
		FROM google_credentials
		WHERE sync_enabled = 1 AND refresh_token IS NOT NULL
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync-enabled credentials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var creds []models.Credential
	for rows.Next() {
		var cred models.Credential
		var refreshToken sql.NullString
		var expiresAt sql.NullTime
		var primaryCalendarID sql.NullString
		var lastSyncAt sql.NullTime

		err := rows.Scan(
			&cred.UserID,
			&cred.AccessToken,
			&refreshToken,
			&expiresAt,
			&cred.SyncEnabled,
			&primaryCalendarID,
			&lastSyncAt,
			&cred.Status,
			&cred.CreatedAt,
			&cred.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}

		if refreshToken.Valid {
			cred.RefreshToken = &refreshToken.String
		}
		if expiresAt.Valid {
			cred.TokenExpiresAt = expiresAt.Time
		}
		if primaryCalendarID.Valid {
			cred.PrimaryCalendarID = primaryCalendarID.String
		}
		if lastSyncAt.Valid {
			cred.LastSyncAt = &lastSyncAt.Time
		}

		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credentials: %w", err)
	}

	return creds, nil
}

// UpdateCredentialSyncOutcome records the terminal status of one sync
// attempt. The last-sync timestamp only advances on success.
func UpdateCredentialSyncOutcome(db *sql.DB, userID, status string, at time.Time) error {
	var err error
	if status == models.SyncStatusSynced {
		_, err = db.Exec(`
			UPDATE google_credentials
			SET sync_status = ?, last_sync_at = ?, updated_at = ?
			WHERE user_id = ?
		`, status, at, time.Now().UTC(), userID)
	} else {
		_, err = db.Exec(`
			UPDATE google_credentials
			SET sync_status = ?, updated_at = ?
			WHERE user_id = ?
		`, status, time.Now().UTC(), userID)
	}

	if err != nil {
		return fmt.Errorf("failed to update sync outcome: %w", err)
	}

	return nil
}

// UpdateCredentialToken stores a refreshed access token and its new expiry.
func UpdateCredentialToken(db *sql.DB, userID, accessToken string, expiresAt time.Time) error {
	_, err := db.Exec(`
		UPDATE google_credentials
		SET access_token = ?, token_expires_at = ?, updated_at = ?
		WHERE user_id = ?
	`, accessToken, expiresAt, time.Now().UTC(), userID)

	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}

	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

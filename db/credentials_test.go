// ABOUTME: Tests for credential store operations
// ABOUTME: Covers upsert, lookup, deletion, and sync-enabled filtering
package db

import (
	"testing"
	"time"

	"nuconnect/models"
)

func strPtr(s string) *string { return &s }

func TestUpsertAndGetCredential(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cred := &models.Credential{
		UserID:            "user-1",
		AccessToken:       "access-abc",
		RefreshToken:      strPtr("refresh-abc"),
		TokenExpiresAt:    time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		SyncEnabled:       true,
		PrimaryCalendarID: "primary-cal",
		Status:            models.SyncStatusConnected,
	}

	if err := UpsertCredential(db, cred); err != nil {
		t.Fatalf("UpsertCredential failed: %v", err)
	}

	got, err := GetCredential(db, "user-1")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected credential, got nil")
	}
	if got.AccessToken != "access-abc" {
		t.Errorf("expected access token access-abc, got %q", got.AccessToken)
	}
	if got.RefreshToken == nil || *got.RefreshToken != "refresh-abc" {
		t.Errorf("expected refresh token refresh-abc, got %v", got.RefreshToken)
	}
	if got.Status != models.SyncStatusConnected {
		t.Errorf("expected status CONNECTED, got %q", got.Status)
	}
	if got.PrimaryCalendarID != "primary-cal" {
		t.Errorf("expected calendar primary-cal, got %q", got.PrimaryCalendarID)
	}
}

func TestGetCredentialNotConnected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	got, err := GetCredential(db, "nobody")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown user, got %+v", got)
	}
}

func TestUpsertOverwritesExisting(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first := &models.Credential{
		UserID:      "user-1",
		AccessToken: "old-token",
		Status:      models.SyncStatusConnected,
		SyncEnabled: true,
	}
	if err := UpsertCredential(db, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &models.Credential{
		UserID:       "user-1",
		AccessToken:  "new-token",
		RefreshToken: strPtr("new-refresh"),
		Status:       models.SyncStatusConnected,
		SyncEnabled:  true,
	}
	if err := UpsertCredential(db, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := GetCredential(db, "user-1")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got.AccessToken != "new-token" {
		t.Errorf("expected new-token, got %q", got.AccessToken)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM google_credentials`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 credential row, got %d", count)
	}
}

func TestDeleteCredentialIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cred := &models.Credential{
		UserID:      "user-1",
		AccessToken: "token",
		Status:      models.SyncStatusConnected,
	}
	if err := UpsertCredential(db, cred); err != nil {
		t.Fatalf("UpsertCredential failed: %v", err)
	}

	if err := DeleteCredential(db, "user-1"); err != nil {
		t.Fatalf("DeleteCredential failed: %v", err)
	}

	got, err := GetCredential(db, "user-1")
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got != nil {
		t.Error("expected credential to be deleted")
	}

	// Deleting again is a no-op, not an error.
	if err := DeleteCredential(db, "user-1"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestListSyncEnabledRequiresRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	// Eligible: sync enabled with refresh token.
	eligible := &models.Credential{
		UserID:       "user-a",
		AccessToken:  "token-a",
		RefreshToken: strPtr("refresh-a"),
		SyncEnabled:  true,
		Status:       models.SyncStatusConnected,
	}
	// Sync enabled but no refresh token: excluded from unattended sync.
	noRefresh := &models.Credential{
		UserID:      "user-b",
		AccessToken: "token-b",
		SyncEnabled: true,
		Status:      models.SyncStatusConnected,
	}
	// Refresh token but sync disabled.
	disabled := &models.Credential{
		UserID:       "user-c",
		AccessToken:  "token-c",
		RefreshToken: strPtr("refresh-c"),
		SyncEnabled:  false,
		Status:       models.SyncStatusConnected,
	}

	for _, cred := range []*models.Credential{eligible, noRefresh, disabled} {
		if err := UpsertCredential(db, cred); err != nil {
			t.Fatalf("UpsertCredential(%s) failed: %v", cred.UserID, err)
		}
	}

	creds, err := ListSyncEnabled(db)
	if err != nil {
		t.Fatalf("ListSyncEnabled failed: %v", err)
	}
	if len(creds) != 1 {
		t.Fatalf("expected 1 eligible credential, got %d", len(creds))
	}
	if creds[0].UserID != "user-a" {
		t.Errorf("expected user-a, got %q", creds[0].UserID)
	}
}

func TestUpdateCredentialSyncOutcome(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cred := &models.Credential{
		UserID:      "user-1",
		AccessToken: "token",
		Status:      models.SyncStatusConnected,
	}
	if err := UpsertCredential(db, cred); err != nil {
		t.Fatalf("UpsertCredential failed: %v", err)
	}

	syncedAt := time.Now().UTC().Truncate(time.Second)
	if err := UpdateCredentialSyncOutcome(db, "user-1", models.SyncStatusSynced, syncedAt); err != nil {
		t.Fatalf("UpdateCredentialSyncOutcome failed: %v", err)
	}

	got, _ := GetCredential(db, "user-1")
	if got.Status != models.SyncStatusSynced {
		t.Errorf("expected SYNCED, got %q", got.Status)
	}
	if got.LastSyncAt == nil || !got.LastSyncAt.Equal(syncedAt) {
		t.Errorf("expected last sync at %v, got %v", syncedAt, got.LastSyncAt)
	}

	// A failure keeps the previous last-sync timestamp.
	if err := UpdateCredentialSyncOutcome(db, "user-1", models.SyncStatusSyncFailed, time.Now().UTC()); err != nil {
		t.Fatalf("UpdateCredentialSyncOutcome failed: %v", err)
	}

	got, _ = GetCredential(db, "user-1")
	if got.Status != models.SyncStatusSyncFailed {
		t.Errorf("expected SYNC_FAILED, got %q", got.Status)
	}
	if got.LastSyncAt == nil || !got.LastSyncAt.Equal(syncedAt) {
		t.Errorf("failure should not advance last sync, got %v", got.LastSyncAt)
	}
}

func TestUpdateCredentialToken(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cred := &models.Credential{
		UserID:      "user-1",
		AccessToken: "expired-token",
		Status:      models.SyncStatusConnected,
	}
	if err := UpsertCredential(db, cred); err != nil {
		t.Fatalf("UpsertCredential failed: %v", err)
	}

	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	if err := UpdateCredentialToken(db, "user-1", "fresh-token", expiry); err != nil {
		t.Fatalf("UpdateCredentialToken failed: %v", err)
	}

	got, _ := GetCredential(db, "user-1")
	if got.AccessToken != "fresh-token" {
		t.Errorf("expected fresh-token, got %q", got.AccessToken)
	}
	if !got.TokenExpiresAt.Equal(expiry) {
		t.Errorf("expected expiry %v, got %v", expiry, got.TokenExpiresAt)
	}
}

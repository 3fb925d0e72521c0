// ABOUTME: HTTP-level tests for the calendar integration endpoints
// ABOUTME: Drives the gin router through httptest with a stub calendar client
package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuconnect/db"
	"nuconnect/models"
	"nuconnect/sync"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// stubCalendar is a canned sync.CalendarAPI for handler tests. Exchange
// always succeeds with a refresh token; inserts get sequential ids.
type stubCalendar struct {
	externals []models.ExternalEvent
	nextID    int
}

func (s *stubCalendar) AuthorizationURL(redirectURI string) string {
	return "https://accounts.example/consent?redirect_uri=" + redirectURI
}

func (s *stubCalendar) ExchangeCode(ctx context.Context, code, redirectURI string) (*sync.TokenSet, error) {
	if code == "bad-code" {
		return nil, &sync.OAuthExchangeError{Err: fmt.Errorf("invalid code")}
	}
	refresh := "refresh-token"
	return &sync.TokenSet{
		AccessToken:  "access-token",
		RefreshToken: &refresh,
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
	}, nil
}

func (s *stubCalendar) PrimaryCalendar(ctx context.Context, cred *models.Credential) (string, string, error) {
	return "primary-cal", "user@example.com", nil
}

func (s *stubCalendar) RefreshIfNeeded(ctx context.Context, cred models.Credential) (models.Credential, error) {
	return cred, nil
}

func (s *stubCalendar) ListEvents(ctx context.Context, cred *models.Credential, calendarID string, from, to time.Time) ([]models.ExternalEvent, error) {
	return s.externals, nil
}

func (s *stubCalendar) InsertEvent(ctx context.Context, cred *models.Credential, calendarID string, ev models.ExternalEvent) (*sync.InsertedEvent, error) {
	s.nextID++
	return &sync.InsertedEvent{ExternalID: fmt.Sprintf("g-ext-%d", s.nextID)}, nil
}

func setupServer(t *testing.T) (*Server, *stubCalendar, *sql.DB) {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(database))
	t.Cleanup(func() { database.Close() })

	stub := &stubCalendar{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := sync.NewEngine(database, stub, logger)
	return NewServer(database, engine, testSecret), stub, database
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	server, _, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRejectsMissingToken(t *testing.T) {
	server, _, _ := setupServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/calendar/google/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRejectsWrongSecret(t *testing.T) {
	server, _, _ := setupServer(t)
	token := signToken(t, "some-other-secret", "user-1")

	rec := doRequest(t, server, http.MethodGet, "/api/calendar/google/status", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthURL(t *testing.T) {
	server, _, _ := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodGet, "/api/calendar/google/auth-url?redirectUri=http://localhost/cb", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Contains(t, body["authUrl"], "redirect_uri=http://localhost/cb")
}

func TestStatusNotConnected(t *testing.T) {
	server, _, _ := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodGet, "/api/calendar/google/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["connected"])
	assert.Equal(t, models.SyncStatusNotConnected, body["status"])
}

func TestConnectThenStatus(t *testing.T) {
	server, _, database := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodPost, "/api/calendar/google/connect", token,
		gin.H{"code": "auth-code", "redirectUri": "http://localhost/cb"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "user@example.com", body["email"])
	assert.Equal(t, "primary-cal", body["primaryCalendarId"])

	// One unexported event makes the status report a pending change.
	start := time.Now().Add(24 * time.Hour).UTC()
	require.NoError(t, db.CreateEvent(database, &models.Event{
		UserID:    "user-1",
		Title:     "Lunch",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}))

	rec = doRequest(t, server, http.MethodGet, "/api/calendar/google/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body = decodeBody(t, rec)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, models.SyncStatusConnected, body["status"])
	assert.Equal(t, float64(1), body["pendingChanges"])
}

func TestConnectMissingCode(t *testing.T) {
	server, _, _ := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodPost, "/api/calendar/google/connect", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectExchangeFailure(t *testing.T) {
	server, _, _ := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodPost, "/api/calendar/google/connect", token,
		gin.H{"code": "bad-code"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSyncNotConnected(t *testing.T) {
	server, _, _ := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodPost, "/api/calendar/google/sync", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncRoundTrip(t *testing.T) {
	server, stub, database := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodPost, "/api/calendar/google/connect", token,
		gin.H{"code": "auth-code"})
	require.Equal(t, http.StatusOK, rec.Code)

	start := time.Now().Add(24 * time.Hour).UTC()
	require.NoError(t, db.CreateEvent(database, &models.Event{
		UserID:    "user-1",
		Title:     "Export me",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}))
	stub.externals = []models.ExternalEvent{
		{ID: "ext-1", Title: "Import me", Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour)},
	}

	rec = doRequest(t, server, http.MethodPost, "/api/calendar/google/sync", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["eventsImported"])
	assert.Equal(t, float64(1), body["eventsExported"])
	assert.Equal(t, "Sync completed successfully", body["message"])
}

func TestDisconnect(t *testing.T) {
	server, _, _ := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodPost, "/api/calendar/google/connect", token,
		gin.H{"code": "auth-code"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/calendar/google/disconnect", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Disconnecting again is a no-op, not an error.
	rec = doRequest(t, server, http.MethodPost, "/api/calendar/google/disconnect", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/calendar/google/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["connected"])
}

func TestListEvents(t *testing.T) {
	server, _, database := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	start := time.Now().Add(24 * time.Hour).UTC()
	require.NoError(t, db.CreateEvent(database, &models.Event{
		UserID:    "user-1",
		Title:     "Mine",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}))
	require.NoError(t, db.CreateEvent(database, &models.Event{
		UserID:    "user-2",
		Title:     "Someone else's",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}))

	rec := doRequest(t, server, http.MethodGet, "/api/calendar/events", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	events, ok := body["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 1)
	event := events[0].(map[string]any)
	assert.Equal(t, "Mine", event["title"])
}

func TestListEventsBadTimestamp(t *testing.T) {
	server, _, _ := setupServer(t)
	token := signToken(t, testSecret, "user-1")

	rec := doRequest(t, server, http.MethodGet, "/api/calendar/events?from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

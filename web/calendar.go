// ABOUTME: HTTP handlers for the Google Calendar integration endpoints
// ABOUTME: Connect, disconnect, status, manual sync, and local event listing
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nuconnect/db"
	"nuconnect/models"
	"nuconnect/sync"
)

// Default when the caller does not supply a redirect URI.
const defaultRedirectURI = "http://localhost:5173/settings?tab=integrations"

type connectRequest struct {
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirectUri"`
}

type syncStatusResponse struct {
	Connected         bool       `json:"connected"`
	SyncEnabled       bool       `json:"syncEnabled"`
	LastSyncAt        *time.Time `json:"lastSyncAt,omitempty"`
	Status            string     `json:"status"`
	PrimaryCalendarID string     `json:"primaryCalendarId,omitempty"`
	Email             string     `json:"email,omitempty"`
	PendingChanges    int        `json:"pendingChanges"`
}

type syncResultResponse struct {
	EventsImported int       `json:"eventsImported"`
	EventsExported int       `json:"eventsExported"`
	Conflicts      int       `json:"conflicts"`
	SyncedAt       time.Time `json:"syncedAt"`
	Message        string    `json:"message"`
}

func (s *Server) handleAuthURL(c *gin.Context) {
	redirectURI := c.Query("redirectUri")
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	c.JSON(http.StatusOK, gin.H{"authUrl": s.engine.AuthorizationURL(redirectURI)})
}

func (s *Server) handleConnect(c *gin.Context) {
	userID, err := GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	if req.RedirectURI == "" {
		req.RedirectURI = defaultRedirectURI
	}

	cred, email, err := s.engine.Connect(c.Request.Context(), userID, req.Code, req.RedirectURI)
	if err != nil {
		slog.Error("google calendar connect failed", "user", userID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to connect Google Calendar: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, syncStatusResponse{
		Connected:         true,
		SyncEnabled:       cred.SyncEnabled,
		Status:            cred.Status,
		PrimaryCalendarID: cred.PrimaryCalendarID,
		Email:             email,
	})
}

func (s *Server) handleDisconnect(c *gin.Context) {
	userID, err := GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := s.engine.Disconnect(userID); err != nil {
		slog.Error("google calendar disconnect failed", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleStatus(c *gin.Context) {
	userID, err := GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	status, err := s.engine.Status(userID)
	if err != nil {
		slog.Error("failed to read sync status", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read status"})
		return
	}

	c.JSON(http.StatusOK, syncStatusResponse{
		Connected:         status.Connected,
		SyncEnabled:       status.SyncEnabled,
		LastSyncAt:        status.LastSyncAt,
		Status:            status.Status,
		PrimaryCalendarID: status.PrimaryCalendarID,
		PendingChanges:    status.PendingChanges,
	})
}

// handleSync triggers one synchronous reconcile for the caller. Blocks for
// the duration of the pass.
func (s *Server) handleSync(c *gin.Context) {
	userID, err := GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := s.engine.SyncUser(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrNotConnected):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Google Calendar not connected"})
		case errors.Is(err, sync.ErrSyncDisabled):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Calendar sync is disabled"})
		case errors.Is(err, sync.ErrSyncInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress"})
		default:
			slog.Error("manual sync failed", "user", userID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Sync failed: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, syncResultResponse{
		EventsImported: result.Imported,
		EventsExported: result.Exported,
		Conflicts:      result.Conflicts,
		SyncedAt:       result.SyncedAt,
		Message:        result.Message,
	})
}

// handleListEvents returns the caller's local events starting in [from, to].
func (s *Server) handleListEvents(c *gin.Context) {
	userID, err := GetUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 3, 0)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		to = t
	}

	events, err := db.ListEventsInRange(s.database, userID, from, to)
	if err != nil {
		slog.Error("failed to list events", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []models.Event{}
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ABOUTME: Data models for calendar sync entities
// ABOUTME: Defines Credential, Event, ExternalEvent, and SyncResult structs
package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential sync status constants.
const (
	SyncStatusNeverSynced  = "NEVER_SYNCED"
	SyncStatusConnected    = "CONNECTED"
	SyncStatusSynced       = "SYNCED"
	SyncStatusSyncFailed   = "SYNC_FAILED"
	SyncStatusNotConnected = "NOT_CONNECTED"
)

// Event type constants.
const (
	EventTypeMeeting   = "MEETING"
	EventTypeCall      = "CALL"
	EventTypeVideoCall = "VIDEO_CALL"
	EventTypeFollowUp  = "FOLLOW_UP"
	EventTypeOther     = "OTHER"
)

// Event status constants.
const (
	EventStatusScheduled = "SCHEDULED"
	EventStatusConfirmed = "CONFIRMED"
	EventStatusCancelled = "CANCELLED"
	EventStatusCompleted = "COMPLETED"
)

// Credential holds one user's Google OAuth token set plus sync metadata.
// RefreshToken is nil for one-time grants; such credentials are never
// eligible for unattended sync.
type Credential struct {
	UserID            string     `json:"user_id"`
	AccessToken       string     `json:"-"`
	RefreshToken      *string    `json:"-"`
	TokenExpiresAt    time.Time  `json:"token_expires_at"`
	SyncEnabled       bool       `json:"sync_enabled"`
	PrimaryCalendarID string     `json:"primary_calendar_id,omitempty"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Expired reports whether the access token has passed its stored expiry.
func (c *Credential) Expired(now time.Time) bool {
	return !c.TokenExpiresAt.IsZero() && !now.Before(c.TokenExpiresAt)
}

// Event is a locally-owned calendar event. A non-nil ExternalID means the
// event is linked to the provider; a nil ExternalID means local-only,
// pending export.
type Event struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             string     `json:"user_id"`
	ContactID          *string    `json:"contact_id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Location           string     `json:"location,omitempty"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	MeetLink           string     `json:"meet_link,omitempty"`
	ExternalID         *string    `json:"external_id,omitempty"`
	ExternalCalendarID *string    `json:"external_calendar_id,omitempty"`
	Attendees          []string   `json:"attendees,omitempty"`
	ReminderMinutes    int        `json:"reminder_minutes"`
	ReminderSent       bool       `json:"reminder_sent"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Linked reports whether the event carries a provider identity.
func (e *Event) Linked() bool {
	return e.ExternalID != nil && *e.ExternalID != ""
}

// ExternalEvent is the provider-shaped view of an event, consumed per sync
// pass and never persisted.
type ExternalEvent struct {
	ID             string
	Title          string
	Description    string
	Location       string
	Start          time.Time
	End            time.Time
	AllDay         bool
	Cancelled      bool
	LastModified   time.Time
	MeetLink       string
	AttendeeEmails []string
	VideoCall      bool
}

// SyncResult aggregates one reconciliation pass for a single user.
type SyncResult struct {
	Imported  int       `json:"events_imported"`
	Exported  int       `json:"events_exported"`
	Conflicts int       `json:"conflicts"`
	Skipped   int       `json:"skipped"`
	SyncedAt  time.Time `json:"synced_at"`
	Message   string    `json:"message,omitempty"`
}

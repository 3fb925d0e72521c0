// ABOUTME: Calendar event database operations
// ABOUTME: Handles event CRUD, external-ID lookups, and export bookkeeping
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nuconnect/models"
)

func CreateEvent(db *sql.DB, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if event.Type == "" {
		event.Type = models.EventTypeMeeting
	}
	if event.Status == "" {
		event.Status = models.EventStatusScheduled
	}

	_, err := db.Exec(`
		INSERT INTO calendar_events
			(id, user_id, contact_id, title, description, location, start_time, end_time,
			 type, status, meet_link, external_id, external_calendar_id, attendees,
			 reminder_minutes, reminder_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID.String(), event.UserID, event.ContactID, event.Title, event.Description,
		event.Location, event.StartTime, event.EndTime, event.Type, event.Status,
		event.MeetLink, event.ExternalID, event.ExternalCalendarID,
		joinAttendees(event.Attendees), event.ReminderMinutes, event.ReminderSent,
		event.CreatedAt, event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

func GetEvent(db *sql.DB, id uuid.UUID) (*models.Event, error) {
	row := db.QueryRow(eventSelect+` WHERE id = ?`, id.String())
	return scanEvent(row)
}

// GetEventByExternalID looks up the local event linked to a provider event.
// This is the import-pass dedup key: one provider event maps to at most one
// local record per user.
func GetEventByExternalID(db *sql.DB, userID, externalID string) (*models.Event, error) {
	row := db.QueryRow(eventSelect+` WHERE user_id = ? AND external_id = ?`, userID, externalID)
	return scanEvent(row)
}

// ListUnsyncedEvents returns a user's events that have never been pushed to
// the provider. A null external_id is the sole idempotency key for export.
func ListUnsyncedEvents(db *sql.DB, userID string) ([]models.Event, error) {
	rows, err := db.Query(eventSelect+`
		WHERE user_id = ? AND external_id IS NULL
		ORDER BY start_time
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsynced events: %w", err)
	}
	return scanEvents(rows)
}

// CountUnsyncedEvents counts events pending export for a user.
func CountUnsyncedEvents(db *sql.DB, userID string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM calendar_events
		WHERE user_id = ? AND external_id IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced events: %w", err)
	}
	return count, nil
}

// ListEventsInRange returns a user's events starting within [from, to].
func ListEventsInRange(db *sql.DB, userID string, from, to time.Time) ([]models.Event, error) {
	rows, err := db.Query(eventSelect+`
		WHERE user_id = ? AND start_time >= ? AND start_time <= ?
		ORDER BY start_time
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query events in range: %w", err)
	}
	return scanEvents(rows)
}

func UpdateEvent(db *sql.DB, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()

	_, err := db.Exec(`
		UPDATE calendar_events
		SET contact_id = ?, title = ?, description = ?, location = ?, start_time = ?,
		    end_time = ?, type = ?, status = ?, meet_link = ?, attendees = ?,
		    reminder_minutes = ?, updated_at = ?
		WHERE id = ?
	`, event.ContactID, event.Title, event.Description, event.Location,
		event.StartTime, event.EndTime, event.Type, event.Status, event.MeetLink,
		joinAttendees(event.Attendees), event.ReminderMinutes, event.UpdatedAt,
		event.ID.String())

	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return nil
}

// LinkEventExternal records the provider identity returned by an insert.
// Once linked, the event is excluded from all future export passes.
func LinkEventExternal(db *sql.DB, eventID uuid.UUID, externalID, externalCalendarID, meetLink string) error {
	var err error
	if meetLink != "" {
		_, err = db.Exec(`
			UPDATE calendar_events
			SET external_id = ?, external_calendar_id = ?, meet_link = ?, updated_at = ?
			WHERE id = ?
		`, externalID, externalCalendarID, meetLink, time.Now().UTC(), eventID.String())
	} else {
		_, err = db.Exec(`
			UPDATE calendar_events
			SET external_id = ?, external_calendar_id = ?, updated_at = ?
			WHERE id = ?
		`, externalID, externalCalendarID, time.Now().UTC(), eventID.String())
	}

	if err != nil {
		return fmt.Errorf("failed to link event to provider: %w", err)
	}

	return nil
}

func DeleteEvent(db *sql.DB, id uuid.UUID) error {
	_, err := db.Exec(`DELETE FROM calendar_events WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// ListDueReminders returns events whose reminder window has opened and
// whose reminder has not been sent. Consumed by the reminder collaborator.
func ListDueReminders(db *sql.DB, now time.Time) ([]models.Event, error) {
	rows, err := db.Query(eventSelect+`
		WHERE reminder_sent = 0
		  AND status != 'CANCELLED'
		  AND datetime(start_time, '-' || reminder_minutes || ' minutes') <= datetime(?)
		  AND datetime(start_time) > datetime(?)
		ORDER BY start_time
	`, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	return scanEvents(rows)
}

func MarkReminderSent(db *sql.DB, eventID uuid.UUID) error {
	_, err := db.Exec(`
		UPDATE calendar_events SET reminder_sent = 1, updated_at = ? WHERE id = ?
	`, time.Now().UTC(), eventID.String())
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}

const eventSelect = `
	SELECT id, user_id, contact_id, title, description, location, start_time, end_time,
	       type, status, meet_link, external_id, external_calendar_id, attendees,
	       reminder_minutes, reminder_sent, created_at, updated_at
	FROM calendar_events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEventRow(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	var id string
	var contactID sql.NullString
	var description sql.NullString
	var location sql.NullString
	var meetLink sql.NullString
	var externalID sql.NullString
	var externalCalendarID sql.NullString
	var attendees sql.NullString

	err := row.Scan(
		&id,
		&event.UserID,
		&contactID,
		&event.Title,
		&description,
		&location,
		&event.StartTime,
		&event.EndTime,
		&event.Type,
		&event.Status,
		&meetLink,
		&externalID,
		&externalCalendarID,
		&attendees,
		&event.ReminderMinutes,
		&event.ReminderSent,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", id, err)
	}
	event.ID = parsed

	if contactID.Valid {
		event.ContactID = &contactID.String
	}
	event.Description = description.String
	event.Location = location.String
	event.MeetLink = meetLink.String
	if externalID.Valid {
		event.ExternalID = &externalID.String
	}
	if externalCalendarID.Valid {
		event.ExternalCalendarID = &externalCalendarID.String
	}
	event.Attendees = splitAttendees(attendees.String)

	return event, nil
}

func scanEvent(row *sql.Row) (*models.Event, error) {
	event, err := scanEventRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	defer func() { _ = rows.Close() }()

	var events []models.Event
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *event)
	}

	return events, rows.Err()
}

// joinAttendees serializes the attendee list as a comma-joined string.
// Order and duplicates are preserved.
func joinAttendees(attendees []string) string {
	return strings.Join(attendees, ",")
}

func splitAttendees(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

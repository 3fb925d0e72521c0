// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS google_credentials (
	user_id TEXT PRIMARY KEY,
	access_token TEXT NOT NULL,
	refresh_token TEXT,
	token_expires_at DATETIME,
	sync_enabled INTEGER NOT NULL DEFAULT 1,
	primary_calendar_id TEXT,
	last_sync_at DATETIME,
	sync_status TEXT NOT NULL DEFAULT 'NEVER_SYNCED'
		CHECK(sync_status IN ('NEVER_SYNCED', 'CONNECTED', 'SYNCED', 'SYNC_FAILED')),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_google_credentials_sync_enabled
	ON google_credentials(sync_enabled) WHERE refresh_token IS NOT NULL;

CREATE TABLE IF NOT EXISTS calendar_events (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	contact_id TEXT,
	title TEXT NOT NULL,
	description TEXT,
	location TEXT,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	type TEXT NOT NULL DEFAULT 'MEETING'
		CHECK(type IN ('MEETING', 'CALL', 'VIDEO_CALL', 'FOLLOW_UP', 'OTHER')),
	status TEXT NOT NULL DEFAULT 'SCHEDULED'
		CHECK(status IN ('SCHEDULED', 'CONFIRMED', 'CANCELLED', 'COMPLETED')),
	meet_link TEXT,
	external_id TEXT,
	external_calendar_id TEXT,
	attendees TEXT,
	reminder_minutes INTEGER NOT NULL DEFAULT 15,
	reminder_sent INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(user_id, external_id)
);

CREATE INDEX IF NOT EXISTS idx_calendar_events_user ON calendar_events(user_id);
CREATE INDEX IF NOT EXISTS idx_calendar_events_unsynced
	ON calendar_events(user_id) WHERE external_id IS NULL;
CREATE INDEX IF NOT EXISTS idx_calendar_events_start ON calendar_events(start_time);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// ABOUTME: Two-way reconciliation between local events and Google Calendar
// ABOUTME: Import-then-export passes over a fixed sliding window with LWW conflicts
package sync

import (
	"context"
	"errors"
	"time"

	"nuconnect/db"
	"nuconnect/models"
)

const (
	// Sliding sync window: [now - windowPast, now + windowFuture].
	// Events outside are neither imported nor re-checked.
	windowPast   = 30 * 24 * time.Hour
	windowFuture = 90 * 24 * time.Hour
)

// reconcile runs one import-then-export cycle for the credential's user.
// The order is a correctness requirement: import links externally-originated
// events before export selects unlinked ones. Each event is persisted
// independently, so a failure partway through keeps earlier progress.
func (e *Engine) reconcile(ctx context.Context, cred *models.Credential) (*models.SyncResult, error) {
	now := e.now()
	from := now.Add(-windowPast)
	to := now.Add(windowFuture)

	result := &models.SyncResult{}

	if err := e.importPass(ctx, cred, from, to, result); err != nil {
		return result, err
	}
	if err := e.exportPass(ctx, cred, result); err != nil {
		return result, err
	}

	return result, nil
}

// importPass pulls external events in the window and merges them against
// local state. Unknown external ids create local records; known ones are
// overwritten only when the external copy is strictly newer
// (last-writer-wins, no field-level merge).
func (e *Engine) importPass(ctx context.Context, cred *models.Credential, from, to time.Time, result *models.SyncResult) error {
	externals, err := e.client.ListEvents(ctx, cred, cred.PrimaryCalendarID, from, to)
	if err != nil {
		return err
	}

	for _, ext := range externals {
		if ext.Cancelled {
			continue
		}
		// The provider call already bounds the range, but expanded recurring
		// instances can straddle it. Window is inclusive at both ends.
		if !ext.Start.IsZero() && (ext.Start.Before(from) || ext.Start.After(to)) {
			continue
		}

		local, err := db.GetEventByExternalID(e.database, cred.UserID, ext.ID)
		if err != nil {
			return err
		}

		if local == nil {
			event, terr := TranslateExternal(cred.UserID, ext)
			if terr != nil {
				// A malformed event is skipped, not fatal to the pass.
				var tErr *TranslationError
				if errors.As(terr, &tErr) {
					e.logger.Warn("skipping untranslatable event",
						"user", cred.UserID, "external_id", ext.ID, "error", terr)
					result.Skipped++
					continue
				}
				return terr
			}
			if err := db.CreateEvent(e.database, event); err != nil {
				return err
			}
			result.Imported++
			continue
		}

		if ext.LastModified.After(local.UpdatedAt) {
			ApplyExternal(local, ext)
			if err := db.UpdateEvent(e.database, local); err != nil {
				return err
			}
			result.Conflicts++
		}
	}

	return nil
}

// exportPass pushes local events that have never been sent to the provider.
// The null external id is the sole idempotency key: once linked, an event
// never exports again.
func (e *Engine) exportPass(ctx context.Context, cred *models.Credential, result *models.SyncResult) error {
	unsynced, err := db.ListUnsyncedEvents(e.database, cred.UserID)
	if err != nil {
		return err
	}

	for i := range unsynced {
		event := &unsynced[i]

		inserted, err := e.client.InsertEvent(ctx, cred, cred.PrimaryCalendarID, TranslateLocal(event))
		if err != nil {
			return err
		}

		if err := db.LinkEventExternal(e.database, event.ID, inserted.ExternalID, cred.PrimaryCalendarID, inserted.MeetLink); err != nil {
			return err
		}
		result.Exported++
	}

	return nil
}

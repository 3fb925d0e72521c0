// ABOUTME: Bidirectional mapping between local and provider event shapes
// ABOUTME: Handles type inference, default titles, and all-day normalization
package sync

import (
	"strings"
	"time"

	"nuconnect/models"
)

const untitledEvent = "Untitled"

// Applied when the provider omits an end time.
const defaultEventDuration = time.Hour

// TranslateExternal maps a provider event to a new local event for the
// given user. Cancelled events must be filtered before translation; a
// missing start time is a TranslationError.
func TranslateExternal(userID string, ext models.ExternalEvent) (*models.Event, error) {
	if ext.Cancelled {
		return nil, &TranslationError{ExternalID: ext.ID, Reason: "cancelled event"}
	}
	if ext.Start.IsZero() {
		return nil, &TranslationError{ExternalID: ext.ID, Reason: "missing start time"}
	}

	end := ext.End
	if end.IsZero() {
		end = ext.Start.Add(defaultEventDuration)
	}

	externalID := ext.ID
	event := &models.Event{
		UserID:      userID,
		Title:       titleOrUntitled(ext.Title),
		Description: ext.Description,
		Location:    ext.Location,
		StartTime:   ext.Start,
		EndTime:     end,
		Type:        inferEventType(ext),
		Status:      models.EventStatusScheduled,
		MeetLink:    ext.MeetLink,
		ExternalID:  &externalID,
		Attendees:   append([]string(nil), ext.AttendeeEmails...),
	}

	return event, nil
}

// ApplyExternal overwrites a linked local event's translatable fields with
// the external copy. Last-writer-wins: the caller has already established
// the external side is strictly newer. Local-only fields (contact link,
// reminder state, provider identity) are left alone.
func ApplyExternal(local *models.Event, ext models.ExternalEvent) {
	local.Title = titleOrUntitled(ext.Title)
	local.Description = ext.Description
	local.Location = ext.Location
	if !ext.Start.IsZero() {
		local.StartTime = ext.Start
	}
	if !ext.End.IsZero() {
		local.EndTime = ext.End
	}
	if ext.MeetLink != "" {
		local.MeetLink = ext.MeetLink
	}
}

// TranslateLocal maps a local event to the outbound provider shape.
// VIDEO_CALL events request conference-link creation.
func TranslateLocal(event *models.Event) models.ExternalEvent {
	return models.ExternalEvent{
		Title:          event.Title,
		Description:    event.Description,
		Location:       event.Location,
		Start:          event.StartTime.UTC(),
		End:            event.EndTime.UTC(),
		AttendeeEmails: append([]string(nil), event.Attendees...),
		VideoCall:      event.Type == models.EventTypeVideoCall,
	}
}

// inferEventType picks the local event type from provider signals: a
// conferencing link means VIDEO_CALL, a location mentioning "call" means
// CALL, everything else is MEETING.
func inferEventType(ext models.ExternalEvent) string {
	if ext.MeetLink != "" {
		return models.EventTypeVideoCall
	}
	if strings.Contains(strings.ToLower(ext.Location), "call") {
		return models.EventTypeCall
	}
	return models.EventTypeMeeting
}

func titleOrUntitled(title string) string {
	if title == "" {
		return untitledEvent
	}
	return title
}

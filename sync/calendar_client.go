// ABOUTME: Google Calendar API client wrapper
// ABOUTME: Implements the CalendarAPI boundary contract over calendar/v3
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"nuconnect/models"
)

const (
	// Google Calendar API max page size.
	maxResults = 500

	googleDateOnly = "2006-01-02"
)

// TokenSet is the result of a code-for-token exchange. RefreshToken is nil
// when the provider issues a one-time grant.
type TokenSet struct {
	AccessToken  string
	RefreshToken *string
	ExpiresAt    time.Time
}

// InsertedEvent is the provider's view of a newly created event.
type InsertedEvent struct {
	ExternalID string
	MeetLink   string
}

// CalendarAPI is the boundary contract the sync engine depends on. The
// production implementation wraps the Google Calendar API; tests supply a
// fake.
type CalendarAPI interface {
	AuthorizationURL(redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenSet, error)
	PrimaryCalendar(ctx context.Context, cred *models.Credential) (id, summary string, err error)
	RefreshIfNeeded(ctx context.Context, cred models.Credential) (models.Credential, error)
	ListEvents(ctx context.Context, cred *models.Credential, calendarID string, from, to time.Time) ([]models.ExternalEvent, error)
	InsertEvent(ctx context.Context, cred *models.Credential, calendarID string, ev models.ExternalEvent) (*InsertedEvent, error)
}

// GoogleClient implements CalendarAPI against the real Google Calendar API.
// It holds no per-user state; every call takes the credential it operates
// on and returns updated values rather than mutating hidden caches.
type GoogleClient struct {
	oauth   *oauth2.Config
	timeout time.Duration
}

func NewGoogleClient(oauthCfg *oauth2.Config, timeout time.Duration) *GoogleClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GoogleClient{oauth: oauthCfg, timeout: timeout}
}

// AuthorizationURL builds the consent-screen URL requesting offline access.
// Pure; no network call.
func (g *GoogleClient) AuthorizationURL(redirectURI string) string {
	cfg := *g.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode performs the one-shot token exchange.
func (g *GoogleClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := *g.oauth
	cfg.RedirectURL = redirectURI

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &OAuthExchangeError{Err: err}
	}

	set := &TokenSet{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry.UTC(),
	}
	if token.RefreshToken != "" {
		rt := token.RefreshToken
		set.RefreshToken = &rt
	}

	return set, nil
}

// PrimaryCalendar resolves the user's default calendar.
func (g *GoogleClient) PrimaryCalendar(ctx context.Context, cred *models.Credential) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	svc, err := g.service(ctx, cred)
	if err != nil {
		return "", "", err
	}

	entry, err := svc.CalendarList.Get("primary").Context(ctx).Do()
	if err != nil {
		return "", "", &ProviderError{Op: "primary calendar lookup", Err: err}
	}

	return entry.Id, entry.Summary, nil
}

// RefreshIfNeeded exchanges the refresh token for a fresh access token when
// the stored one has expired. Returns an updated credential value; the
// caller persists it. A rejected or missing refresh token yields a
// TokenRefreshError and the input credential unchanged.
func (g *GoogleClient) RefreshIfNeeded(ctx context.Context, cred models.Credential) (models.Credential, error) {
	if !cred.Expired(time.Now().UTC()) {
		return cred, nil
	}
	if cred.RefreshToken == nil || *cred.RefreshToken == "" {
		return cred, &TokenRefreshError{Err: ErrNotConnected}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	source := g.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: *cred.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return cred, &TokenRefreshError{Err: err}
	}

	cred.AccessToken = token.AccessToken
	cred.TokenExpiresAt = token.Expiry.UTC()
	return cred, nil
}

// ListEvents fetches events in [from, to], recurring events expanded to
// single instances, ordered by start time. Provider-cancelled events are
// excluded. The upper bound is inclusive: TimeMax is exclusive in the
// Google API, so it is pushed one second past the window end.
func (g *GoogleClient) ListEvents(ctx context.Context, cred *models.Credential, calendarID string, from, to time.Time) ([]models.ExternalEvent, error) {
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	var all []models.ExternalEvent
	pageToken := ""

	for {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)

		call := svc.Events.List(calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(maxResults).
			TimeMin(from.UTC().Format(time.RFC3339)).
			TimeMax(to.UTC().Add(time.Second).Format(time.RFC3339)).
			Context(callCtx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		events, err := call.Do()
		cancel()
		if err != nil {
			return nil, &ProviderError{Op: "event list", Err: err}
		}

		for _, item := range events.Items {
			if item.Status == "cancelled" {
				continue
			}
			all = append(all, externalFromGoogle(item))
		}

		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return all, nil
}

// InsertEvent creates a new provider event and returns its external id plus
// the conferencing link when one was requested.
func (g *GoogleClient) InsertEvent(ctx context.Context, cred *models.Credential, calendarID string, ev models.ExternalEvent) (*InsertedEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	created, err := svc.Events.Insert(calendarID, googleFromExternal(ev)).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, &ProviderError{Op: "event insert", Err: err}
	}

	return &InsertedEvent{
		ExternalID: created.Id,
		MeetLink:   created.HangoutLink,
	}, nil
}

// service builds a calendar service authenticated with the credential's
// access token. Refresh is handled explicitly via RefreshIfNeeded, never
// silently inside the HTTP client.
func (g *GoogleClient) service(ctx context.Context, cred *models.Credential) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, &ProviderError{Op: "service setup", Err: err}
	}
	return svc, nil
}

// externalFromGoogle converts a provider event to the engine's ephemeral
// representation. Lenient: missing times come through as zero values and
// are rejected later by the translator.
func externalFromGoogle(item *calendar.Event) models.ExternalEvent {
	ev := models.ExternalEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Cancelled:   item.Status == "cancelled",
		MeetLink:    item.HangoutLink,
	}

	if item.Updated != "" {
		if t, err := time.Parse(time.RFC3339, item.Updated); err == nil {
			ev.LastModified = t.UTC()
		}
	}

	if item.Start != nil {
		ev.Start, ev.AllDay = parseGoogleTime(item.Start)
	}
	if item.End != nil {
		ev.End, _ = parseGoogleTime(item.End)
	}

	for _, attendee := range item.Attendees {
		ev.AttendeeEmails = append(ev.AttendeeEmails, attendee.Email)
	}

	return ev
}

func parseGoogleTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t.UTC(), false
		}
		return time.Time{}, false
	}
	if edt.Date != "" {
		if t, err := time.Parse(googleDateOnly, edt.Date); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// googleFromExternal converts an outbound event to the provider shape.
// Timestamps are sent as explicit UTC instants.
func googleFromExternal(ev models.ExternalEvent) *calendar.Event {
	event := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}

	for _, email := range ev.AttendeeEmails {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	if ev.VideoCall {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: uuid.New().String(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}
	}

	return event
}

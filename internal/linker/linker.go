// Package linker links externally tracked issues to Google Calendar events.
//
// A single logical meeting is represented either as a one-off event created
// with its issue link already attached, or as a recurring series template
// whose individual occurrences acquire links one at a time. Linking an
// occurrence permanently detaches it from its series: the provider's
// "this instance only" update semantics make it an independently editable
// event while siblings and the template stay untouched.
//
// No local cache or index is maintained; every lookup is a live query
// against the provider, keyed on private extended properties.
package linker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// CalendarAPI is the capability the linker needs from the calendar provider.
// *calendar.Client from internal/calendar satisfies it.
type CalendarAPI interface {
	InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	ListEvents(ctx context.Context, calendarID string, privateProps map[string]string) ([]*calendar.Event, error)
	ListInstances(ctx context.Context, calendarID, eventID string, timeMin time.Time) ([]*calendar.Event, error)
}

// Options tune a Linker beyond its required collaborators.
type Options struct {
	// IssueTrackerURL is the base URL for issue back-links rendered into
	// event descriptions. Optional.
	IssueTrackerURL string

	// Retry bounds retries of transient provider failures. Nil disables
	// retrying; failures then propagate after a single attempt.
	Retry *RetryPolicy

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Linker performs issue-event linking against one configured calendar. The
// calendar identifier and timezone are injected once at construction and
// never re-read.
type Linker struct {
	api             CalendarAPI
	calendarID      string
	location        *time.Location
	issueTrackerURL string
	retryPolicy     *RetryPolicy
	logger          *slog.Logger

	now func() time.Time
}

// New creates a Linker for the given calendar. timezone is the IANA zone
// applied to recurring events so their expansion tracks daylight-saving
// transitions.
func New(api CalendarAPI, calendarID, timezone string, opts Options) (*Linker, error) {
	if calendarID == "" {
		return nil, errors.New("calendar ID must not be empty")
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Linker{
		api:             api,
		calendarID:      calendarID,
		location:        loc,
		issueTrackerURL: opts.IssueTrackerURL,
		retryPolicy:     opts.Retry,
		logger:          logger,
		now:             time.Now,
	}, nil
}

// AddEvent creates a one-off event already linked to issueID. No existence
// check is performed: calling it twice for the same issue creates two
// events, and the caller is responsible for not double-creating.
func (l *Linker) AddEvent(ctx context.Context, m Meeting, issueID string) (*calendar.Event, error) {
	if issueID == "" {
		return nil, errors.New("issue ID must not be empty")
	}

	event := m.normalize().event(l.location, l.issueRef(issueID))
	event.ExtendedProperties = &calendar.EventExtendedProperties{
		Private: Role{Kind: RoleSingular, IssueID: issueID}.properties(),
	}

	created, err := l.insert(ctx, event)
	if err != nil {
		return nil, err
	}

	l.logger.Info("created event", "event_id", created.Id, "issue_id", issueID)
	return created, nil
}

// AddRecurringEvent creates a recurring-series template with the given
// RFC 5545 rule strings, validated locally before any network call. The
// configured timezone is applied to both start and end so the expansion
// stays correct across daylight-saving boundaries. A fresh series carries no
// issue link; only its occurrences acquire links, one at a time.
func (l *Linker) AddRecurringEvent(ctx context.Context, m Meeting, rules []string) (*calendar.Event, error) {
	if len(rules) == 0 {
		return nil, errors.New("at least one recurrence rule is required")
	}
	if _, err := rrule.StrSliceToRRuleSet(rules); err != nil {
		return nil, fmt.Errorf("invalid recurrence rules: %w", err)
	}

	event := m.normalize().event(l.location, "")
	event.Recurrence = rules
	event.Start.TimeZone = l.location.String()
	event.End.TimeZone = l.location.String()
	event.ExtendedProperties = &calendar.EventExtendedProperties{
		Private: Role{Kind: RoleSeriesTemplate}.properties(),
	}

	created, err := l.insert(ctx, event)
	if err != nil {
		return nil, err
	}

	l.logger.Info("created recurring event", "event_id", created.Id, "rules", rules)
	return created, nil
}

// insert performs the (inherently non-idempotent) event creation. When
// retries are enabled a client-generated identifier is pre-assigned so a
// replayed insert cannot double-create: the provider answers the replay with
// a conflict, which is resolved by fetching the event the first attempt made.
func (l *Linker) insert(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	if l.retryPolicy != nil {
		event.Id = newEventID()
	}

	var created *calendar.Event
	err := l.retry(ctx, func() error {
		ev, err := l.api.InsertEvent(ctx, l.calendarID, event)
		if err != nil {
			if event.Id != "" && isConflict(err) {
				existing, getErr := l.api.GetEvent(ctx, l.calendarID, event.Id)
				if getErr != nil {
					return getErr
				}
				created = existing
				return nil
			}
			return err
		}
		created = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteEvent removes the event linked to issueID, looking it up by its
// metadata rather than a locally cached identifier. No match is a logged
// no-op, not an error. More than one match returns *AmbiguousLinkError
// instead of arbitrarily deleting the provider's first result. The lookup
// and the delete are not transactional; a concurrent writer can win the
// race.
func (l *Linker) DeleteEvent(ctx context.Context, issueID string) error {
	if issueID == "" {
		return errors.New("issue ID must not be empty")
	}

	var matches []*calendar.Event
	err := l.retry(ctx, func() error {
		events, err := l.api.ListEvents(ctx, l.calendarID, map[string]string{issueIDKey: issueID})
		if err != nil {
			return err
		}
		matches = events
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case len(matches) == 0:
		l.logger.Info("no event linked to issue, nothing to delete", "issue_id", issueID)
		return nil
	case len(matches) > 1:
		ids := make([]string, len(matches))
		for i, ev := range matches {
			ids[i] = ev.Id
		}
		return &AmbiguousLinkError{IssueID: issueID, EventIDs: ids}
	}

	eventID := matches[0].Id
	if err := l.retry(ctx, func() error {
		return l.api.DeleteEvent(ctx, l.calendarID, eventID)
	}); err != nil {
		return err
	}

	l.logger.Info("deleted event", "event_id", eventID, "issue_id", issueID)
	return nil
}

// ListSeries returns all recurring-series templates on the calendar,
// ignoring singular events and occurrences. It is a series-only view for
// reconciliation against a set of recurring issue templates.
func (l *Linker) ListSeries(ctx context.Context) ([]*calendar.Event, error) {
	var series []*calendar.Event
	err := l.retry(ctx, func() error {
		events, err := l.api.ListEvents(ctx, l.calendarID, map[string]string{recurrenceKey: recurrenceTrue})
		if err != nil {
			return err
		}
		series = events
		return nil
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

// ListInstances expands seriesID into its concrete future occurrences. The
// window starts at the moment of the call; past occurrences are excluded by
// construction, not filtered after the fact.
func (l *Linker) ListInstances(ctx context.Context, seriesID string) ([]*calendar.Event, error) {
	if seriesID == "" {
		return nil, errors.New("series ID must not be empty")
	}

	var instances []*calendar.Event
	err := l.retry(ctx, func() error {
		events, err := l.api.ListInstances(ctx, l.calendarID, seriesID, l.now())
		if err != nil {
			return err
		}
		instances = events
		return nil
	})
	if err != nil {
		return nil, err
	}
	return instances, nil
}

// LinkInstance attaches issueID to a single occurrence and persists the
// update addressed by the occurrence's own identifier, not the series
// identifier. Per provider contract this converts the occurrence from
// "governed by the series" to independently editable; sibling occurrences
// and the template are unaffected. The occurrence's metadata is replaced by
// the issue link alone, so the detached event no longer matches the
// series-template listing.
func (l *Linker) LinkInstance(ctx context.Context, occurrence *calendar.Event, issueID string) (*calendar.Event, error) {
	if issueID == "" {
		return nil, errors.New("issue ID must not be empty")
	}
	if occurrence == nil || occurrence.Id == "" {
		return nil, errors.New("occurrence must have an identifier")
	}

	if occurrence.ExtendedProperties == nil {
		occurrence.ExtendedProperties = &calendar.EventExtendedProperties{}
	}
	occurrence.ExtendedProperties.Private = Role{Kind: RoleLinkedOccurrence, IssueID: issueID}.properties()

	var updated *calendar.Event
	err := l.retry(ctx, func() error {
		ev, err := l.api.UpdateEvent(ctx, l.calendarID, occurrence.Id, occurrence)
		if err != nil {
			return err
		}
		updated = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("linked occurrence", "event_id", updated.Id, "issue_id", issueID)
	return updated, nil
}

// LinkInstanceByID fetches an occurrence by its identifier and links it to
// issueID.
func (l *Linker) LinkInstanceByID(ctx context.Context, occurrenceID, issueID string) (*calendar.Event, error) {
	var occurrence *calendar.Event
	err := l.retry(ctx, func() error {
		ev, err := l.api.GetEvent(ctx, l.calendarID, occurrenceID)
		if err != nil {
			return err
		}
		occurrence = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	return l.LinkInstance(ctx, occurrence, issueID)
}

// issueRef renders the description back-link for an issue.
func (l *Linker) issueRef(issueID string) string {
	if l.issueTrackerURL == "" {
		return "#" + issueID
	}
	base := strings.TrimRight(l.issueTrackerURL, "/")
	return fmt.Sprintf(`<a href="%s/%s">#%s</a>`, base, issueID, issueID)
}

// newEventID returns a client-generated identifier in the Calendar API's
// event ID alphabet.
func newEventID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isConflict(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

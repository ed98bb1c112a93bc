package calendar

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client wraps the Google Calendar API service
type Client struct {
	service *calendar.Service
}

// NewClient creates a new Google Calendar API client.
// Optionally accepts an endpoint URL for testing with mock servers.
func NewClient(ctx context.Context, httpClient *http.Client, endpoint ...string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}

	if len(endpoint) > 0 && endpoint[0] != "" {
		opts = append(opts, option.WithEndpoint(endpoint[0]))
	}

	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	return &Client{
		service: srv,
	}, nil
}

// InsertEvent creates a new event in the specified calendar.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	created, err := c.service.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create event: %w", err)
	}

	return created, nil
}

// GetEvent retrieves a single event by its identifier.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	event, err := c.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get event: %w", err)
	}

	return event, nil
}

// UpdateEvent updates an event addressed by eventID. For an occurrence of a
// recurring event this is a "this instance only" update: the provider detaches
// the occurrence from its series.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	updated, err := c.service.Events.Update(calendarID, eventID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to update event: %w", err)
	}

	return updated, nil
}

// DeleteEvent deletes an event from the specified calendar.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to delete event: %w", err)
	}

	return nil
}

// ListEvents returns the calendar's events whose private extended properties
// contain every key/value pair in privateProps. The provider matches each
// "KEY=VALUE" filter exactly and case-sensitively. All result pages are
// collected before returning so callers can detect duplicate matches.
func (c *Client) ListEvents(ctx context.Context, calendarID string, privateProps map[string]string) ([]*calendar.Event, error) {
	call := c.service.Events.List(calendarID).Context(ctx)

	// Sorted for a deterministic request shape.
	keys := make([]string, 0, len(privateProps))
	for k := range privateProps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		call = call.PrivateExtendedProperty(fmt.Sprintf("%s=%s", k, privateProps[k]))
	}

	var events []*calendar.Event
	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list events: %w", err)
		}

		events = append(events, page.Items...)

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return events, nil
}

// ListInstances expands a recurring event into its concrete occurrences
// starting at timeMin. Past occurrences are excluded by the provider-side
// window, not filtered after the fact.
func (c *Client) ListInstances(ctx context.Context, calendarID, eventID string, timeMin time.Time) ([]*calendar.Event, error) {
	call := c.service.Events.Instances(calendarID, eventID).
		Context(ctx).
		TimeMin(timeMin.Format(time.RFC3339))

	var instances []*calendar.Event
	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list instances: %w", err)
		}

		instances = append(instances, page.Items...)

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return instances, nil
}

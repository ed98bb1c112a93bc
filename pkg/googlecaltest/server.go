// Package googlecaltest provides a mock Google Calendar API server for testing.
// It implements a subset of the Google Calendar API v3 Events endpoints,
// including private-extended-property filtering and recurring-event instance
// expansion.
package googlecaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teambition/rrule-go"
	"google.golang.org/api/calendar/v3"
)

const maxExpandedInstances = 250

// Server is a mock Google Calendar API server for testing.
type Server struct {
	*httptest.Server
	mu     sync.RWMutex
	events map[string]map[string]*calendar.Event // calendarID -> eventID -> event
	nextID int
}

// NewServer creates a new mock Google Calendar API server.
func NewServer() *Server {
	s := &Server{
		events: make(map[string]map[string]*calendar.Event),
		nextID: 1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.Server = httptest.NewServer(mux)
	return s
}

// handleRequest routes all requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.URL.Path, "/calendars/") || !strings.Contains(r.URL.Path, "/events") {
		http.Error(w, "unsupported endpoint", http.StatusNotFound)
		return
	}
	s.handleCalendars(w, r)
}

// handleCalendars routes calendar-related requests.
// Paths: /calendar/v3/calendars/{calendarId}/events[/{eventId}[/instances]]
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	idx := strings.Index(path, "/calendars/")
	if idx == -1 {
		http.Error(w, "invalid path: missing /calendars/", http.StatusBadRequest)
		return
	}

	path = path[idx+len("/calendars/"):]
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) < 2 || parts[1] != "events" {
		http.Error(w, "unsupported resource", http.StatusNotImplemented)
		return
	}

	calendarID := parts[0]

	switch {
	case len(parts) == 2:
		// /calendars/{calendarId}/events
		switch r.Method {
		case http.MethodGet:
			s.listEvents(w, r, calendarID)
		case http.MethodPost:
			s.insertEvent(w, r, calendarID)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 3:
		// /calendars/{calendarId}/events/{eventId}
		eventID := parts[2]
		switch r.Method {
		case http.MethodGet:
			s.getEvent(w, r, calendarID, eventID)
		case http.MethodPut, http.MethodPatch:
			s.updateEvent(w, r, calendarID, eventID)
		case http.MethodDelete:
			s.deleteEvent(w, r, calendarID, eventID)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 4 && parts[3] == "instances" && r.Method == http.MethodGet:
		// /calendars/{calendarId}/events/{eventId}/instances
		s.listInstances(w, r, calendarID, parts[2])
	default:
		http.Error(w, "invalid path", http.StatusBadRequest)
	}
}

// insertEvent handles POST /calendars/{calendarId}/events. Client-supplied
// event IDs are honored; inserting a duplicate ID answers with a conflict,
// which is what makes pre-keyed inserts safe to replay.
func (s *Server) insertEvent(w http.ResponseWriter, r *http.Request, calendarID string) {
	var event calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Id == "" {
		event.Id = fmt.Sprintf("event%d", s.nextID)
		s.nextID++
	} else if s.events[calendarID][event.Id] != nil {
		http.Error(w, "the requested identifier already exists", http.StatusConflict)
		return
	}

	event.Status = "confirmed"
	event.Created = time.Now().Format(time.RFC3339)
	event.Updated = event.Created
	event.HtmlLink = fmt.Sprintf("https://calendar.google.com/event?eid=%s", event.Id)

	if s.events[calendarID] == nil {
		s.events[calendarID] = make(map[string]*calendar.Event)
	}
	s.events[calendarID][event.Id] = &event

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// listEvents handles GET /calendars/{calendarId}/events. Supports time
// filters, pagination, sorting and exact-match privateExtendedProperty
// filters of the form KEY=VALUE (repeatable).
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, calendarID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := r.URL.Query()
	timeMin := query.Get("timeMin")
	timeMax := query.Get("timeMax")
	maxResults := query.Get("maxResults")
	pageToken := query.Get("pageToken")
	singleEvents := query.Get("singleEvents")
	orderBy := query.Get("orderBy")
	propFilters := query["privateExtendedProperty"]

	var events []*calendar.Event
	for _, evt := range s.events[calendarID] {
		if timeMin != "" && evt.Start != nil && evt.Start.DateTime != "" && evt.Start.DateTime < timeMin {
			continue
		}
		if timeMax != "" && evt.Start != nil && evt.Start.DateTime != "" && evt.Start.DateTime > timeMax {
			continue
		}
		if !matchesPrivateProperties(evt, propFilters) {
			continue
		}
		events = append(events, evt)
	}

	if orderBy == "startTime" && singleEvents == "true" {
		sort.Slice(events, func(i, j int) bool {
			return eventStartKey(events[i]) < eventStartKey(events[j])
		})
	} else {
		// Stable order for pagination.
		sort.Slice(events, func(i, j int) bool {
			return events[i].Id < events[j].Id
		})
	}

	startIdx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "%d", &startIdx)
	}

	maxRes := len(events)
	if maxResults != "" {
		fmt.Sscanf(maxResults, "%d", &maxRes)
	}

	endIdx := startIdx + maxRes
	if endIdx > len(events) {
		endIdx = len(events)
	}
	if startIdx > len(events) {
		startIdx = len(events)
	}

	resp := &calendar.Events{
		Kind:    "calendar#events",
		Summary: calendarID,
		Items:   events[startIdx:endIdx],
	}

	if endIdx < len(events) {
		resp.NextPageToken = fmt.Sprintf("%d", endIdx)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// matchesPrivateProperties reports whether evt satisfies every KEY=VALUE
// filter. Matching is exact and case-sensitive.
func matchesPrivateProperties(evt *calendar.Event, filters []string) bool {
	for _, f := range filters {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return false
		}
		if evt.ExtendedProperties == nil || evt.ExtendedProperties.Private[key] != value {
			return false
		}
	}
	return true
}

func eventStartKey(evt *calendar.Event) string {
	if evt.Start == nil {
		return ""
	}
	if evt.Start.DateTime != "" {
		return evt.Start.DateTime
	}
	return evt.Start.Date
}

// getEvent handles GET /calendars/{calendarId}/events/{eventId}
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request, calendarID, eventID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event := s.events[calendarID][eventID]
	if event == nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// updateEvent handles PUT/PATCH /calendars/{calendarId}/events/{eventId}.
// Updating an occurrence of a recurring event by its instance identifier
// detaches it: the occurrence is stored standalone and from then on shadows
// its expansion slot, mirroring the provider's "this instance only"
// semantics.
func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, calendarID, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updates calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	existing := s.events[calendarID][eventID]
	if existing == nil {
		seriesID, ok := s.seriesForInstanceLocked(calendarID, eventID)
		if !ok {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}

		// First write to a virtual occurrence: detach it from the series.
		updates.Id = eventID
		updates.RecurringEventId = seriesID
		updates.Recurrence = nil
		updates.Status = "confirmed"
		updates.Created = time.Now().Format(time.RFC3339)
		updates.Updated = updates.Created
		updates.HtmlLink = fmt.Sprintf("https://calendar.google.com/event?eid=%s", eventID)

		if s.events[calendarID] == nil {
			s.events[calendarID] = make(map[string]*calendar.Event)
		}
		s.events[calendarID][eventID] = &updates

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updates)
		return
	}

	updates.Id = eventID
	updates.RecurringEventId = existing.RecurringEventId
	updates.Created = existing.Created
	updates.Updated = time.Now().Format(time.RFC3339)
	updates.HtmlLink = existing.HtmlLink

	s.events[calendarID][eventID] = &updates

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updates)
}

// seriesForInstanceLocked resolves an instance identifier of the form
// {seriesID}_{basetime} against a stored recurring event.
func (s *Server) seriesForInstanceLocked(calendarID, instanceID string) (string, bool) {
	idx := strings.LastIndex(instanceID, "_")
	if idx <= 0 {
		return "", false
	}
	seriesID := instanceID[:idx]
	series := s.events[calendarID][seriesID]
	if series == nil || len(series.Recurrence) == 0 {
		return "", false
	}
	return seriesID, true
}

// deleteEvent handles DELETE /calendars/{calendarId}/events/{eventId}
func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, calendarID, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events[calendarID][eventID] == nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	delete(s.events[calendarID], eventID)
	w.WriteHeader(http.StatusNoContent)
}

// listInstances handles GET /calendars/{calendarId}/events/{eventId}/instances.
// The recurrence rules are expanded from the series start in the series
// timezone. Detached occurrences replace their expansion slots. Occurrences
// starting before timeMin are excluded.
func (s *Server) listInstances(w http.ResponseWriter, r *http.Request, calendarID, seriesID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.events[calendarID][seriesID]
	if series == nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	if len(series.Recurrence) == 0 {
		http.Error(w, "event is not recurring", http.StatusBadRequest)
		return
	}

	start, end, loc, err := seriesTimes(series)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var timeMin time.Time
	if raw := r.URL.Query().Get("timeMin"); raw != "" {
		timeMin, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid timeMin: %v", err), http.StatusBadRequest)
			return
		}
	}

	set, err := rrule.StrSliceToRRuleSetInLoc(series.Recurrence, loc)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid recurrence: %v", err), http.StatusBadRequest)
		return
	}
	set.DTStart(start.In(loc))

	duration := end.Sub(start)

	var items []*calendar.Event
	next := set.Iterator()
	for count := 0; count < maxExpandedInstances; count++ {
		occStart, ok := next()
		if !ok {
			break
		}
		if !timeMin.IsZero() && occStart.Before(timeMin) {
			continue
		}

		instanceID := fmt.Sprintf("%s_%s", seriesID, occStart.UTC().Format("20060102T150405Z"))

		if detached := s.events[calendarID][instanceID]; detached != nil {
			items = append(items, detached)
			continue
		}

		items = append(items, instanceFromSeries(series, instanceID, occStart, duration, loc))
	}

	resp := &calendar.Events{
		Kind:    "calendar#events",
		Summary: calendarID,
		Items:   items,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// seriesTimes extracts the series start, end and timezone.
func seriesTimes(series *calendar.Event) (start, end time.Time, loc *time.Location, err error) {
	if series.Start == nil || series.Start.DateTime == "" || series.End == nil || series.End.DateTime == "" {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("series %s is missing start or end time", series.Id)
	}

	loc = time.UTC
	if series.Start.TimeZone != "" {
		loc, err = time.LoadLocation(series.Start.TimeZone)
		if err != nil {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("invalid series timezone: %w", err)
		}
	}

	start, err = time.Parse(time.RFC3339, series.Start.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("invalid series start: %w", err)
	}
	end, err = time.Parse(time.RFC3339, series.End.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("invalid series end: %w", err)
	}

	return start, end, loc, nil
}

// instanceFromSeries synthesizes one expanded occurrence. The occurrence
// shares the series' content and metadata until it is detached by an update.
func instanceFromSeries(series *calendar.Event, instanceID string, occStart time.Time, duration time.Duration, loc *time.Location) *calendar.Event {
	instance := &calendar.Event{
		Id:               instanceID,
		RecurringEventId: series.Id,
		Status:           "confirmed",
		Summary:          series.Summary,
		Description:      series.Description,
		Location:         series.Location,
		Created:          series.Created,
		Updated:          series.Updated,
		Start: &calendar.EventDateTime{
			DateTime: occStart.In(loc).Format(time.RFC3339),
			TimeZone: series.Start.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: occStart.Add(duration).In(loc).Format(time.RFC3339),
			TimeZone: series.End.TimeZone,
		},
		OriginalStartTime: &calendar.EventDateTime{
			DateTime: occStart.In(loc).Format(time.RFC3339),
			TimeZone: series.Start.TimeZone,
		},
	}

	if series.ExtendedProperties != nil {
		private := make(map[string]string, len(series.ExtendedProperties.Private))
		for k, v := range series.ExtendedProperties.Private {
			private[k] = v
		}
		instance.ExtendedProperties = &calendar.EventExtendedProperties{Private: private}
	}

	return instance
}

// Reset clears all events from the server.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]map[string]*calendar.Event)
	s.nextID = 1
}

// GetEvents returns all events for a calendar (for test assertions).
func (s *Server) GetEvents(calendarID string) []*calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*calendar.Event
	for _, evt := range s.events[calendarID] {
		events = append(events, evt)
	}
	return events
}

// AddEvent adds a pre-configured event to the server (for test setup).
func (s *Server) AddEvent(calendarID string, event *calendar.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Id == "" {
		event.Id = fmt.Sprintf("event%d", s.nextID)
		s.nextID++
	}

	if s.events[calendarID] == nil {
		s.events[calendarID] = make(map[string]*calendar.Event)
	}
	s.events[calendarID][event.Id] = event
}

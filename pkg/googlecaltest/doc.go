// Package googlecaltest provides a mock Google Calendar API server for testing.
//
// The mock server implements a subset of the Google Calendar API v3 Events
// endpoints, allowing tests to run without authentication or network access.
//
// # Supported Operations
//
//   - Insert Event: POST /calendars/{calendarId}/events
//     (client-supplied event IDs are honored; duplicates answer 409)
//   - List Events: GET /calendars/{calendarId}/events
//     (pagination, time filters, sorting, privateExtendedProperty filters)
//   - Get Event: GET /calendars/{calendarId}/events/{eventId}
//   - Update Event: PUT/PATCH /calendars/{calendarId}/events/{eventId}
//   - Delete Event: DELETE /calendars/{calendarId}/events/{eventId}
//   - List Instances: GET /calendars/{calendarId}/events/{eventId}/instances
//     (RFC 5545 recurrence expansion in the series timezone, timeMin window)
//
// # Recurring Events
//
// Events that carry recurrence rules are expanded on demand by the instances
// endpoint. Updating an expanded occurrence by its instance identifier
// detaches it from the series: the occurrence is stored standalone and
// shadows its expansion slot from then on, mirroring the real provider's
// "this instance only" update semantics.
//
// # Basic Usage
//
//	// Create mock server
//	server := googlecaltest.NewServer()
//	defer server.Close()
//
//	// Create Google Calendar client pointing to mock
//	ctx := context.Background()
//	svc, err := calendar.NewService(ctx,
//	    option.WithHTTPClient(&http.Client{}),
//	    option.WithEndpoint(server.URL))
//
//	// Use the service normally
//	created, err := svc.Events.Insert("primary", &calendar.Event{
//	    Summary: "Test Meeting",
//	    Start:   &calendar.EventDateTime{DateTime: time.Now().Format(time.RFC3339)},
//	}).Do()
//
// # Test Helpers
//
// The server provides helper methods for test setup and assertions:
//
//	// Pre-populate events for testing
//	server.AddEvent("primary", &calendar.Event{
//	    Id:      "test-event-1",
//	    Summary: "Existing Event",
//	})
//
//	// Get all events for assertions
//	events := server.GetEvents("primary")
//
//	// Clear all data between tests
//	server.Reset()
package googlecaltest

package googlecaltest_test

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/kestrelab/issuecal/pkg/googlecaltest"
)

// Example demonstrates pointing a regular Calendar API client at the mock
// server and using private extended properties the way the linker does.
func Example() {
	server := googlecaltest.NewServer()
	defer server.Close()

	ctx := context.Background()
	svc, err := calendar.NewService(ctx,
		option.WithHTTPClient(&http.Client{}),
		option.WithEndpoint(server.URL))
	if err != nil {
		log.Fatal(err)
	}

	start := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)

	// Create an event linked to an issue.
	_, err = svc.Events.Insert("primary", &calendar.Event{
		Summary: "Incident review",
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"ISSUE_ID": "42"},
		},
	}).Do()
	if err != nil {
		log.Fatal(err)
	}

	// Look it up by its metadata, the only index the linker relies on.
	events, err := svc.Events.List("primary").PrivateExtendedProperty("ISSUE_ID=42").Do()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d event(s) linked to issue 42\n", len(events.Items))
	fmt.Println(events.Items[0].Summary)
	// Output:
	// 1 event(s) linked to issue 42
	// Incident review
}

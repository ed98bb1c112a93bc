package linker

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Meeting is the caller-facing description of an event to create.
type Meeting struct {
	Title       string
	Description string
	MeetingURL  string
	Start       time.Time
	End         time.Time
}

// normalize applies default times: a zero start becomes the top of the next
// hour, a zero end becomes one hour after the start.
func (m Meeting) normalize() Meeting {
	if m.Start.IsZero() {
		now := time.Now()
		m.Start = now.Add(time.Hour - time.Duration(now.Minute())*time.Minute - time.Duration(now.Second())*time.Second)
	}
	if m.End.IsZero() {
		m.End = m.Start.Add(time.Hour)
	}
	return m
}

// event composes the provider event. The location field carries the meeting
// URL, and the description embeds the meeting link plus the optional issue
// back-link as markup.
func (m Meeting) event(loc *time.Location, issueRef string) *calendar.Event {
	return &calendar.Event{
		Summary:     m.Title,
		Location:    m.MeetingURL,
		Description: renderDescription(m.Description, m.MeetingURL, issueRef),
		Start: &calendar.EventDateTime{
			DateTime: m.Start.In(loc).Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: m.End.In(loc).Format(time.RFC3339),
		},
	}
}

func renderDescription(description, meetingURL, issueRef string) string {
	var b strings.Builder
	b.WriteString(description)
	if meetingURL != "" {
		fmt.Fprintf(&b, "\n\nJoin: <a href=%q>%s</a>", meetingURL, meetingURL)
	}
	if issueRef != "" {
		fmt.Fprintf(&b, "\nIssue: %s", issueRef)
	}
	return b.String()
}

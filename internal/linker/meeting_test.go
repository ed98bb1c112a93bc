package linker

import (
	"strings"
	"testing"
	"time"
)

func TestNormalize_Defaults(t *testing.T) {
	m := Meeting{Title: "Sync"}.normalize()

	if m.Start.IsZero() {
		t.Fatal("expected a default start time")
	}
	if m.Start.Minute() != 0 || m.Start.Second() != 0 {
		t.Errorf("default start should be the top of an hour, got %v", m.Start)
	}
	if !m.Start.After(time.Now()) {
		t.Errorf("default start should be in the future, got %v", m.Start)
	}
	if got := m.End.Sub(m.Start); got != time.Hour {
		t.Errorf("default duration = %v, want 1h", got)
	}
}

func TestNormalize_ExplicitTimesUntouched(t *testing.T) {
	start := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	m := Meeting{Title: "Sync", Start: start, End: end}.normalize()

	if !m.Start.Equal(start) || !m.End.Equal(end) {
		t.Errorf("explicit times were modified: %v - %v", m.Start, m.End)
	}
}

func TestNormalize_EndDefaultsFromStart(t *testing.T) {
	start := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)

	m := Meeting{Title: "Sync", Start: start}.normalize()

	if !m.End.Equal(start.Add(time.Hour)) {
		t.Errorf("end = %v, want one hour after start", m.End)
	}
}

func TestMeetingEvent(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 9, 7, 12, 30, 0, 0, time.UTC)
	m := Meeting{
		Title:       "Planning",
		Description: "Quarterly planning",
		MeetingURL:  "https://zoom.example/1",
		Start:       start,
		End:         start.Add(time.Hour),
	}

	event := m.event(loc, `<a href="https://tracker.example.com/42">#42</a>`)

	if event.Summary != "Planning" {
		t.Errorf("unexpected summary %q", event.Summary)
	}
	if event.Location != "https://zoom.example/1" {
		t.Errorf("expected location to carry the meeting URL, got %q", event.Location)
	}
	if !strings.Contains(event.Description, "Quarterly planning") {
		t.Errorf("description lost the caller text: %q", event.Description)
	}
	if !strings.Contains(event.Description, `<a href="https://zoom.example/1">`) {
		t.Errorf("description missing the meeting link: %q", event.Description)
	}
	if !strings.Contains(event.Description, "#42") {
		t.Errorf("description missing the issue back-link: %q", event.Description)
	}

	// Times are rendered in the configured zone.
	if want := "2026-09-07T18:00:00+05:30"; event.Start.DateTime != want {
		t.Errorf("start = %q, want %q", event.Start.DateTime, want)
	}
	if want := "2026-09-07T19:00:00+05:30"; event.End.DateTime != want {
		t.Errorf("end = %q, want %q", event.End.DateTime, want)
	}
}

func TestRenderDescription_NoIssueRef(t *testing.T) {
	got := renderDescription("notes", "https://meet.example/2", "")

	if strings.Contains(got, "Issue:") {
		t.Errorf("unexpected issue line in %q", got)
	}
	if !strings.Contains(got, "https://meet.example/2") {
		t.Errorf("missing meeting link in %q", got)
	}
}

package linker

import (
	"fmt"

	"google.golang.org/api/calendar/v3"
)

// Metadata keys stored in an event's private extended properties. The
// provider's metadata-filter queries match these exactly and
// case-sensitively.
const (
	issueIDKey     = "ISSUE_ID"
	recurrenceKey  = "RECURRENCE"
	recurrenceTrue = "TRUE"
)

// RoleKind discriminates how a calendar event participates in issue linking.
type RoleKind int

const (
	// RoleUnmanaged marks events this tool does not own.
	RoleUnmanaged RoleKind = iota

	// RoleSingular is a one-off event created for exactly one issue.
	RoleSingular

	// RoleSeriesTemplate is a recurring template. It is never linked to an
	// issue; only its occurrences are.
	RoleSeriesTemplate

	// RoleLinkedOccurrence is a series occurrence that acquired its own
	// issue link and was thereby detached from the template.
	RoleLinkedOccurrence
)

func (k RoleKind) String() string {
	switch k {
	case RoleSingular:
		return "singular"
	case RoleSeriesTemplate:
		return "series template"
	case RoleLinkedOccurrence:
		return "linked occurrence"
	default:
		return "unmanaged"
	}
}

// Role is the tagged variant behind the provider's flat string-to-string
// metadata map. It is serialized to and from that map only at the API
// boundary; the rest of the code works with the typed form.
type Role struct {
	Kind    RoleKind
	IssueID string
}

// properties serializes the role to private extended properties. A linked
// occurrence deliberately carries no series marker: once detached it behaves
// as an independent singular-like event and must not surface in the
// series-template listing.
func (r Role) properties() map[string]string {
	switch r.Kind {
	case RoleSingular, RoleLinkedOccurrence:
		return map[string]string{issueIDKey: r.IssueID}
	case RoleSeriesTemplate:
		return map[string]string{recurrenceKey: recurrenceTrue}
	default:
		return nil
	}
}

// DecodeRole reads an event's private extended properties back into the
// typed form. Singular events and linked occurrences share the same
// serialized shape; they are told apart by whether the event still points at
// a recurring parent.
func DecodeRole(event *calendar.Event) (Role, error) {
	var props map[string]string
	if event.ExtendedProperties != nil {
		props = event.ExtendedProperties.Private
	}

	issueID, hasIssue := props[issueIDKey]
	marker, hasMarker := props[recurrenceKey]

	switch {
	case hasIssue && hasMarker:
		return Role{}, fmt.Errorf("event %s carries both an issue link and a series marker", event.Id)
	case hasMarker:
		if marker != recurrenceTrue {
			return Role{}, fmt.Errorf("event %s has unexpected series marker value %q", event.Id, marker)
		}
		return Role{Kind: RoleSeriesTemplate}, nil
	case hasIssue:
		if event.RecurringEventId != "" {
			return Role{Kind: RoleLinkedOccurrence, IssueID: issueID}, nil
		}
		return Role{Kind: RoleSingular, IssueID: issueID}, nil
	default:
		return Role{Kind: RoleUnmanaged}, nil
	}
}

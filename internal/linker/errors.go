package linker

import (
	"fmt"
	"strings"
)

// AmbiguousLinkError reports that more than one event carries the same issue
// link. The provider returns duplicates in arbitrary order, so no single
// event can be safely chosen for deletion; the duplicates must be resolved by
// the operator.
type AmbiguousLinkError struct {
	IssueID  string
	EventIDs []string
}

func (e *AmbiguousLinkError) Error() string {
	return fmt.Sprintf("issue %s is linked to %d events (%s)",
		e.IssueID, len(e.EventIDs), strings.Join(e.EventIDs, ", "))
}

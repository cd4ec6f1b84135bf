// Lead status state machine.
//
// Valid status graph:
//
//	pending ──► quoted ──► accepted
//	                └─────► rejected
//
// pending is the only initial state. The quoted → accepted/rejected edges are
// consumer-driven and not reachable through any operation this service
// exposes today; they exist in the graph so stored data using them parses.
package model

import "fmt"

type LeadStatus string

const (
	LeadPending  LeadStatus = "pending"
	LeadQuoted   LeadStatus = "quoted"
	LeadAccepted LeadStatus = "accepted"
	LeadRejected LeadStatus = "rejected"
)

// validLeadTransitions lists every allowed (from → to) pair.
var validLeadTransitions = map[LeadStatus][]LeadStatus{
	LeadPending: {LeadQuoted},
	LeadQuoted:  {LeadAccepted, LeadRejected},
	// accepted and rejected are terminal — no outgoing transitions
}

// ParseLeadStatus converts a raw string to a LeadStatus, returning an error
// for unknown values.
func ParseLeadStatus(s string) (LeadStatus, error) {
	st := LeadStatus(s)
	switch st {
	case LeadPending, LeadQuoted, LeadAccepted, LeadRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown lead status %q", s)
}

// IsLeadTransitionAllowed returns true when moving from → to is permitted by
// the state machine.
func IsLeadTransitionAllowed(from, to LeadStatus) bool {
	allowed, ok := validLeadTransitions[from]
	if !ok {
		return false // terminal state — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

package domain

import "strings"

// Status is the workflow state of a research output's publication.
type Status string

// Publication workflow states, in workflow order.
const (
	StatusReady     Status = "READY"
	StatusSubmitted Status = "SUBMITTED"
	StatusAccepted  Status = "ACCEPTED"
	StatusPublished Status = "PUBLISHED"
	StatusPullout   Status = "PULLOUT"
)

// StatusOrder is the fixed categorical order of the status axis.
var StatusOrder = []Status{
	StatusReady,
	StatusSubmitted,
	StatusAccepted,
	StatusPublished,
	StatusPullout,
}

// ParseStatus normalizes s and reports whether it is a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))

	for _, known := range StatusOrder {
		if st == known {
			return st, true
		}
	}

	return "", false
}

// StatusLabels returns the status order as plain strings.
func StatusLabels() []string {
	labels := make([]string, len(StatusOrder))
	for i, st := range StatusOrder {
		labels[i] = string(st)
	}

	return labels
}

package app

import "github.com/healthsync-ai/cli/internal/insights"

// StatusKind distinguishes success banners from error banners
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusSuccess
	StatusError
)

// Status is the user-visible result of an action
type Status struct {
	Kind    StatusKind
	Message string
}

// Success builds a success status
func Success(msg string) Status {
	return Status{Kind: StatusSuccess, Message: msg}
}

// Failure builds an error status
func Failure(msg string) Status {
	return Status{Kind: StatusError, Message: msg}
}

// IsError reports whether the status is an error
func (s Status) IsError() bool {
	return s.Kind == StatusError
}

// Outcome is what an action hands back to the surface that ran it
type Outcome struct {
	Status Status
	// Refreshed is true when the action was followed by a snapshot reload.
	Refreshed bool
	// RefreshErr is the reload failure, if any. The snapshot is empty then.
	RefreshErr error
	// Insights is set when the reload made insight generation due; pass it to
	// GenerateInsights.
	Insights *insights.Ticket
}

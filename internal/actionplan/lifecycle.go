// Package actionplan runs the draft -> reviewed -> approved lifecycle of
// per-SKU action plans.
package actionplan

import (
	"fmt"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
)

// Event drives a plan from one status to the next.
type Event string

const (
	EventSubmit  Event = "submit"
	EventApprove Event = "approve"
)

type transitionKey struct {
	from  domain.PlanStatus
	event Event
}

var transitions = map[transitionKey]domain.PlanStatus{
	{domain.PlanStatusDraft, EventSubmit}:     domain.PlanStatusReviewed,
	{domain.PlanStatusReviewed, EventApprove}: domain.PlanStatusApproved,
}

// TransitionError is returned for any (status, event) pair outside the table.
type TransitionError struct {
	From  domain.PlanStatus
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a plan in status %q", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return domain.ErrInvalidTransition }

// Next returns the status reached from status via event.
func Next(status domain.PlanStatus, event Event) (domain.PlanStatus, error) {
	next, ok := transitions[transitionKey{status, event}]
	if !ok {
		return "", &TransitionError{From: status, Event: event}
	}
	return next, nil
}

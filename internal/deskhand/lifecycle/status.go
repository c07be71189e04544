// Package lifecycle defines the install-request state machine. A request's
// status may only change along the edges in the transition table; the store
// rejects any attempted write that is not an edge here.
package lifecycle

import (
	"net/http"

	"github.com/deskhand/deskhand/internal/common/apperrors"
)

// Status is the lifecycle state of an install request.
type Status string

const (
	StatusRequested     Status = "requested"
	StatusTicketCreated Status = "ticket_created"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusAccepted      Status = "accepted"
	StatusRunning       Status = "running"
	StatusInstalled     Status = "installed"
	StatusFailed        Status = "failed"
)

var (
	ErrLifecycle         apperrors.Error = apperrors.New("lifecycle error")
	ErrInvalidStatus     apperrors.Error = ErrLifecycle.New("invalid status").SetStatusCode(http.StatusBadRequest)
	ErrInvalidTransition apperrors.Error = ErrLifecycle.New("invalid status transition").SetStatusCode(http.StatusConflict)
)

// transitions is the edge set of the state machine. Approve and reject are
// reachable from every state: the legacy flow lets an approver act on a
// request regardless of where it is, and we keep that behavior as a
// documented gap rather than silently tightening it.
var transitions = map[Status][]Status{
	StatusRequested:     {StatusTicketCreated, StatusApproved, StatusRejected},
	StatusTicketCreated: {StatusApproved, StatusRejected},
	StatusApproved:      {StatusAccepted, StatusApproved, StatusRejected},
	StatusRejected:      {StatusApproved, StatusRejected},
	StatusAccepted:      {StatusRunning, StatusApproved, StatusRejected},
	StatusRunning:       {StatusInstalled, StatusFailed, StatusApproved, StatusRejected},
	StatusInstalled:     {StatusApproved, StatusRejected},
	StatusFailed:        {StatusApproved, StatusRejected},
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// String returns the status as a string.
func (s Status) String() string {
	return string(s)
}

// Terminal reports whether s ends the happy path. Terminal states can still
// be re-approved or re-rejected (see the note on transitions).
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusInstalled, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the edge from -> to is in the table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns an error when the edge from -> to is not in the table.
func Validate(from, to Status) apperrors.Error {
	if !from.Valid() {
		return ErrInvalidStatus.Msg("unknown status: " + string(from))
	}
	if !to.Valid() {
		return ErrInvalidStatus.Msg("unknown status: " + string(to))
	}
	if !CanTransition(from, to) {
		return ErrInvalidTransition.Msg("cannot transition from " + string(from) + " to " + string(to))
	}
	return nil
}

// Parse converts a raw status string into a Status.
func Parse(s string) (Status, apperrors.Error) {
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus.Msg("unknown status: " + s)
	}
	return st, nil
}

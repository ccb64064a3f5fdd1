package calendar

import (
	"context"
	"errors"
	"time"
)

// Failure classes for remote calendar calls. Lifecycle code decides which of
// these block an operation and which are absorbed.
var (
	// ErrRemoteUnavailable covers network and auth failures talking to the
	// calendar service.
	ErrRemoteUnavailable = errors.New("remote calendar unavailable")
	// ErrRemoteRejected means the calendar service refused the request as
	// malformed.
	ErrRemoteRejected = errors.New("remote calendar rejected the request")
	// ErrRemoteNotFound means the remote side no longer has the event. Callers
	// must tolerate it as a soft failure on update.
	ErrRemoteNotFound = errors.New("remote calendar event not found")
)

// Sync translates commitment lifecycle intents into remote calendar calls.
// Implementations never touch the local store; the lifecycle service owns
// sequencing.
type Sync interface {
	// CreateEvent creates a remote event and returns its identifier. Either an
	// id is returned or nothing was created.
	CreateEvent(ctx context.Context, title, description string, start time.Time, durationMinutes int) (string, error)
	// UpdateEvent moves an existing remote event to a new start and duration.
	UpdateEvent(ctx context.Context, remoteEventID string, start time.Time, durationMinutes int) error
	// DeleteEvent removes a remote event. Deleting an already-absent event is
	// a success, not an error.
	DeleteEvent(ctx context.Context, remoteEventID string) error
}

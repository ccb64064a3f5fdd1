package commitment

import (
	"errors"
	"time"
)

// State is the lifecycle position of a commitment.
//
// Transitions: Upcoming → Completed | Archived; Completed → Upcoming (undo);
// Archived → Upcoming (restore) | Deleted (permanent). Deleted is terminal and
// means the row is physically removed.
type State string

const (
	StateUpcoming  State = "UPCOMING"
	StateCompleted State = "COMPLETED"
	StateArchived  State = "ARCHIVED"
	StateDeleted   State = "DELETED"
)

var (
	ErrNotFound = errors.New("commitment not found")
	// ErrInvalidState means the operation targeted a commitment that is not in
	// the required source state.
	ErrInvalidState = errors.New("commitment is not in the required state")
	// ErrPastSchedule rejects interactive scheduling onto a time that already
	// passed.
	ErrPastSchedule = errors.New("scheduled time is in the past")
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")
	// ErrNoSourceURL means neither an explicit URL nor one extractable from
	// shared text was provided.
	ErrNoSourceURL = errors.New("no source URL provided or found in shared text")
)

// Commitment is a user's scheduled intent to act on a piece of content, backed
// by a remote calendar event.
type Commitment struct {
	ID              string
	UserID          int
	RemoteEventID   string
	Title           string
	SourceURL       string
	ImageURL        string
	ScheduledAt     time.Time
	DurationMinutes int
	State           State
	// CompletedAt is set exactly when State == StateCompleted.
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Overdue reports whether an upcoming commitment's scheduled time has passed
// without completion. Past-dated rows are tolerated; readers classify them.
func (c Commitment) Overdue(now time.Time) bool {
	return c.State == StateUpcoming && c.ScheduledAt.Before(now)
}

// ParseState validates a state string from the API surface.
func ParseState(s string) (State, bool) {
	switch State(s) {
	case StateUpcoming, StateCompleted, StateArchived, StateDeleted:
		return State(s), true
	}
	return "", false
}

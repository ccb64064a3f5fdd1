package event_bus

import "time"

const (
	CommitmentCreated   EventType = "commitment.created"
	CommitmentUpdated   EventType = "commitment.updated"
	CommitmentCompleted EventType = "commitment.completed"
	CommitmentArchived  EventType = "commitment.archived"
	CommitmentRestored  EventType = "commitment.restored"
	CommitmentDeleted   EventType = "commitment.deleted"
	ReminderFired       EventType = "reminder.fired"
)

// CommitmentChange is the payload carried by all commitment.* events.
type CommitmentChange struct {
	CommitmentID string
	UserID       int
	Title        string
	State        string
	ScheduledAt  time.Time
}

// ReminderFiredData is the payload carried by reminder.fired events.
type ReminderFiredData struct {
	CommitmentID string
	UserID       int
	Title        string
	URL          string
	TimeText     string
	ScheduledAt  time.Time
}

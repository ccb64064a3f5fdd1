package reminder

import "time"

// LeadTime is how long before a commitment's scheduled time its reminder fires.
const LeadTime = 15 * time.Minute

const timeTextLayout = "Mon, Jan 2 • 3:04 PM"

// Reminder is a pending, durable reminder for one commitment. The payload is
// self-contained: the process that fires it may not be the one that scheduled
// it.
type Reminder struct {
	CommitmentID string
	UserID       int
	Title        string
	URL          string
	TimeText     string
	ScheduledAt  time.Time
	TriggerAt    time.Time
}

// Payload is the JSON shape delivered when a reminder fires.
type Payload struct {
	CommitmentID           string `json:"commitmentId"`
	Title                  string `json:"title"`
	URL                    string `json:"url"`
	DisplayTimeText        string `json:"displayTimeText"`
	ScheduledAtEpochMillis int64  `json:"scheduledAtEpochMillis"`
}

func (r Reminder) Payload() Payload {
	return Payload{
		CommitmentID:           r.CommitmentID,
		Title:                  r.Title,
		URL:                    r.URL,
		DisplayTimeText:        r.TimeText,
		ScheduledAtEpochMillis: r.ScheduledAt.UnixMilli(),
	}
}

// FormatTimeText renders the human-readable time carried in the payload,
// e.g. "Tue, Sep 1 • 5:30 PM".
func FormatTimeText(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeTextLayout)
}

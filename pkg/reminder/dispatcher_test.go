package reminder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/commitly/commitly/internal/event_bus"
	"github.com/commitly/commitly/internal/utils"
	"github.com/stretchr/testify/assert"
)

type recordingNotifier struct {
	Delivered []Reminder
	Err       error
}

func (n *recordingNotifier) Notify(_ context.Context, reminder Reminder) error {
	if n.Err != nil {
		return n.Err
	}
	n.Delivered = append(n.Delivered, reminder)
	return nil
}

func TestDispatcherTick(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	pending := func(id string, triggerAt time.Time) Reminder {
		return Reminder{
			CommitmentID: id,
			UserID:       123,
			Title:        "Read: " + id,
			URL:          "https://example.com/" + id,
			TimeText:     "Wed, Mar 12 • 11:15 AM",
			ScheduledAt:  triggerAt.Add(LeadTime),
			TriggerAt:    triggerAt,
		}
	}

	t.Run("fires due reminders and removes them", func(t *testing.T) {
		repo := NewStubReminderRepository()
		notifier := &recordingNotifier{}
		clock := &utils.MockClock{FixedNow: now}
		dispatcher := NewDispatcher(repo, notifier, event_bus.NewEventBus(), clock, "30s")

		assert.NoError(t, repo.Upsert(context.Background(), pending("due", now.Add(-time.Minute))))
		assert.NoError(t, repo.Upsert(context.Background(), pending("future", now.Add(time.Hour))))

		dispatcher.Tick()

		assert.Len(t, notifier.Delivered, 1)
		assert.Equal(t, "due", notifier.Delivered[0].CommitmentID)
		assert.NotContains(t, repo.Reminders, "due")
		assert.Contains(t, repo.Reminders, "future")
	})

	t.Run("keeps the reminder when delivery fails", func(t *testing.T) {
		repo := NewStubReminderRepository()
		notifier := &recordingNotifier{Err: fmt.Errorf("webhook down")}
		clock := &utils.MockClock{FixedNow: now}
		dispatcher := NewDispatcher(repo, notifier, event_bus.NewEventBus(), clock, "30s")

		assert.NoError(t, repo.Upsert(context.Background(), pending("due", now.Add(-time.Minute))))

		dispatcher.Tick()
		assert.Contains(t, repo.Reminders, "due")

		// the next pass retries and succeeds
		notifier.Err = nil
		dispatcher.Tick()
		assert.Len(t, notifier.Delivered, 1)
		assert.NotContains(t, repo.Reminders, "due")
	})

	t.Run("publishes a fired event per delivered reminder", func(t *testing.T) {
		repo := NewStubReminderRepository()
		notifier := &recordingNotifier{}
		clock := &utils.MockClock{FixedNow: now}
		bus := event_bus.NewEventBus()
		dispatcher := NewDispatcher(repo, notifier, bus, clock, "30s")

		var fired []event_bus.ReminderFiredData
		bus.Subscribe(event_bus.ReminderFired, func(e event_bus.Event) error {
			fired = append(fired, e.Data.(event_bus.ReminderFiredData))
			return nil
		})

		assert.NoError(t, repo.Upsert(context.Background(), pending("due", now.Add(-time.Minute))))
		dispatcher.Tick()

		assert.Len(t, fired, 1)
		assert.Equal(t, "due", fired[0].CommitmentID)
		assert.Equal(t, "Read: due", fired[0].Title)
	})
}

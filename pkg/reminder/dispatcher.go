package reminder

import (
	"context"

	"github.com/commitly/commitly/internal/event_bus"
	"github.com/commitly/commitly/internal/utils"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Dispatcher periodically scans the pending_reminder table and fires due
// reminders through the Notifier. Delivery is at-least-once: a reminder is only
// removed after its notification succeeded, so a crash mid-fire re-delivers on
// the next pass.
type Dispatcher struct {
	repo     Repository
	notifier Notifier
	bus      *event_bus.EventBus
	clock    utils.Clock
	interval string
	cron     *cron.Cron
}

func NewDispatcher(repo Repository, notifier Notifier, bus *event_bus.EventBus, clock utils.Clock, interval string) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		notifier: notifier,
		bus:      bus,
		clock:    clock,
		interval: interval,
	}
}

// Start begins the periodic scan. The interval is a Go duration string.
func (d *Dispatcher) Start() error {
	d.cron = cron.New()
	if _, err := d.cron.AddFunc("@every "+d.interval, d.Tick); err != nil {
		return err
	}
	d.cron.Start()
	log.Infof("reminder dispatcher started, scanning every %s", d.interval)
	return nil
}

// Stop halts the scan loop. A tick already in flight runs to completion.
func (d *Dispatcher) Stop() {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
}

// Tick fires every due reminder once. Exported so tests and manual triggers
// can run a single pass.
func (d *Dispatcher) Tick() {
	ctx := context.Background()

	due, err := d.repo.FindDue(ctx, d.clock.Now())
	if err != nil {
		log.Errorf("failed to scan due reminders: %v", err)
		return
	}

	for _, reminder := range due {
		if err := d.notifier.Notify(ctx, reminder); err != nil {
			// keep the row; the next pass retries
			log.Errorf("failed to deliver reminder for %s: %v", reminder.CommitmentID, err)
			continue
		}
		if err := d.repo.Delete(ctx, reminder.CommitmentID); err != nil {
			log.Errorf("failed to remove fired reminder for %s: %v", reminder.CommitmentID, err)
		}
		d.bus.Publish(event_bus.NewEvent(ctx, event_bus.ReminderFired, event_bus.ReminderFiredData{
			CommitmentID: reminder.CommitmentID,
			UserID:       reminder.UserID,
			Title:        reminder.Title,
			URL:          reminder.URL,
			TimeText:     reminder.TimeText,
			ScheduledAt:  reminder.ScheduledAt,
		}))
	}
}

package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/commitly/commitly/internal/utils"
	"github.com/commitly/commitly/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Scheduler keeps at most one pending reminder per commitment. Scheduling the
// same commitment twice replaces the prior pending reminder; cancelling a
// non-existent one is a no-op.
type Scheduler interface {
	Schedule(ctx context.Context, commitmentID, title, url string, firesAt time.Time) error
	Cancel(ctx context.Context, commitmentID string) error
}

// DurableScheduler persists reminders to the pending_reminder table, so they
// survive process restart. The Dispatcher fires them.
type DurableScheduler struct {
	repo  Repository
	users user.Provider
	clock utils.Clock
}

func NewDurableScheduler(repo Repository, users user.Provider, clock utils.Clock) *DurableScheduler {
	return &DurableScheduler{repo: repo, users: users, clock: clock}
}

func (s *DurableScheduler) Schedule(ctx context.Context, commitmentID, title, url string, firesAt time.Time) error {
	now := s.clock.Now()
	if !firesAt.After(now) {
		log.Debugf("not scheduling reminder for %s: fire time %s already passed", commitmentID, firesAt)
		return nil
	}

	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	triggerAt := firesAt.Add(-LeadTime)
	if triggerAt.Before(now) {
		triggerAt = now
	}

	reminder := Reminder{
		CommitmentID: commitmentID,
		UserID:       userId,
		Title:        title,
		URL:          url,
		TimeText:     FormatTimeText(firesAt, s.userLocation(ctx)),
		ScheduledAt:  firesAt,
		TriggerAt:    triggerAt,
	}
	return s.repo.Upsert(ctx, reminder)
}

func (s *DurableScheduler) Cancel(ctx context.Context, commitmentID string) error {
	return s.repo.Delete(ctx, commitmentID)
}

func (s *DurableScheduler) userLocation(ctx context.Context) *time.Location {
	currentUser, err := s.users.GetCurrentUser(ctx)
	if err != nil {
		return time.UTC
	}
	location, err := time.LoadLocation(currentUser.Settings.Timezone)
	if err != nil {
		log.Warnf("invalid timezone %q, falling back to UTC", currentUser.Settings.Timezone)
		return time.UTC
	}
	return location
}

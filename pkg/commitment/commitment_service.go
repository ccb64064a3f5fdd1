package commitment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commitly/commitly/internal/event_bus"
	"github.com/commitly/commitly/internal/utils"
	"github.com/commitly/commitly/pkg/calendar"
	"github.com/commitly/commitly/pkg/google"
	"github.com/commitly/commitly/pkg/metadata"
	"github.com/commitly/commitly/pkg/reminder"
	"github.com/commitly/commitly/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AccountProvider is the narrow view of the Google integration that the
// lifecycle service gates mutations on.
type AccountProvider interface {
	CurrentAccount(ctx context.Context) (*google.Account, error)
}

// NewCommitment is the input for scheduling. When Title or SourceURL are
// missing they are resolved best-effort from SharedText.
type NewCommitment struct {
	Title           string
	SourceURL       string
	ImageURL        string
	SharedText      string
	Start           time.Time
	DurationMinutes int
}

// Summary is the derived read-only view behind the stats header.
type Summary struct {
	Upcoming          int
	Overdue           int
	CompletedLastWeek int
	WeeklyGoal        int
	Streak            int
	Message           string
}

type Service interface {
	ScheduleNew(ctx context.Context, input NewCommitment) (Commitment, error)
	Reschedule(ctx context.Context, id string, start time.Time, durationMinutes int) (Commitment, error)
	MarkCompleted(ctx context.Context, id string) (Commitment, error)
	UndoComplete(ctx context.Context, id string) (Commitment, error)
	Archive(ctx context.Context, id string) (Commitment, error)
	RestoreFromArchive(ctx context.Context, id string, start time.Time, durationMinutes int) (Commitment, error)
	ScheduleAgain(ctx context.Context, id string, start time.Time, durationMinutes int) (Commitment, error)
	DeleteForever(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Commitment, error)
	ListByState(ctx context.Context, state State) ([]Commitment, error)
	GetSummary(ctx context.Context) (Summary, error)
}

// ServiceImpl owns the lifecycle state machine. It sequences the local store,
// the remote calendar and the reminder scheduler; on any failure the store is
// left exactly as it was before the call.
type ServiceImpl struct {
	repo      Repository
	calendar  calendar.Sync
	reminders reminder.Scheduler
	accounts  AccountProvider
	users     user.Provider
	fetcher   metadata.Fetcher
	eventBus  *event_bus.EventBus
	clock     utils.Clock
}

func NewService(
	repo Repository,
	calendarSync calendar.Sync,
	reminders reminder.Scheduler,
	accounts AccountProvider,
	users user.Provider,
	fetcher metadata.Fetcher,
	eventBus *event_bus.EventBus,
	clock utils.Clock,
) *ServiceImpl {
	return &ServiceImpl{
		repo:      repo,
		calendar:  calendarSync,
		reminders: reminders,
		accounts:  accounts,
		users:     users,
		fetcher:   fetcher,
		eventBus:  eventBus,
		clock:     clock,
	}
}

func (s *ServiceImpl) ScheduleNew(ctx context.Context, input NewCommitment) (Commitment, error) {
	if err := validateSchedule(input.Start, input.DurationMinutes, s.clock.Now()); err != nil {
		return Commitment{}, err
	}
	if _, err := s.accounts.CurrentAccount(ctx); err != nil {
		return Commitment{}, err
	}
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Commitment{}, err
	}

	input = s.resolveMetadata(ctx, input)
	if input.SourceURL == "" {
		return Commitment{}, ErrNoSourceURL
	}
	if input.Title == "" {
		input.Title = input.SourceURL
	}

	// The remote call outlives the HTTP request that triggered it.
	remoteCtx := context.WithoutCancel(ctx)
	remoteEventId, err := s.calendar.CreateEvent(remoteCtx, input.Title, input.SourceURL, input.Start, input.DurationMinutes)
	if err != nil {
		return Commitment{}, err
	}

	c := Commitment{
		ID:              uuid.New().String(),
		UserID:          userId,
		RemoteEventID:   remoteEventId,
		Title:           input.Title,
		SourceURL:       input.SourceURL,
		ImageURL:        input.ImageURL,
		ScheduledAt:     input.Start,
		DurationMinutes: input.DurationMinutes,
		State:           StateUpcoming,
		CreatedAt:       s.clock.Now(),
	}
	created, err := s.repo.Insert(ctx, c)
	if err != nil {
		// The remote event is orphaned otherwise.
		if deleteErr := s.calendar.DeleteEvent(remoteCtx, remoteEventId); deleteErr != nil {
			log.Errorf("failed to clean up remote event %s after local insert failure: %v", remoteEventId, deleteErr)
		}
		return Commitment{}, err
	}

	s.scheduleReminder(ctx, created)
	s.publish(ctx, event_bus.CommitmentCreated, created)
	return created, nil
}

func (s *ServiceImpl) Reschedule(ctx context.Context, id string, start time.Time, durationMinutes int) (Commitment, error) {
	if err := validateSchedule(start, durationMinutes, s.clock.Now()); err != nil {
		return Commitment{}, err
	}
	if _, err := s.accounts.CurrentAccount(ctx); err != nil {
		return Commitment{}, err
	}
	existing, err := s.requireState(ctx, id, StateUpcoming)
	if err != nil {
		return Commitment{}, err
	}

	err = s.calendar.UpdateEvent(context.WithoutCancel(ctx), existing.RemoteEventID, start, durationMinutes)
	if errors.Is(err, calendar.ErrRemoteNotFound) {
		// Local state is authoritative for the user-visible schedule.
		log.Warnf("remote event %s no longer exists, rescheduling locally only", existing.RemoteEventID)
	} else if err != nil {
		return Commitment{}, err
	}

	updated, err := s.repo.UpdateSchedule(ctx, existing.UserID, id, start, durationMinutes)
	if err != nil {
		return Commitment{}, err
	}
	if !updated {
		return Commitment{}, ErrInvalidState
	}

	existing.ScheduledAt = start
	existing.DurationMinutes = durationMinutes
	s.scheduleReminder(ctx, *existing)
	s.publish(ctx, event_bus.CommitmentUpdated, *existing)
	return *existing, nil
}

func (s *ServiceImpl) MarkCompleted(ctx context.Context, id string) (Commitment, error) {
	if _, err := s.accounts.CurrentAccount(ctx); err != nil {
		return Commitment{}, err
	}
	existing, err := s.requireState(ctx, id, StateUpcoming)
	if err != nil {
		return Commitment{}, err
	}

	completedAt := s.clock.Now()
	transitioned, err := s.repo.Transition(ctx, existing.UserID, id, StateUpcoming, StateCompleted, &completedAt)
	if err != nil {
		return Commitment{}, err
	}
	if !transitioned {
		return Commitment{}, ErrInvalidState
	}

	s.cancelReminder(ctx, id)
	existing.State = StateCompleted
	existing.CompletedAt = &completedAt
	s.publish(ctx, event_bus.CommitmentCompleted, *existing)
	return *existing, nil
}

func (s *ServiceImpl) UndoComplete(ctx context.Context, id string) (Commitment, error) {
	if _, err := s.accounts.CurrentAccount(ctx); err != nil {
		return Commitment{}, err
	}
	existing, err := s.requireState(ctx, id, StateCompleted)
	if err != nil {
		return Commitment{}, err
	}

	transitioned, err := s.repo.Transition(ctx, existing.UserID, id, StateCompleted, StateUpcoming, nil)
	if err != nil {
		return Commitment{}, err
	}
	if !transitioned {
		return Commitment{}, ErrInvalidState
	}

	existing.State = StateUpcoming
	existing.CompletedAt = nil
	// An overdue commitment has no reminder to restore.
	if existing.ScheduledAt.After(s.clock.Now()) {
		s.scheduleReminder(ctx, *existing)
	}
	s.publish(ctx, event_bus.CommitmentRestored, *existing)
	return *existing, nil
}

func (s *ServiceImpl) Archive(ctx context.Context, id string) (Commitment, error) {
	if _, err := s.accounts.CurrentAccount(ctx); err != nil {
		return Commitment{}, err
	}
	existing, err := s.requireState(ctx, id, StateUpcoming)
	if err != nil {
		return Commitment{}, err
	}

	// Archiving is local triage, the remote event stays.
	transitioned, err := s.repo.Transition(ctx, existing.UserID, id, StateUpcoming, StateArchived, nil)
	if err != nil {
		return Commitment{}, err
	}
	if !transitioned {
		return Commitment{}, ErrInvalidState
	}

	s.cancelReminder(ctx, id)
	existing.State = StateArchived
	s.publish(ctx, event_bus.CommitmentArchived, *existing)
	return *existing, nil
}

func (s *ServiceImpl) RestoreFromArchive(ctx context.Context, id string, start time.Time, durationMinutes int) (Commitment, error) {
	if err := validateSchedule(start, durationMinutes, s.clock.Now()); err != nil {
		return Commitment{}, err
	}
	if _, err := s.accounts.CurrentAccount(ctx); err != nil {
		return Commitment{}, err
	}
	existing, err := s.requireState(ctx, id, StateArchived)
	if err != nil {
		return Commitment{}, err
	}

	// The archived row's remote event id is stale; a fresh event is created.
	remoteEventId, err := s.calendar.CreateEvent(context.WithoutCancel(ctx), existing.Title, existing.SourceURL, start, durationMinutes)
	if err != nil {
		return Commitment{}, err
	}

	restored, err := s.repo.Restore(ctx, existing.UserID, id, remoteEventId, start, durationMinutes)
	if err != nil {
		return Commitment{}, err
	}
	if !restored {
		if deleteErr := s.calendar.DeleteEvent(context.WithoutCancel(ctx), remoteEventId); deleteErr != nil {
			log.Errorf("failed to clean up remote event %s after restore conflict: %v", remoteEventId, deleteErr)
		}
		return Commitment{}, ErrInvalidState
	}

	existing.State = StateUpcoming
	existing.RemoteEventID = remoteEventId
	existing.ScheduledAt = start
	existing.DurationMinutes = durationMinutes
	existing.CompletedAt = nil
	s.scheduleReminder(ctx, *existing)
	s.publish(ctx, event_bus.CommitmentRestored, *existing)
	return *existing, nil
}

func (s *ServiceImpl) ScheduleAgain(ctx context.Context, id string, start time.Time, durationMinutes int) (Commitment, error) {
	if err := validateSchedule(start, durationMinutes, s.clock.Now()); err != nil {
		return Commitment{}, err
	}
	if _, err := s.accounts.CurrentAccount(ctx); err != nil {
		return Commitment{}, err
	}
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Commitment{}, err
	}

	source, err := s.repo.FindByID(ctx, userId, id)
	if err != nil {
		return Commitment{}, err
	}
	if source == nil {
		return Commitment{}, ErrNotFound
	}
	if source.State != StateCompleted && source.State != StateArchived {
		return Commitment{}, ErrInvalidState
	}

	// The source row is a template only and stays untouched.
	return s.ScheduleNew(ctx, NewCommitment{
		Title:           source.Title,
		SourceURL:       source.SourceURL,
		ImageURL:        source.ImageURL,
		Start:           start,
		DurationMinutes: durationMinutes,
	})
}

func (s *ServiceImpl) DeleteForever(ctx context.Context, id string) error {
	if _, err := s.accounts.CurrentAccount(ctx); err != nil {
		return err
	}
	existing, err := s.requireState(ctx, id, StateArchived)
	if err != nil {
		return err
	}

	s.cancelReminder(ctx, id)
	if existing.RemoteEventID != "" {
		// Best effort; the remote event may be long gone.
		if err := s.calendar.DeleteEvent(context.WithoutCancel(ctx), existing.RemoteEventID); err != nil {
			log.Warnf("failed to delete remote event %s, removing local row anyway: %v", existing.RemoteEventID, err)
		}
	}

	deleted, err := s.repo.Delete(ctx, existing.UserID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrInvalidState
	}

	existing.State = StateDeleted
	s.publish(ctx, event_bus.CommitmentDeleted, *existing)
	return nil
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (Commitment, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Commitment{}, err
	}
	c, err := s.repo.FindByID(ctx, userId, id)
	if err != nil {
		return Commitment{}, err
	}
	if c == nil {
		return Commitment{}, ErrNotFound
	}
	return *c, nil
}

func (s *ServiceImpl) ListByState(ctx context.Context, state State) ([]Commitment, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByState(ctx, userId, state)
}

func (s *ServiceImpl) GetSummary(ctx context.Context) (Summary, error) {
	currentUser, err := s.users.GetCurrentUser(ctx)
	if err != nil {
		return Summary{}, err
	}
	location, err := time.LoadLocation(currentUser.Settings.Timezone)
	if err != nil {
		log.Warnf("invalid timezone %s for user %d, falling back to UTC", currentUser.Settings.Timezone, currentUser.Id)
		location = time.UTC
	}
	now := s.clock.Now()

	upcoming, err := s.repo.CountByState(ctx, currentUser.Id, StateUpcoming)
	if err != nil {
		return Summary{}, err
	}
	overdue, err := s.repo.CountOverdue(ctx, currentUser.Id, now)
	if err != nil {
		return Summary{}, err
	}
	completedLastWeek, err := s.repo.CountCompletedSince(ctx, currentUser.Id, now.AddDate(0, 0, -7))
	if err != nil {
		return Summary{}, err
	}
	completions, err := s.repo.CompletionTimes(ctx, currentUser.Id)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Upcoming:          upcoming,
		Overdue:           overdue,
		CompletedLastWeek: completedLastWeek,
		WeeklyGoal:        currentUser.Settings.WeeklyGoal,
		Streak:            CalculateStreak(completions, now, location),
	}
	summary.Message = summaryMessage(summary)
	return summary, nil
}

func summaryMessage(s Summary) string {
	message := fmt.Sprintf("%d upcoming, %d of %d completed this week", s.Upcoming, s.CompletedLastWeek, s.WeeklyGoal)
	if s.Overdue > 0 {
		message += fmt.Sprintf(" (%d overdue)", s.Overdue)
	}
	if s.Streak > 0 {
		message += fmt.Sprintf(" — %d day streak", s.Streak)
	}
	return message
}

// requireState loads the commitment and verifies its current state. The repo
// write re-checks the state, this early check only produces a precise error.
func (s *ServiceImpl) requireState(ctx context.Context, id string, state State) (*Commitment, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.State != state {
		return nil, ErrInvalidState
	}
	return c, nil
}

func (s *ServiceImpl) resolveMetadata(ctx context.Context, input NewCommitment) NewCommitment {
	if input.SourceURL == "" && input.SharedText != "" {
		input.SourceURL = metadata.ExtractURL(input.SharedText)
	}
	if input.SourceURL == "" {
		return input
	}
	if input.Title == "" {
		input.Title = s.fetcher.FetchTitle(ctx, input.SourceURL)
	}
	if input.ImageURL == "" {
		input.ImageURL = s.fetcher.FetchImageURL(ctx, input.SourceURL)
	}
	return input
}

// Reminder bookkeeping never fails a lifecycle operation that already
// committed; the dispatcher tolerates a stale or missing row.
func (s *ServiceImpl) scheduleReminder(ctx context.Context, c Commitment) {
	if err := s.reminders.Schedule(ctx, c.ID, c.Title, c.SourceURL, c.ScheduledAt); err != nil {
		log.Errorf("failed to schedule reminder for commitment %s: %v", c.ID, err)
	}
}

func (s *ServiceImpl) cancelReminder(ctx context.Context, id string) {
	if err := s.reminders.Cancel(ctx, id); err != nil {
		log.Errorf("failed to cancel reminder for commitment %s: %v", id, err)
	}
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, c Commitment) {
	s.eventBus.Publish(event_bus.NewEvent(ctx, eventType, event_bus.CommitmentChange{
		CommitmentID: c.ID,
		UserID:       c.UserID,
		Title:        c.Title,
		State:        string(c.State),
		ScheduledAt:  c.ScheduledAt,
	}))
}

func validateSchedule(start time.Time, durationMinutes int, now time.Time) error {
	if durationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if start.Before(now) {
		return ErrPastSchedule
	}
	return nil
}

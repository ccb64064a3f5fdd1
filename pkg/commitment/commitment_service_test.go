package commitment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/commitly/commitly/internal/event_bus"
	"github.com/commitly/commitly/internal/test_utils"
	"github.com/commitly/commitly/internal/utils"
	"github.com/commitly/commitly/pkg/calendar"
	"github.com/commitly/commitly/pkg/google"
	"github.com/commitly/commitly/pkg/metadata"
	"github.com/commitly/commitly/pkg/reminder"
	"github.com/commitly/commitly/pkg/user"
	"github.com/stretchr/testify/assert"
)

type stubAccounts struct {
	err error
}

func (s stubAccounts) CurrentAccount(_ context.Context) (*google.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &google.Account{UserID: 123}, nil
}

type serviceFixture struct {
	service   *ServiceImpl
	repo      *StubRepository
	calendar  *calendar.StubSync
	reminders *reminder.StubScheduler
	accounts  *stubAccounts
	fetcher   *metadata.StubFetcher
	clock     *utils.MockClock
	ctx       context.Context
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		repo:      NewStubRepository(),
		calendar:  calendar.NewStubSync(),
		reminders: reminder.NewStubScheduler(),
		accounts:  &stubAccounts{},
		fetcher:   metadata.NewStubFetcher(),
		clock:     &utils.MockClock{FixedNow: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)},
	}
	provider := test_utils.TestUserProvider{}
	currentUser, err := provider.GetCurrentUser(context.Background())
	assert.NoError(t, err)

	f.service = NewService(f.repo, f.calendar, f.reminders, f.accounts, provider, f.fetcher, event_bus.NewEventBus(), f.clock)
	f.ctx = user.WithUser(context.Background(), currentUser)
	return f
}

func (f *serviceFixture) in(d time.Duration) time.Time {
	return f.clock.FixedNow.Add(d)
}

func (f *serviceFixture) mustSchedule(t *testing.T, title string) Commitment {
	t.Helper()
	created, err := f.service.ScheduleNew(f.ctx, NewCommitment{
		Title:           title,
		SourceURL:       "https://example.com/article",
		Start:           f.in(2 * time.Hour),
		DurationMinutes: 30,
	})
	assert.NoError(t, err)
	return created
}

func TestScheduleNew(t *testing.T) {
	t.Run("creates remote event, local row and reminder", func(t *testing.T) {
		f := newServiceFixture(t)

		created, err := f.service.ScheduleNew(f.ctx, NewCommitment{
			Title:           "Read the article",
			SourceURL:       "https://example.com/article",
			Start:           f.in(2 * time.Hour),
			DurationMinutes: 30,
		})

		assert.NoError(t, err)
		assert.Equal(t, StateUpcoming, created.State)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "remote-1", created.RemoteEventID)
		assert.Len(t, f.repo.Commitments, 1)
		remote := f.calendar.Events["remote-1"]
		assert.Equal(t, "Read the article", remote.Title)
		assert.Equal(t, "https://example.com/article", remote.Description)
		assert.Equal(t, f.in(2*time.Hour), f.reminders.Pending[created.ID])
	})

	t.Run("resolves url and title from shared text", func(t *testing.T) {
		f := newServiceFixture(t)
		f.fetcher.Titles["https://example.com/post"] = "Interesting Post"
		f.fetcher.Images["https://example.com/post"] = "https://example.com/post.jpg"

		created, err := f.service.ScheduleNew(f.ctx, NewCommitment{
			SharedText:      "Check this out https://example.com/post later",
			Start:           f.in(time.Hour),
			DurationMinutes: 15,
		})

		assert.NoError(t, err)
		assert.Equal(t, "https://example.com/post", created.SourceURL)
		assert.Equal(t, "Interesting Post", created.Title)
		assert.Equal(t, "https://example.com/post.jpg", created.ImageURL)
	})

	t.Run("falls back to the url when no title can be fetched", func(t *testing.T) {
		f := newServiceFixture(t)

		created, err := f.service.ScheduleNew(f.ctx, NewCommitment{
			SourceURL:       "https://example.com/no-title",
			Start:           f.in(time.Hour),
			DurationMinutes: 15,
		})

		assert.NoError(t, err)
		assert.Equal(t, "https://example.com/no-title", created.Title)
	})

	t.Run("remote failure leaves the store unchanged", func(t *testing.T) {
		f := newServiceFixture(t)
		f.calendar.CreateErr = calendar.ErrRemoteUnavailable

		_, err := f.service.ScheduleNew(f.ctx, NewCommitment{
			SourceURL:       "https://example.com/article",
			Start:           f.in(time.Hour),
			DurationMinutes: 30,
		})

		assert.ErrorIs(t, err, calendar.ErrRemoteUnavailable)
		assert.Empty(t, f.repo.Commitments)
		assert.Empty(t, f.reminders.Pending)
	})

	t.Run("local insert failure cleans up the remote event", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.InsertErr = fmt.Errorf("disk full")

		_, err := f.service.ScheduleNew(f.ctx, NewCommitment{
			SourceURL:       "https://example.com/article",
			Start:           f.in(time.Hour),
			DurationMinutes: 30,
		})

		assert.Error(t, err)
		assert.Empty(t, f.calendar.Events)
		assert.Equal(t, 1, f.calendar.DeleteCalls)
	})

	t.Run("not authenticated performs no mutation", func(t *testing.T) {
		f := newServiceFixture(t)
		f.accounts.err = google.ErrNotAuthenticated

		_, err := f.service.ScheduleNew(f.ctx, NewCommitment{
			SourceURL:       "https://example.com/article",
			Start:           f.in(time.Hour),
			DurationMinutes: 30,
		})

		assert.ErrorIs(t, err, google.ErrNotAuthenticated)
		assert.Empty(t, f.repo.Commitments)
		assert.Equal(t, 0, f.calendar.CreateCalls)
	})

	t.Run("shared text with no url is rejected before any remote call", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.ScheduleNew(f.ctx, NewCommitment{
			SharedText:      "just some thoughts, no link",
			Start:           f.in(time.Hour),
			DurationMinutes: 30,
		})

		assert.ErrorIs(t, err, ErrNoSourceURL)
		assert.Equal(t, 0, f.calendar.CreateCalls)
	})

	t.Run("rejects past start and non-positive duration", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.ScheduleNew(f.ctx, NewCommitment{
			SourceURL:       "https://example.com/article",
			Start:           f.in(-time.Hour),
			DurationMinutes: 30,
		})
		assert.ErrorIs(t, err, ErrPastSchedule)

		_, err = f.service.ScheduleNew(f.ctx, NewCommitment{
			SourceURL:       "https://example.com/article",
			Start:           f.in(time.Hour),
			DurationMinutes: 0,
		})
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})
}

func TestReschedule(t *testing.T) {
	t.Run("updates remote event, local row and reminder", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		newStart := f.in(5 * time.Hour)

		updated, err := f.service.Reschedule(f.ctx, created.ID, newStart, 45)

		assert.NoError(t, err)
		assert.Equal(t, newStart, updated.ScheduledAt)
		assert.Equal(t, 45, updated.DurationMinutes)
		assert.Equal(t, newStart, f.calendar.Events[created.RemoteEventID].Start)
		assert.Equal(t, newStart, f.reminders.Pending[created.ID])
		assert.Equal(t, newStart, f.repo.Commitments[created.ID].ScheduledAt)
	})

	t.Run("a vanished remote event does not block the local update", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		f.calendar.UpdateErr = calendar.ErrRemoteNotFound
		newStart := f.in(5 * time.Hour)

		updated, err := f.service.Reschedule(f.ctx, created.ID, newStart, 30)

		assert.NoError(t, err)
		assert.Equal(t, newStart, updated.ScheduledAt)
		assert.Equal(t, newStart, f.repo.Commitments[created.ID].ScheduledAt)
	})

	t.Run("an unavailable remote blocks the local update", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		f.calendar.UpdateErr = calendar.ErrRemoteUnavailable

		_, err := f.service.Reschedule(f.ctx, created.ID, f.in(5*time.Hour), 30)

		assert.ErrorIs(t, err, calendar.ErrRemoteUnavailable)
		assert.Equal(t, created.ScheduledAt, f.repo.Commitments[created.ID].ScheduledAt)
	})

	t.Run("rejects commitments that are not upcoming", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.MarkCompleted(f.ctx, created.ID)
		assert.NoError(t, err)

		_, err = f.service.Reschedule(f.ctx, created.ID, f.in(5*time.Hour), 30)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejects a past reschedule time", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")

		_, err := f.service.Reschedule(f.ctx, created.ID, f.in(-time.Hour), 30)
		assert.ErrorIs(t, err, ErrPastSchedule)
	})
}

func TestMarkCompletedAndUndo(t *testing.T) {
	t.Run("complete sets completedAt and cancels the reminder", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")

		completed, err := f.service.MarkCompleted(f.ctx, created.ID)

		assert.NoError(t, err)
		assert.Equal(t, StateCompleted, completed.State)
		assert.NotNil(t, completed.CompletedAt)
		assert.Equal(t, f.clock.FixedNow, *completed.CompletedAt)
		assert.Empty(t, f.reminders.Pending)
		// the remote event stays as a record of the commitment
		assert.Equal(t, 0, f.calendar.DeleteCalls)
	})

	t.Run("undo returns an upcoming commitment with a fresh reminder", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.MarkCompleted(f.ctx, created.ID)
		assert.NoError(t, err)

		restored, err := f.service.UndoComplete(f.ctx, created.ID)

		assert.NoError(t, err)
		assert.Equal(t, StateUpcoming, restored.State)
		assert.Nil(t, restored.CompletedAt)
		assert.Equal(t, created.ScheduledAt, f.reminders.Pending[created.ID])
	})

	t.Run("undo of an overdue commitment schedules no reminder", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.MarkCompleted(f.ctx, created.ID)
		assert.NoError(t, err)

		// scheduled time passes while completed
		f.clock.SetNow(created.ScheduledAt.Add(time.Hour))
		restored, err := f.service.UndoComplete(f.ctx, created.ID)

		assert.NoError(t, err)
		assert.Equal(t, StateUpcoming, restored.State)
		assert.Empty(t, f.reminders.Pending)
		assert.True(t, restored.Overdue(f.clock.FixedNow))
	})

	t.Run("second undo fails with invalid state", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.MarkCompleted(f.ctx, created.ID)
		assert.NoError(t, err)
		_, err = f.service.UndoComplete(f.ctx, created.ID)
		assert.NoError(t, err)

		_, err = f.service.UndoComplete(f.ctx, created.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestArchiveRestoreDelete(t *testing.T) {
	t.Run("archive cancels the reminder but keeps the remote event", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")

		archived, err := f.service.Archive(f.ctx, created.ID)

		assert.NoError(t, err)
		assert.Equal(t, StateArchived, archived.State)
		assert.Empty(t, f.reminders.Pending)
		assert.Contains(t, f.calendar.Events, created.RemoteEventID)
	})

	t.Run("restore creates a fresh remote event for the new schedule", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.Archive(f.ctx, created.ID)
		assert.NoError(t, err)
		newStart := f.in(24 * time.Hour)

		restored, err := f.service.RestoreFromArchive(f.ctx, created.ID, newStart, 60)

		assert.NoError(t, err)
		assert.Equal(t, StateUpcoming, restored.State)
		assert.NotEqual(t, created.RemoteEventID, restored.RemoteEventID)
		assert.Equal(t, newStart, restored.ScheduledAt)
		assert.Equal(t, newStart, f.reminders.Pending[created.ID])
	})

	t.Run("restore failure on the remote side leaves the row archived", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.Archive(f.ctx, created.ID)
		assert.NoError(t, err)
		f.calendar.CreateErr = calendar.ErrRemoteUnavailable

		_, err = f.service.RestoreFromArchive(f.ctx, created.ID, f.in(24*time.Hour), 60)

		assert.ErrorIs(t, err, calendar.ErrRemoteUnavailable)
		assert.Equal(t, StateArchived, f.repo.Commitments[created.ID].State)
	})

	t.Run("delete forever removes the row and the remote event", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.Archive(f.ctx, created.ID)
		assert.NoError(t, err)

		err = f.service.DeleteForever(f.ctx, created.ID)

		assert.NoError(t, err)
		assert.Empty(t, f.repo.Commitments)
		assert.NotContains(t, f.calendar.Events, created.RemoteEventID)
	})

	t.Run("delete forever survives a remote failure", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.Archive(f.ctx, created.ID)
		assert.NoError(t, err)
		f.calendar.DeleteErr = calendar.ErrRemoteUnavailable

		err = f.service.DeleteForever(f.ctx, created.ID)

		assert.NoError(t, err)
		assert.Empty(t, f.repo.Commitments)
	})

	t.Run("delete forever requires the archived state", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")

		err := f.service.DeleteForever(f.ctx, created.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Len(t, f.repo.Commitments, 1)
	})
}

func TestScheduleAgain(t *testing.T) {
	t.Run("creates an independent row from a completed template", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")
		_, err := f.service.MarkCompleted(f.ctx, created.ID)
		assert.NoError(t, err)
		newStart := f.in(48 * time.Hour)

		again, err := f.service.ScheduleAgain(f.ctx, created.ID, newStart, 20)

		assert.NoError(t, err)
		assert.NotEqual(t, created.ID, again.ID)
		assert.Equal(t, created.Title, again.Title)
		assert.Equal(t, created.SourceURL, again.SourceURL)
		assert.Equal(t, StateUpcoming, again.State)
		// the source row is untouched
		assert.Equal(t, StateCompleted, f.repo.Commitments[created.ID].State)
		assert.Len(t, f.repo.Commitments, 2)
	})

	t.Run("rejects an upcoming source", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "Read the article")

		_, err := f.service.ScheduleAgain(f.ctx, created.ID, f.in(48*time.Hour), 20)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown source fails with not found", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.ScheduleAgain(f.ctx, "missing", f.in(48*time.Hour), 20)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAuthGateAcrossMutations(t *testing.T) {
	f := newServiceFixture(t)
	created := f.mustSchedule(t, "Read the article")
	f.accounts.err = google.ErrNotAuthenticated

	mutations := map[string]func() error{
		"reschedule": func() error {
			_, err := f.service.Reschedule(f.ctx, created.ID, f.in(5*time.Hour), 30)
			return err
		},
		"complete": func() error {
			_, err := f.service.MarkCompleted(f.ctx, created.ID)
			return err
		},
		"archive": func() error {
			_, err := f.service.Archive(f.ctx, created.ID)
			return err
		},
		"delete": func() error {
			return f.service.DeleteForever(f.ctx, created.ID)
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			err := mutate()
			assert.ErrorIs(t, err, google.ErrNotAuthenticated)
			stored := f.repo.Commitments[created.ID]
			assert.Equal(t, created, stored)
		})
	}
}

func TestGetSummary(t *testing.T) {
	t.Run("counts, streak and message", func(t *testing.T) {
		f := newServiceFixture(t)
		first := f.mustSchedule(t, "First")
		second := f.mustSchedule(t, "Second")
		f.mustSchedule(t, "Third")
		_, err := f.service.MarkCompleted(f.ctx, first.ID)
		assert.NoError(t, err)
		_, err = f.service.MarkCompleted(f.ctx, second.ID)
		assert.NoError(t, err)

		summary, err := f.service.GetSummary(f.ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1, summary.Upcoming)
		assert.Equal(t, 0, summary.Overdue)
		assert.Equal(t, 2, summary.CompletedLastWeek)
		assert.Equal(t, 10, summary.WeeklyGoal)
		assert.Equal(t, 1, summary.Streak)
		assert.Equal(t, "1 upcoming, 2 of 10 completed this week — 1 day streak", summary.Message)
	})

	t.Run("overdue commitments appear in counts and message", func(t *testing.T) {
		f := newServiceFixture(t)
		created := f.mustSchedule(t, "First")
		f.clock.SetNow(created.ScheduledAt.Add(time.Hour))

		summary, err := f.service.GetSummary(f.ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1, summary.Upcoming)
		assert.Equal(t, 1, summary.Overdue)
		assert.Equal(t, "1 upcoming, 0 of 10 completed this week (1 overdue)", summary.Message)
	})
}

func TestGet(t *testing.T) {
	f := newServiceFixture(t)
	created := f.mustSchedule(t, "Read the article")

	found, err := f.service.Get(f.ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, created, found)

	_, err = f.service.Get(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, user.ErrNoUser)
}

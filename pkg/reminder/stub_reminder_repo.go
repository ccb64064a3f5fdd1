package reminder

import (
	"context"
	"time"
)

type StubReminderRepository struct {
	Reminders map[string]Reminder
}

func NewStubReminderRepository() *StubReminderRepository {
	return &StubReminderRepository{Reminders: map[string]Reminder{}}
}

func (s *StubReminderRepository) Upsert(_ context.Context, reminder Reminder) error {
	s.Reminders[reminder.CommitmentID] = reminder
	return nil
}

func (s *StubReminderRepository) Delete(_ context.Context, commitmentID string) error {
	delete(s.Reminders, commitmentID)
	return nil
}

func (s *StubReminderRepository) Find(_ context.Context, commitmentID string) (*Reminder, error) {
	reminder, ok := s.Reminders[commitmentID]
	if !ok {
		return nil, nil
	}
	return &reminder, nil
}

func (s *StubReminderRepository) FindDue(_ context.Context, now time.Time) ([]Reminder, error) {
	var due []Reminder
	for _, reminder := range s.Reminders {
		if !reminder.TriggerAt.After(now) {
			due = append(due, reminder)
		}
	}
	return due, nil
}

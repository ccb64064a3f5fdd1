package calendar

import (
	"context"
	"fmt"
	"time"
)

// StubEvent is what StubSync records for every created or updated event.
type StubEvent struct {
	ID              string
	Title           string
	Description     string
	Start           time.Time
	DurationMinutes int
}

// StubSync is an in-memory Sync for tests. Failures are injected per call kind.
type StubSync struct {
	Events map[string]StubEvent

	CreateErr error
	UpdateErr error
	DeleteErr error

	CreateCalls int
	UpdateCalls int
	DeleteCalls int

	nextID int
}

func NewStubSync() *StubSync {
	return &StubSync{Events: map[string]StubEvent{}}
}

func (s *StubSync) CreateEvent(_ context.Context, title, description string, start time.Time, durationMinutes int) (string, error) {
	s.CreateCalls++
	if s.CreateErr != nil {
		return "", s.CreateErr
	}
	s.nextID++
	id := fmt.Sprintf("remote-%d", s.nextID)
	s.Events[id] = StubEvent{
		ID:              id,
		Title:           title,
		Description:     description,
		Start:           start,
		DurationMinutes: durationMinutes,
	}
	return id, nil
}

func (s *StubSync) UpdateEvent(_ context.Context, remoteEventID string, start time.Time, durationMinutes int) error {
	s.UpdateCalls++
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	event, ok := s.Events[remoteEventID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRemoteNotFound, remoteEventID)
	}
	event.Start = start
	event.DurationMinutes = durationMinutes
	s.Events[remoteEventID] = event
	return nil
}

func (s *StubSync) DeleteEvent(_ context.Context, remoteEventID string) error {
	s.DeleteCalls++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	// deleting an absent event is a success
	delete(s.Events, remoteEventID)
	return nil
}

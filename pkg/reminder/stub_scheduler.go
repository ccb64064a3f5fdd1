package reminder

import (
	"context"
	"time"
)

// StubScheduler records scheduling activity for service tests.
type StubScheduler struct {
	Pending       map[string]time.Time
	ScheduleCalls int
	CancelCalls   int
}

func NewStubScheduler() *StubScheduler {
	return &StubScheduler{Pending: map[string]time.Time{}}
}

func (s *StubScheduler) Schedule(_ context.Context, commitmentID, _, _ string, firesAt time.Time) error {
	s.ScheduleCalls++
	s.Pending[commitmentID] = firesAt
	return nil
}

func (s *StubScheduler) Cancel(_ context.Context, commitmentID string) error {
	s.CancelCalls++
	delete(s.Pending, commitmentID)
	return nil
}

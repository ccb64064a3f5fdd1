package commitment

import (
	"context"
	"sort"
	"time"
)

// StubRepository is an in-memory Repository for tests.
type StubRepository struct {
	Commitments map[string]Commitment
	InsertErr   error
}

func NewStubRepository() *StubRepository {
	return &StubRepository{Commitments: make(map[string]Commitment)}
}

func (r *StubRepository) Insert(_ context.Context, c Commitment) (Commitment, error) {
	if r.InsertErr != nil {
		return Commitment{}, r.InsertErr
	}
	r.Commitments[c.ID] = c
	return c, nil
}

func (r *StubRepository) FindByID(_ context.Context, userId int, id string) (*Commitment, error) {
	c, ok := r.Commitments[id]
	if !ok || c.UserID != userId {
		return nil, nil
	}
	return &c, nil
}

func (r *StubRepository) FindByState(_ context.Context, userId int, state State) ([]Commitment, error) {
	result := make([]Commitment, 0)
	for _, c := range r.Commitments {
		if c.UserID == userId && c.State == state {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		switch state {
		case StateCompleted:
			return result[i].CompletedAt.After(*result[j].CompletedAt)
		default:
			return result[i].ScheduledAt.Before(result[j].ScheduledAt)
		}
	})
	return result, nil
}

func (r *StubRepository) UpdateSchedule(_ context.Context, userId int, id string, start time.Time, durationMinutes int) (bool, error) {
	c, ok := r.Commitments[id]
	if !ok || c.UserID != userId || c.State != StateUpcoming {
		return false, nil
	}
	c.ScheduledAt = start
	c.DurationMinutes = durationMinutes
	r.Commitments[id] = c
	return true, nil
}

func (r *StubRepository) Transition(_ context.Context, userId int, id string, from, to State, completedAt *time.Time) (bool, error) {
	c, ok := r.Commitments[id]
	if !ok || c.UserID != userId || c.State != from {
		return false, nil
	}
	c.State = to
	c.CompletedAt = completedAt
	r.Commitments[id] = c
	return true, nil
}

func (r *StubRepository) Restore(_ context.Context, userId int, id string, remoteEventID string, start time.Time, durationMinutes int) (bool, error) {
	c, ok := r.Commitments[id]
	if !ok || c.UserID != userId || c.State != StateArchived {
		return false, nil
	}
	c.State = StateUpcoming
	c.RemoteEventID = remoteEventID
	c.ScheduledAt = start
	c.DurationMinutes = durationMinutes
	c.CompletedAt = nil
	r.Commitments[id] = c
	return true, nil
}

func (r *StubRepository) Delete(_ context.Context, userId int, id string) (bool, error) {
	c, ok := r.Commitments[id]
	if !ok || c.UserID != userId || c.State != StateArchived {
		return false, nil
	}
	delete(r.Commitments, id)
	return true, nil
}

func (r *StubRepository) CompletionTimes(_ context.Context, userId int) ([]time.Time, error) {
	var times []time.Time
	for _, c := range r.Commitments {
		if c.UserID == userId && c.State == StateCompleted && c.CompletedAt != nil {
			times = append(times, *c.CompletedAt)
		}
	}
	return times, nil
}

func (r *StubRepository) CountByState(_ context.Context, userId int, state State) (int, error) {
	count := 0
	for _, c := range r.Commitments {
		if c.UserID == userId && c.State == state {
			count++
		}
	}
	return count, nil
}

func (r *StubRepository) CountCompletedSince(_ context.Context, userId int, since time.Time) (int, error) {
	count := 0
	for _, c := range r.Commitments {
		if c.UserID == userId && c.State == StateCompleted && c.CompletedAt != nil && !c.CompletedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *StubRepository) CountOverdue(_ context.Context, userId int, now time.Time) (int, error) {
	count := 0
	for _, c := range r.Commitments {
		if c.UserID == userId && c.State == StateUpcoming && c.ScheduledAt.Before(now) {
			count++
		}
	}
	return count, nil
}

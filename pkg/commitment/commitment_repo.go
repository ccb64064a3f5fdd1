package commitment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Repository is the durable store of commitments: the single source of truth
// for what the caller displays. All mutations are atomic per row; state-guarded
// updates return false instead of writing when the row left the expected state.
type Repository interface {
	Insert(ctx context.Context, c Commitment) (Commitment, error)
	FindByID(ctx context.Context, userId int, id string) (*Commitment, error)
	// FindByState orders Upcoming by scheduled_at ascending and Completed by
	// completed_at descending.
	FindByState(ctx context.Context, userId int, state State) ([]Commitment, error)
	// UpdateSchedule moves an Upcoming commitment to a new start and duration.
	UpdateSchedule(ctx context.Context, userId int, id string, start time.Time, durationMinutes int) (bool, error)
	// Transition moves a commitment from one state to another, writing
	// completed_at as given (nil clears it).
	Transition(ctx context.Context, userId int, id string, from, to State, completedAt *time.Time) (bool, error)
	// Restore re-activates an Archived commitment under a fresh remote event id
	// and schedule.
	Restore(ctx context.Context, userId int, id string, remoteEventID string, start time.Time, durationMinutes int) (bool, error)
	// Delete physically removes an Archived commitment. Irreversible.
	Delete(ctx context.Context, userId int, id string) (bool, error)
	CompletionTimes(ctx context.Context, userId int) ([]time.Time, error)
	CountByState(ctx context.Context, userId int, state State) (int, error)
	CountCompletedSince(ctx context.Context, userId int, since time.Time) (int, error)
	CountOverdue(ctx context.Context, userId int, now time.Time) (int, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const commitmentColumns = `id, user_id, remote_event_id, title, source_url, image_url,
	scheduled_at, duration_minutes, state, completed_at, created_at`

func (r *RepositoryImpl) Insert(ctx context.Context, c Commitment) (Commitment, error) {
	query := `INSERT INTO commitment (id, user_id, remote_event_id, title, source_url, image_url,
		scheduled_at, duration_minutes, state, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var completedAtUnix *int64
	if c.CompletedAt != nil {
		unixValue := c.CompletedAt.Unix()
		completedAtUnix = &unixValue
	}
	var imageUrl *string
	if c.ImageURL != "" {
		imageUrl = &c.ImageURL
	}

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.UserID,
		nullableString(c.RemoteEventID),
		c.Title,
		c.SourceURL,
		imageUrl,
		c.ScheduledAt.Unix(),
		c.DurationMinutes,
		string(c.State),
		completedAtUnix,
		c.CreatedAt.Unix(),
	)
	if err != nil {
		err := fmt.Errorf("could not insert commitment: %w", err)
		log.Error(err)
		return Commitment{}, err
	}
	return c, nil
}

func (r *RepositoryImpl) FindByID(ctx context.Context, userId int, id string) (*Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitment WHERE user_id = ? AND id = ?`
	row := r.db.QueryRowContext(ctx, query, userId, id)

	c, err := scanCommitment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not read commitment %s: %w", id, err)
		log.Error(err)
		return nil, err
	}
	return &c, nil
}

func (r *RepositoryImpl) FindByState(ctx context.Context, userId int, state State) ([]Commitment, error) {
	order := "created_at DESC"
	switch state {
	case StateUpcoming:
		order = "scheduled_at ASC"
	case StateCompleted:
		order = "completed_at DESC"
	}
	query := `SELECT ` + commitmentColumns + ` FROM commitment WHERE user_id = ? AND state = ? ORDER BY ` + order

	rows, err := r.db.QueryContext(ctx, query, userId, string(state))
	if err != nil {
		err := fmt.Errorf("could not query commitments: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	commitments := make([]Commitment, 0)
	for rows.Next() {
		c, err := scanCommitment(rows.Scan)
		if err != nil {
			err := fmt.Errorf("could not scan commitment: %w", err)
			log.Error(err)
			return nil, err
		}
		commitments = append(commitments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commitments, nil
}

func (r *RepositoryImpl) UpdateSchedule(ctx context.Context, userId int, id string, start time.Time, durationMinutes int) (bool, error) {
	query := `UPDATE commitment SET scheduled_at = ?, duration_minutes = ?
		WHERE user_id = ? AND id = ? AND state = ?`
	result, err := r.db.ExecContext(ctx, query, start.Unix(), durationMinutes, userId, id, string(StateUpcoming))
	if err != nil {
		err := fmt.Errorf("could not reschedule commitment %s: %w", id, err)
		log.Error(err)
		return false, err
	}
	return affected(result)
}

func (r *RepositoryImpl) Transition(ctx context.Context, userId int, id string, from, to State, completedAt *time.Time) (bool, error) {
	var completedAtUnix *int64
	if completedAt != nil {
		unixValue := completedAt.Unix()
		completedAtUnix = &unixValue
	}

	query := `UPDATE commitment SET state = ?, completed_at = ?
		WHERE user_id = ? AND id = ? AND state = ?`
	result, err := r.db.ExecContext(ctx, query, string(to), completedAtUnix, userId, id, string(from))
	if err != nil {
		err := fmt.Errorf("could not transition commitment %s from %s to %s: %w", id, from, to, err)
		log.Error(err)
		return false, err
	}
	return affected(result)
}

func (r *RepositoryImpl) Restore(ctx context.Context, userId int, id string, remoteEventID string, start time.Time, durationMinutes int) (bool, error) {
	query := `UPDATE commitment
		SET state = ?, remote_event_id = ?, scheduled_at = ?, duration_minutes = ?, completed_at = NULL
		WHERE user_id = ? AND id = ? AND state = ?`
	result, err := r.db.ExecContext(ctx, query,
		string(StateUpcoming), remoteEventID, start.Unix(), durationMinutes, userId, id, string(StateArchived))
	if err != nil {
		err := fmt.Errorf("could not restore commitment %s: %w", id, err)
		log.Error(err)
		return false, err
	}
	return affected(result)
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, id string) (bool, error) {
	query := `DELETE FROM commitment WHERE user_id = ? AND id = ? AND state = ?`
	result, err := r.db.ExecContext(ctx, query, userId, id, string(StateArchived))
	if err != nil {
		err := fmt.Errorf("could not delete commitment %s: %w", id, err)
		log.Error(err)
		return false, err
	}
	return affected(result)
}

func (r *RepositoryImpl) CompletionTimes(ctx context.Context, userId int) ([]time.Time, error) {
	query := `SELECT completed_at FROM commitment
		WHERE user_id = ? AND state = ? AND completed_at IS NOT NULL`
	rows, err := r.db.QueryContext(ctx, query, userId, string(StateCompleted))
	if err != nil {
		err := fmt.Errorf("could not query completion times: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var completedAtUnix int64
		if err := rows.Scan(&completedAtUnix); err != nil {
			return nil, err
		}
		times = append(times, time.Unix(completedAtUnix, 0))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

func (r *RepositoryImpl) CountByState(ctx context.Context, userId int, state State) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM commitment WHERE user_id = ? AND state = ?`,
		userId, string(state)).Scan(&count)
	if err != nil {
		err := fmt.Errorf("could not count commitments: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func (r *RepositoryImpl) CountCompletedSince(ctx context.Context, userId int, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM commitment WHERE user_id = ? AND state = ? AND completed_at >= ?`,
		userId, string(StateCompleted), since.Unix()).Scan(&count)
	if err != nil {
		err := fmt.Errorf("could not count completions: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func (r *RepositoryImpl) CountOverdue(ctx context.Context, userId int, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM commitment WHERE user_id = ? AND state = ? AND scheduled_at < ?`,
		userId, string(StateUpcoming), now.Unix()).Scan(&count)
	if err != nil {
		err := fmt.Errorf("could not count overdue commitments: %w", err)
		log.Error(err)
		return 0, err
	}
	return count, nil
}

func scanCommitment(scan func(dest ...any) error) (Commitment, error) {
	var c Commitment
	var remoteEventId, imageUrl sql.NullString
	var scheduledAtUnix, createdAtUnix int64
	var completedAtUnix sql.NullInt64
	var state string

	err := scan(
		&c.ID,
		&c.UserID,
		&remoteEventId,
		&c.Title,
		&c.SourceURL,
		&imageUrl,
		&scheduledAtUnix,
		&c.DurationMinutes,
		&state,
		&completedAtUnix,
		&createdAtUnix,
	)
	if err != nil {
		return Commitment{}, err
	}

	c.RemoteEventID = remoteEventId.String
	c.ImageURL = imageUrl.String
	c.ScheduledAt = time.Unix(scheduledAtUnix, 0)
	c.CreatedAt = time.Unix(createdAtUnix, 0)
	c.State = State(state)
	if completedAtUnix.Valid {
		completedAt := time.Unix(completedAtUnix.Int64, 0)
		c.CompletedAt = &completedAt
	}
	return c, nil
}

func affected(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

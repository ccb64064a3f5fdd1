package reminder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// Upsert stores a pending reminder, replacing any existing one for the
	// same commitment.
	Upsert(ctx context.Context, reminder Reminder) error
	// Delete removes the pending reminder for a commitment. Deleting a
	// non-existent reminder is a no-op.
	Delete(ctx context.Context, commitmentID string) error
	// Find returns the pending reminder for a commitment, or nil.
	Find(ctx context.Context, commitmentID string) (*Reminder, error)
	// FindDue returns all reminders whose trigger time has passed.
	FindDue(ctx context.Context, now time.Time) ([]Reminder, error)
}

type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Upsert(ctx context.Context, reminder Reminder) error {
	query := `INSERT INTO pending_reminder (commitment_id, user_id, title, url, time_text, scheduled_at, trigger_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (commitment_id) DO UPDATE
		SET user_id = excluded.user_id, title = excluded.title, url = excluded.url,
			time_text = excluded.time_text, scheduled_at = excluded.scheduled_at, trigger_at = excluded.trigger_at`
	_, err := r.db.ExecContext(ctx, query,
		reminder.CommitmentID,
		reminder.UserID,
		reminder.Title,
		reminder.URL,
		reminder.TimeText,
		reminder.ScheduledAt.Unix(),
		reminder.TriggerAt.Unix(),
	)
	if err != nil {
		err := fmt.Errorf("could not store pending reminder: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, commitmentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM pending_reminder WHERE commitment_id = ?", commitmentID)
	if err != nil {
		err := fmt.Errorf("could not delete pending reminder: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) Find(ctx context.Context, commitmentID string) (*Reminder, error) {
	query := `SELECT commitment_id, user_id, title, url, time_text, scheduled_at, trigger_at
		FROM pending_reminder WHERE commitment_id = ?`
	row := r.db.QueryRowContext(ctx, query, commitmentID)

	reminder, err := scanReminder(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not read pending reminder: %w", err)
		log.Error(err)
		return nil, err
	}
	return &reminder, nil
}

func (r *RepositoryImpl) FindDue(ctx context.Context, now time.Time) ([]Reminder, error) {
	query := `SELECT commitment_id, user_id, title, url, time_text, scheduled_at, trigger_at
		FROM pending_reminder WHERE trigger_at <= ? ORDER BY trigger_at`
	rows, err := r.db.QueryContext(ctx, query, now.Unix())
	if err != nil {
		err := fmt.Errorf("could not query due reminders: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var due []Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows.Scan)
		if err != nil {
			err := fmt.Errorf("could not scan pending reminder: %w", err)
			log.Error(err)
			return nil, err
		}
		due = append(due, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return due, nil
}

func scanReminder(scan func(dest ...any) error) (Reminder, error) {
	var reminder Reminder
	var scheduledAtUnix, triggerAtUnix int64
	err := scan(
		&reminder.CommitmentID,
		&reminder.UserID,
		&reminder.Title,
		&reminder.URL,
		&reminder.TimeText,
		&scheduledAtUnix,
		&triggerAtUnix,
	)
	if err != nil {
		return Reminder{}, err
	}
	reminder.ScheduledAt = time.Unix(scheduledAtUnix, 0)
	reminder.TriggerAt = time.Unix(triggerAtUnix, 0)
	return reminder, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"remindline/internal/database"
	"remindline/internal/models"
)

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.Status == "" {
		reminder.Status = models.StatusPending
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (id, user_id, message, scheduled_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		reminder.ID, reminder.UserID, reminder.Message, reminder.ScheduledAt, reminder.Status,
	).Scan(&reminder.CreatedAt, &reminder.UpdatedAt)
}

// GetByID returns (nil, nil) when no such reminder exists.
func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, user_id, message, scheduled_at, status, sent_at, created_at, updated_at
		 FROM reminders WHERE id = $1`,
		id,
	).Scan(&reminder.ID, &reminder.UserID, &reminder.Message, &reminder.ScheduledAt,
		&reminder.Status, &reminder.SentAt, &reminder.CreatedAt, &reminder.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

// FindDue returns every pending reminder whose scheduled time has passed,
// across all users. Used by the fallback sweep.
func (r *ReminderRepository) FindDue(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, user_id, message, scheduled_at, status, sent_at, created_at, updated_at
		 FROM reminders WHERE status = $1 AND scheduled_at <= $2
		 ORDER BY scheduled_at ASC`,
		models.StatusPending, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

// FindPendingUpcoming returns a user's pending reminders that have not yet
// come due, ordered ascending by scheduled time. This ordering is what list
// numbering and ordinal disambiguation are defined against.
func (r *ReminderRepository) FindPendingUpcoming(ctx context.Context, userID string, now time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, user_id, message, scheduled_at, status, sent_at, created_at, updated_at
		 FROM reminders WHERE user_id = $1 AND status = $2 AND scheduled_at >= $3
		 ORDER BY scheduled_at ASC`,
		userID, models.StatusPending, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

// MarkSent transitions pending -> sent and stamps sent_at. Returns false if
// the reminder was no longer pending, which means the other delivery path
// (callback vs sweep) got there first.
func (r *ReminderRepository) MarkSent(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET status = $1, sent_at = NOW(), updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		models.StatusSent, id, models.StatusPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCancelled transitions pending -> cancelled. Returns false if the
// reminder was no longer pending.
func (r *ReminderRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		models.StatusCancelled, id, models.StatusPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Reschedule moves a pending reminder to a new time, optionally replacing
// its message. Returns false if the reminder was no longer pending.
func (r *ReminderRepository) Reschedule(ctx context.Context, id string, newAt time.Time, newMessage *string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET scheduled_at = $1, message = COALESCE($2, message), updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		newAt, newMessage, id, models.StatusPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanReminders(rows pgx.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := rows.Scan(&reminder.ID, &reminder.UserID, &reminder.Message, &reminder.ScheduledAt,
			&reminder.Status, &reminder.SentAt, &reminder.CreatedAt, &reminder.UpdatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

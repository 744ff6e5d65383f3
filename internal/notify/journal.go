package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresJournal stores attempts in the delivery_attempts table.
type PostgresJournal struct {
	db *sqlx.DB
}

// NewPostgresJournal wraps db.
func NewPostgresJournal(db *sqlx.DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

const insertAttempt = `
INSERT INTO delivery_attempts (notification_id, chat_id, status, class, detail, reported, attempted_at)
VALUES (:notification_id, :chat_id, :status, :class, :detail, :reported, :attempted_at)`

func (j *PostgresJournal) Record(ctx context.Context, a Attempt) error {
	if _, err := j.db.NamedExecContext(ctx, insertAttempt, a); err != nil {
		return fmt.Errorf("journal: insert attempt %s: %w", a.NotificationID, err)
	}
	return nil
}

// StatusCount is one row of Summary.
type StatusCount struct {
	Status string `db:"status"`
	Class  string `db:"class"`
	Total  int    `db:"total"`
}

// Summary counts attempts since the given time by status and class.
func (j *PostgresJournal) Summary(ctx context.Context, since time.Time) ([]StatusCount, error) {
	var rows []StatusCount
	err := j.db.SelectContext(ctx, &rows, `
SELECT status, class, COUNT(*) AS total
FROM delivery_attempts
WHERE attempted_at >= $1
GROUP BY status, class
ORDER BY status, class`, since)
	if err != nil {
		return nil, fmt.Errorf("journal: summary: %w", err)
	}
	return rows, nil
}

// Attempts returns the attempts recorded for one notification, oldest first.
func (j *PostgresJournal) Attempts(ctx context.Context, notificationID string) ([]Attempt, error) {
	var rows []Attempt
	err := j.db.SelectContext(ctx, &rows, `
SELECT notification_id, chat_id, status, class, detail, reported, attempted_at
FROM delivery_attempts
WHERE notification_id = $1
ORDER BY attempted_at`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("journal: attempts %s: %w", notificationID, err)
	}
	return rows, nil
}

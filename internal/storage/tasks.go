package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"telegram-focus-bot/internal/models"
)

const taskColumns = `id, user_id, description, priority, completed, remind_at,
        reminder_sent, follow_up_sent, follow_up_time, created_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var (
		t                               models.Task
		remindAt, followUp, completedAt sql.NullInt64
		created                         int64
		completed, reminderSent, fuSent int
	)
	err := s.Scan(&t.ID, &t.UserID, &t.Description, &t.Priority, &completed, &remindAt,
		&reminderSent, &fuSent, &followUp, &created, &completedAt)
	if err != nil {
		return nil, err
	}
	t.Completed = completed != 0
	t.ReminderSent = reminderSent != 0
	t.FollowUpSent = fuSent != 0
	t.RemindAt = fromNull(remindAt)
	t.FollowUpTime = fromNull(followUp)
	t.CompletedAt = fromNull(completedAt)
	t.CreatedAt = time.Unix(created, 0).UTC()
	return &t, nil
}

func (d *DB) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := d.QueryContext(ctx, d.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}
	return res, rows.Err()
}

// ---------- tasks -----------------------------------------------------------

func (d *DB) CreateTask(ctx context.Context, userID int64, description string, now time.Time) (*models.Task, error) {
	var id int64
	err := d.QueryRowContext(ctx, d.q(`
        INSERT INTO tasks (user_id, description, created_at)
        VALUES (?,?,?) RETURNING id`), userID, description, unix(now)).Scan(&id)
	if err != nil {
		return nil, err
	}
	return d.GetTask(ctx, id)
}

// GetTask returns nil, nil when the task does not exist.
func (d *DB) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(d.QueryRowContext(ctx, d.q(`SELECT `+taskColumns+` FROM tasks WHERE id=?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// GetUserTask is GetTask restricted to tasks owned by userID.
func (d *DB) GetUserTask(ctx context.Context, userID, id int64) (*models.Task, error) {
	t, err := scanTask(d.QueryRowContext(ctx,
		d.q(`SELECT `+taskColumns+` FROM tasks WHERE id=? AND user_id=?`), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (d *DB) ListActiveTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	return d.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
        WHERE user_id=? AND completed=0
        ORDER BY priority DESC, id ASC`, userID)
}

// ---------- reminders -------------------------------------------------------

// FindDueFirstReminders returns open tasks whose remind_at has passed and whose
// first reminder has not gone out.
func (d *DB) FindDueFirstReminders(ctx context.Context, now time.Time) ([]models.Task, error) {
	return d.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
        WHERE remind_at IS NOT NULL AND remind_at <= ?
          AND reminder_sent=0 AND completed=0
        ORDER BY remind_at, id`, unix(now))
}

// FindDueFollowUps returns open tasks whose follow-up time has passed.
func (d *DB) FindDueFollowUps(ctx context.Context, now time.Time) ([]models.Task, error) {
	return d.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
        WHERE follow_up_time IS NOT NULL AND follow_up_time <= ?
          AND follow_up_sent=0 AND reminder_sent=1 AND completed=0
        ORDER BY follow_up_time, id`, unix(now))
}

func (d *DB) MarkReminderSent(ctx context.Context, taskID int64, followUp time.Time) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, d.q(`
            UPDATE tasks SET reminder_sent=1, follow_up_time=?
            WHERE id=?`), unix(followUp), taskID)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

func (d *DB) MarkFollowUpSent(ctx context.Context, taskID int64) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, d.q(`
            UPDATE tasks SET follow_up_sent=1
            WHERE id=? AND reminder_sent=1`), taskID)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

// SetReminder schedules (or with nil clears) the reminder of a user's task and
// resets the reminder cycle.
func (d *DB) SetReminder(ctx context.Context, userID, taskID int64, at *time.Time) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, d.q(`
            UPDATE tasks SET remind_at=?, reminder_sent=0, follow_up_sent=0, follow_up_time=NULL
            WHERE id=? AND user_id=?`), nullUnix(at), taskID, userID)
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

// MarkTaskDone completes a user's task. It reports false when the task was already completed.
func (d *DB) MarkTaskDone(ctx context.Context, userID, taskID int64, now time.Time) (bool, error) {
	changed := false
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var completed int
		err := tx.QueryRowContext(ctx, d.q(`SELECT completed FROM tasks WHERE id=? AND user_id=?`),
			taskID, userID).Scan(&completed)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if completed != 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, d.q(`
            UPDATE tasks SET completed=1, completed_at=?, reminder_sent=1, follow_up_sent=1
            WHERE id=?`), unix(now), taskID)
		changed = err == nil
		return err
	})
	return changed, err
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"telegram-focus-bot/internal/models"
)

// ---------- pomodoro sessions -----------------------------------------------

func (d *DB) CreateSession(ctx context.Context, userID int64, taskID *int64, minutes int,
	typ models.SessionType, start time.Time) (int64, error) {
	var task sql.NullInt64
	if taskID != nil {
		task = sql.NullInt64{Int64: *taskID, Valid: true}
	}

	var id int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, d.q(`
            INSERT INTO pomodoro_sessions (user_id, task_id, start_time, duration_minutes, session_type, status)
            VALUES (?,?,?,?,?,?) RETURNING id`),
			userID, task, unix(start), minutes, string(typ), string(models.StatusStarted)).Scan(&id)
	})
	return id, err
}

// MarkSession closes a started session. Closed sessions are terminal: updating
// one again returns ErrNotFound.
func (d *DB) MarkSession(ctx context.Context, id int64, status models.SessionStatus, end time.Time) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, d.q(`
            UPDATE pomodoro_sessions SET status=?, end_time=?
            WHERE id=? AND status=?`), string(status), unix(end), id, string(models.StatusStarted))
		if err != nil {
			return err
		}
		return mustAffect(res)
	})
}

// GetSession loads one session row, nil when missing. Nothing in the bot reads
// sessions back; this is the inspection hook used by tests.
func (d *DB) GetSession(ctx context.Context, id int64) (*models.PomodoroSession, error) {
	var (
		s         models.PomodoroSession
		task, end sql.NullInt64
		start     int64
		typ, stat string
	)
	err := d.QueryRowContext(ctx, d.q(`
        SELECT id, user_id, task_id, start_time, end_time, duration_minutes, session_type, status
        FROM pomodoro_sessions WHERE id=?`), id,
	).Scan(&s.ID, &s.UserID, &task, &start, &end, &s.DurationMinutes, &typ, &stat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if task.Valid {
		s.TaskID = &task.Int64
	}
	s.StartTime = time.Unix(start, 0).UTC()
	s.EndTime = fromNull(end)
	s.Type = models.SessionType(typ)
	s.Status = models.SessionStatus(stat)
	return &s, nil
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/tasktracker-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Notifier pushes a message to every live connection of one user.
type Notifier interface {
	NotifyUser(userID, action string, payload interface{})
}

// TimeLogServiceProvider defines the interface for the timer and its history.
type TimeLogServiceProvider interface {
	StartTimer(ctx context.Context, userID, taskID string) (models.TimeLog, error)
	StopTimer(ctx context.Context, userID, taskID string) (models.TimeLog, error)
	GetTimeLogs(ctx context.Context, userID, taskID string) ([]models.TimeLog, error)
	GetRunningTimer(ctx context.Context, userID, taskID string) (models.TimeLog, error)
	StopStaleTimers(ctx context.Context, maxAge time.Duration) ([]models.TimeLog, error)
}

// TimeLogService starts and stops task timers. The storage layer guarantees
// at most one open log per (user, task).
type TimeLogService struct {
	db           *sql.DB
	eventService EventServiceProvider
	notifier     Notifier
	now          Clock
}

// NewTimeLogService creates a new TimeLogService. notifier may be nil.
func NewTimeLogService(db *sql.DB, eventService EventServiceProvider, notifier Notifier) *TimeLogService {
	return &TimeLogService{
		db:           db,
		eventService: eventService,
		notifier:     notifier,
		now:          time.Now,
	}
}

// WithClock replaces the time source.
func (s *TimeLogService) WithClock(c Clock) *TimeLogService {
	s.now = c
	return s
}

const timeLogSelect = `
	SELECT l.id, l.user_id, l.task_id, t.title, l.start_time, l.end_time, l.duration
	FROM time_logs l JOIN tasks t ON t.id = l.task_id`

// StartTimer opens a new time log for one of the user's tasks. The ownership
// check and the insert are a single statement, and the partial unique index
// on open logs rejects a second running timer even under concurrent calls.
func (s *TimeLogService) StartTimer(ctx context.Context, userID, taskID string) (models.TimeLog, error) {
	if taskID == "" {
		return models.TimeLog{}, fmt.Errorf("taskId is required: %w", ErrValidation)
	}

	entry := models.TimeLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		TaskID:    taskID,
		StartTime: s.now().UTC(),
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO time_logs (id, user_id, task_id, start_time)
		SELECT ?, user_id, id, ? FROM tasks WHERE id = ? AND user_id = ?`,
		entry.ID, formatTime(entry.StartTime), taskID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.TimeLog{}, ErrTimerRunning
		}
		return models.TimeLog{}, fmt.Errorf("inserting time log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.TimeLog{}, fmt.Errorf("inserting time log: %w", err)
	}
	if n == 0 {
		return models.TimeLog{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	created, err := s.getByID(ctx, entry.ID)
	if err != nil {
		return models.TimeLog{}, err
	}

	log.Info().Str("user_id", userID).Str("task_id", taskID).Str("time_log_id", created.ID).Msg("Timer started")
	s.recordEvent(ctx, created, "timer.start", "info", fmt.Sprintf("Timer started for '%s'.", taskTitle(created)))
	s.notify(created, "timer_started")
	return created, nil
}

// StopTimer closes the user's running timer for taskID and stores its
// duration in whole minutes.
func (s *TimeLogService) StopTimer(ctx context.Context, userID, taskID string) (models.TimeLog, error) {
	var stopped models.TimeLog
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, timeLogSelect+`
			WHERE l.user_id = ? AND l.task_id = ? AND l.end_time IS NULL`, userID, taskID)
		open, err := scanTimeLog(row)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNoRunningTimer
			}
			return err
		}
		stopped, err = s.closeLog(ctx, tx, open)
		return err
	})
	if err != nil {
		return models.TimeLog{}, err
	}

	log.Info().Str("user_id", userID).Str("task_id", taskID).Str("time_log_id", stopped.ID).Int("duration", *stopped.Duration).Msg("Timer stopped")
	s.recordEvent(ctx, stopped, "timer.stop", "info",
		fmt.Sprintf("Timer stopped for '%s' after %d min.", taskTitle(stopped), *stopped.Duration))
	s.notify(stopped, "timer_stopped")
	return stopped, nil
}

// GetTimeLogs lists the user's time logs, newest start first. An empty
// taskID lists logs across all of the user's tasks.
func (s *TimeLogService) GetTimeLogs(ctx context.Context, userID, taskID string) ([]models.TimeLog, error) {
	rows, err := s.db.QueryContext(ctx, timeLogSelect+`
		WHERE l.user_id = ? AND (? = '' OR l.task_id = ?)
		ORDER BY l.start_time DESC, l.id DESC`, userID, taskID, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing time logs: %w", err)
	}
	defer rows.Close()
	return scanTimeLogs(rows)
}

// GetRunningTimer returns the user's open log for taskID.
func (s *TimeLogService) GetRunningTimer(ctx context.Context, userID, taskID string) (models.TimeLog, error) {
	row := s.db.QueryRowContext(ctx, timeLogSelect+`
		WHERE l.user_id = ? AND l.task_id = ? AND l.end_time IS NULL`, userID, taskID)
	entry, err := scanTimeLog(row)
	if errors.Is(err, ErrNotFound) {
		return models.TimeLog{}, ErrNoRunningTimer
	}
	if err != nil {
		return models.TimeLog{}, fmt.Errorf("running timer for task %s: %w", taskID, err)
	}
	return entry, nil
}

// StopStaleTimers closes every open log, for any user, that started more
// than maxAge ago. Logs stopped concurrently by their owner are skipped.
func (s *TimeLogService) StopStaleTimers(ctx context.Context, maxAge time.Duration) ([]models.TimeLog, error) {
	cutoff := s.now().Add(-maxAge)
	rows, err := s.db.QueryContext(ctx, timeLogSelect+`
		WHERE l.end_time IS NULL AND l.start_time < ?
		ORDER BY l.start_time`, formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("listing stale timers: %w", err)
	}
	stale, err := scanTimeLogs(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	stopped := make([]models.TimeLog, 0, len(stale))
	for _, open := range stale {
		var closed models.TimeLog
		err := withTx(ctx, s.db, func(tx *sql.Tx) error {
			var err error
			closed, err = s.closeLog(ctx, tx, open)
			return err
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return stopped, err
		}

		log.Warn().Str("user_id", closed.UserID).Str("task_id", closed.TaskID).Str("time_log_id", closed.ID).Msg("Stale timer stopped automatically")
		s.recordEvent(ctx, closed, "timer.autostop", "warn",
			fmt.Sprintf("Timer for '%s' ran longer than %s and was stopped automatically.", taskTitle(closed), maxAge))
		s.notify(closed, "timer_stopped")
		stopped = append(stopped, closed)
	}
	return stopped, nil
}

// closeLog sets end time and duration on an open log. It fails with
// ErrNotFound when the log was closed in the meantime.
func (s *TimeLogService) closeLog(ctx context.Context, tx *sql.Tx, open models.TimeLog) (models.TimeLog, error) {
	end := s.now().UTC()
	duration := durationMinutes(open.StartTime, end)

	res, err := tx.ExecContext(ctx,
		"UPDATE time_logs SET end_time = ?, duration = ? WHERE id = ? AND end_time IS NULL",
		formatTime(end), duration, open.ID)
	if err != nil {
		return models.TimeLog{}, fmt.Errorf("stopping time log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.TimeLog{}, fmt.Errorf("stopping time log: %w", err)
	}
	if n == 0 {
		return models.TimeLog{}, ErrNoRunningTimer
	}

	open.EndTime = &end
	open.Duration = &duration
	return open, nil
}

// durationMinutes rounds the elapsed time to the nearest minute, halves up.
func durationMinutes(start, end time.Time) int {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	return int(math.Floor(elapsed.Minutes() + 0.5))
}

func (s *TimeLogService) getByID(ctx context.Context, id string) (models.TimeLog, error) {
	row := s.db.QueryRowContext(ctx, timeLogSelect+" WHERE l.id = ?", id)
	entry, err := scanTimeLog(row)
	if err != nil {
		return models.TimeLog{}, fmt.Errorf("time log %s: %w", id, err)
	}
	return entry, nil
}

func (s *TimeLogService) recordEvent(ctx context.Context, entry models.TimeLog, eventType, level, message string) {
	if s.eventService == nil {
		return
	}
	taskID := entry.TaskID
	if err := s.eventService.CreateEvent(ctx, entry.UserID, eventType, level, message, &taskID); err != nil {
		log.Warn().Err(err).Str("user_id", entry.UserID).Str("type", eventType).Msg("Failed to record event")
	}
}

func (s *TimeLogService) notify(entry models.TimeLog, action string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyUser(entry.UserID, action, entry)
}

func taskTitle(entry models.TimeLog) string {
	if entry.Task == nil {
		return entry.TaskID
	}
	return entry.Task.Title
}

func scanTimeLog(row rowScanner) (models.TimeLog, error) {
	var entry models.TimeLog
	var title sql.NullString
	var startTime string
	var endTime sql.NullString
	var duration sql.NullInt64

	err := row.Scan(&entry.ID, &entry.UserID, &entry.TaskID, &title, &startTime, &endTime, &duration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TimeLog{}, ErrNotFound
		}
		return models.TimeLog{}, fmt.Errorf("scanning time log: %w", err)
	}

	entry.Task = &models.TaskRef{ID: entry.TaskID, Title: title.String}
	if entry.StartTime, err = parseTime(startTime); err != nil {
		return models.TimeLog{}, err
	}
	if entry.EndTime, err = parseNullableTime(endTime); err != nil {
		return models.TimeLog{}, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		entry.Duration = &d
	}
	return entry, nil
}

func scanTimeLogs(rows *sql.Rows) ([]models.TimeLog, error) {
	entries := make([]models.TimeLog, 0)
	for rows.Next() {
		entry, err := scanTimeLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating time logs: %w", err)
	}
	return entries, nil
}

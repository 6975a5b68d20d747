package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/tasktracker-be/internal/models"
	"github.com/rs/zerolog/log"
)

// TaskServiceProvider defines the interface for task services. Every method
// is scoped to the owning user.
type TaskServiceProvider interface {
	CreateTask(ctx context.Context, userID string, input models.TaskInput) (models.Task, error)
	GetTasks(ctx context.Context, userID string) ([]models.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (models.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
}

// TaskService provides business logic for task management.
type TaskService struct {
	db           *sql.DB
	eventService EventServiceProvider
	now          Clock
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB, eventService EventServiceProvider) *TaskService {
	return &TaskService{db: db, eventService: eventService, now: time.Now}
}

// WithClock replaces the time source.
func (s *TaskService) WithClock(c Clock) *TaskService {
	s.now = c
	return s
}

const taskColumns = "id, user_id, title, description, status, created_at, updated_at"

// CreateTask validates the input and stores a new task for userID.
func (s *TaskService) CreateTask(ctx context.Context, userID string, input models.TaskInput) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, fmt.Errorf("title is required: %w", ErrValidation)
	}
	status := input.Status
	if status == "" {
		status = models.TaskStatusPending
	}
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}

	now := s.now().UTC()
	task := models.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: input.Description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description, string(task.Status),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt))
	if err != nil {
		return models.Task{}, fmt.Errorf("inserting task: %w", err)
	}

	s.recordEvent(ctx, userID, "task.create", "info", fmt.Sprintf("Task '%s' created.", task.Title), task.ID)
	return task, nil
}

// GetTasks lists the user's tasks, newest first.
func (s *TaskService) GetTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns one of the user's tasks. Tasks owned by someone else are
// reported as not found.
func (s *TaskService) GetTask(ctx context.Context, userID, taskID string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
	task, err := scanTask(row)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w", taskID, err)
	}
	return task, nil
}

// UpdateTask applies a partial update to one of the user's tasks.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, patch models.TaskPatch) (models.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return models.Task{}, fmt.Errorf("title cannot be empty: %w", ErrValidation)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Task{}, fmt.Errorf("unknown status %q: %w", *patch.Status, ErrValidation)
	}

	var task models.Task
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
		existing, err := scanTask(row)
		if err != nil {
			return fmt.Errorf("task %s: %w", taskID, err)
		}

		if patch.Title != nil {
			existing.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			existing.Description = *patch.Description
		}
		if patch.Status != nil {
			existing.Status = *patch.Status
		}
		existing.UpdatedAt = s.now().UTC()

		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET title = ?, description = ?, status = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			existing.Title, existing.Description, string(existing.Status), formatTime(existing.UpdatedAt),
			taskID, userID)
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("updating task: %w", err)
		} else if n == 0 {
			return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		task = existing
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}

	s.recordEvent(ctx, userID, "task.update", "info", fmt.Sprintf("Task '%s' updated.", task.Title), task.ID)
	return task, nil
}

// DeleteTask removes one of the user's tasks together with its time logs.
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	s.recordEvent(ctx, userID, "task.delete", "warn", "Task was deleted.", taskID)
	return nil
}

func (s *TaskService) recordEvent(ctx context.Context, userID, eventType, level, message, taskID string) {
	if s.eventService == nil {
		return
	}
	if err := s.eventService.CreateEvent(ctx, userID, eventType, level, message, &taskID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("task_id", taskID).Str("type", eventType).Msg("Failed to record event")
	}
}

func scanTask(row rowScanner) (models.Task, error) {
	var task models.Task
	var status, createdAt, updatedAt string
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, fmt.Errorf("scanning task: %w", err)
	}
	task.Status = models.TaskStatus(status)
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

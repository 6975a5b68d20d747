package services

import (
	"context"
	"time"

	"github.com/isdelr/tasktracker-be/internal/models"
)

// SummaryServiceProvider defines the interface for daily summaries.
type SummaryServiceProvider interface {
	Daily(ctx context.Context, userID string, day time.Time, loc *time.Location) (models.DailySummary, error)
}

// SummaryService builds daily summaries from the user's tasks and time logs.
type SummaryService struct {
	taskService    TaskServiceProvider
	timeLogService TimeLogServiceProvider
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(taskService TaskServiceProvider, timeLogService TimeLogServiceProvider) *SummaryService {
	return &SummaryService{taskService: taskService, timeLogService: timeLogService}
}

// Daily summarizes the calendar day containing day, in loc.
func (s *SummaryService) Daily(ctx context.Context, userID string, day time.Time, loc *time.Location) (models.DailySummary, error) {
	tasks, err := s.taskService.GetTasks(ctx, userID)
	if err != nil {
		return models.DailySummary{}, err
	}
	logs, err := s.timeLogService.GetTimeLogs(ctx, userID, "")
	if err != nil {
		return models.DailySummary{}, err
	}

	start, end := DayWindow(day, loc)
	return Summarize(tasks, logs, start, end), nil
}

// DayWindow returns the half-open interval [local midnight, next local
// midnight) containing day. Days that are 23 or 25 hours long across DST
// changes are handled by calendar arithmetic.
func DayWindow(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc)
	return start, end
}

// Summarize folds tasks created and logs started inside [start, end). Running
// logs contribute zero minutes.
func Summarize(tasks []models.Task, logs []models.TimeLog, start, end time.Time) models.DailySummary {
	summary := models.DailySummary{
		Date:        start.Format("2006-01-02"),
		WindowStart: start,
		WindowEnd:   end,
		Tasks:       make([]models.Task, 0),
		TimeLogs:    make([]models.TimeLog, 0),
	}

	for _, task := range tasks {
		if !inWindow(task.CreatedAt, start, end) {
			continue
		}
		summary.Tasks = append(summary.Tasks, task)
		switch task.Status {
		case models.TaskStatusCompleted:
			summary.CompletedTasks++
		case models.TaskStatusPending:
			summary.PendingTasks++
		case models.TaskStatusInProgress:
			summary.InProgressTasks++
		}
	}
	summary.TotalTasks = len(summary.Tasks)

	for _, entry := range logs {
		if !inWindow(entry.StartTime, start, end) {
			continue
		}
		summary.TimeLogs = append(summary.TimeLogs, entry)
		if entry.Duration != nil {
			summary.TotalMinutes += *entry.Duration
		}
		if entry.Running() {
			summary.RunningTimers++
		}
	}
	summary.TimeLogCount = len(summary.TimeLogs)

	return summary
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

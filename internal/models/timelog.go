package models

import "time"

// TimeLog is a single start/stop record for a task. A log with a nil EndTime
// is the task's running timer.
type TimeLog struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	TaskID    string     `json:"taskId"`
	Task      *TaskRef   `json:"task,omitempty"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Duration  *int       `json:"duration"` // minutes, set once on stop
}

// TaskRef is the slice of a task embedded in time log listings.
type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Running reports whether the log has not been stopped yet.
func (l TimeLog) Running() bool {
	return l.EndTime == nil
}

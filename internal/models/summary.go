package models

import "time"

// DailySummary aggregates one user's activity inside a day window.
type DailySummary struct {
	Date            string    `json:"date"`
	WindowStart     time.Time `json:"windowStart"`
	WindowEnd       time.Time `json:"windowEnd"`
	TotalMinutes    int       `json:"totalTime"`
	TotalTasks      int       `json:"totalTasks"`
	CompletedTasks  int       `json:"completedTasks"`
	PendingTasks    int       `json:"pendingTasks"`
	InProgressTasks int       `json:"inProgressTasks"`
	TimeLogCount    int       `json:"timeLogCount"`
	RunningTimers   int       `json:"runningTimers"`
	Tasks           []Task    `json:"tasks"`
	TimeLogs        []TimeLog `json:"timeLogs"`
}

package services

import (
	"errors"
	"fmt"
)

// Domain errors returned by the services. Callers match them with errors.Is;
// messages are wrapped with context by the service that returns them.
var (
	ErrNotFound           = errors.New("not found")
	ErrTimerRunning       = errors.New("timer already running for this task")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrNoRunningTimer is returned when stopping a timer that is not running.
// It matches ErrNotFound.
var ErrNoRunningTimer = fmt.Errorf("no running timer found for this task: %w", ErrNotFound)

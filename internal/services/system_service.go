package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/isdelr/tasktracker-be/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemServiceProvider defines the interface for service health reporting.
type SystemServiceProvider interface {
	Health(ctx context.Context) models.HealthStatus
}

// SystemService reports process and database health.
type SystemService struct {
	db        *sql.DB
	startedAt time.Time
}

// NewSystemService creates a new SystemService.
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db, startedAt: time.Now()}
}

// Health pings the database and samples host memory usage. Status is "ok"
// unless the database is unreachable.
func (s *SystemService) Health(ctx context.Context) models.HealthStatus {
	status := models.HealthStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Database:      "ok",
	}

	if err := s.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database ping failed")
		status.Status = "degraded"
		status.Database = "unreachable"
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Health check: could not read memory stats")
	} else {
		status.MemoryUsedPercent = vm.UsedPercent
	}
	return status
}

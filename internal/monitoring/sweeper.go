package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/tasktracker-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const sweepTimeout = time.Minute

// Sweeper periodically stops timers that have been running for longer than
// maxAge, so a forgotten timer cannot inflate the daily totals forever.
type Sweeper struct {
	timeLogs services.TimeLogServiceProvider
	maxAge   time.Duration
	cron     *cron.Cron
}

// NewSweeper creates a sweeper that runs on the given standard cron
// schedule.
func NewSweeper(timeLogs services.TimeLogServiceProvider, schedule string, maxAge time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		timeLogs: timeLogs,
		maxAge:   maxAge,
		cron:     cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Sweeper) Start() {
	log.Info().Dur("max_age", s.maxAge).Msg("Starting stale timer sweeper")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stale timer sweeper stopped")
}

// Sweep stops stale timers once and returns how many were stopped.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	stopped, err := s.timeLogs.StopStaleTimers(ctx, s.maxAge)
	if err != nil {
		log.Error().Err(err).Int("stopped", len(stopped)).Msg("Sweeper: failed to stop stale timers")
		return len(stopped)
	}
	if len(stopped) > 0 {
		log.Info().Int("stopped", len(stopped)).Msg("Sweeper: stopped stale timers")
	}
	return len(stopped)
}

// Package scheduler runs retention sweeps on a recurring cadence in the
// background. The service is an explicit object owned by main and passed to
// whoever needs it; there is no process-wide singleton.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"job-collector/internal/logger"
	"job-collector/internal/retention"
	"job-collector/internal/telemetry"
)

// Task names accepted by RunManual and used in Status.
const (
	TaskExpiration = "expiration"
	TaskSize       = "size"
	TaskCombined   = "combined"
)

// ErrUnknownTask reports a task name outside the set above. Callers use it to
// tell a bad request apart from a sweep that actually failed.
var ErrUnknownTask = errors.New("unknown task")

// Cadence configures when each task fires.
type Cadence struct {
	DailyTime      string        // "HH:MM", expiration sweep
	WeeklyDay      string        // "sunday", "monday", ... combined sweep
	WeeklyTime     string        // "HH:MM"
	SizeSweepEvery time.Duration // size sweep interval
}

// DefaultCadence matches the documented schedule: daily expiration at 02:00,
// weekly combined maintenance Sunday 03:00, size check every 6 hours.
func DefaultCadence() Cadence {
	return Cadence{
		DailyTime:      "02:00",
		WeeklyDay:      "sunday",
		WeeklyTime:     "03:00",
		SizeSweepEvery: 6 * time.Hour,
	}
}

// Status reports whether the loop is running and when each task fires next.
type Status struct {
	Running  bool                 `json:"running"`
	NextRuns map[string]time.Time `json:"next_runs,omitempty"`
}

// Service owns the cron loop driving the retention engine.
type Service struct {
	engine  *retention.Engine
	policy  retention.Policy
	cadence Cadence
	log     zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	running bool
}

// New builds a stopped service.
func New(engine *retention.Engine, policy retention.Policy, cadence Cadence) *Service {
	return &Service{
		engine:  engine,
		policy:  policy,
		cadence: cadence,
		log:     logger.Get("scheduler"),
	}
}

// Start registers the three recurring tasks and starts the loop. Starting a
// running service is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	daily, err := clockToCronSpec(s.cadence.DailyTime, "")
	if err != nil {
		return fmt.Errorf("daily sweep time: %w", err)
	}
	weekly, err := clockToCronSpec(s.cadence.WeeklyTime, s.cadence.WeeklyDay)
	if err != nil {
		return fmt.Errorf("weekly sweep time: %w", err)
	}
	sizeSpec := fmt.Sprintf("@every %s", s.cadence.SizeSweepEvery)

	c := cron.New()
	entries := make(map[string]cron.EntryID, 3)
	specs := []struct {
		task string
		spec string
	}{
		{TaskExpiration, daily},
		{TaskCombined, weekly},
		{TaskSize, sizeSpec},
	}
	for _, sp := range specs {
		task := sp.task
		id, err := c.AddFunc(sp.spec, func() { s.runTask(task) })
		if err != nil {
			return fmt.Errorf("schedule %s (%s): %w", sp.task, sp.spec, err)
		}
		entries[sp.task] = id
	}

	c.Start()
	s.cron = c
	s.entries = entries
	s.running = true
	s.log.Info().Str("daily", daily).Str("weekly", weekly).Str("size", sizeSpec).
		Msg("scheduler started")
	return nil
}

// Stop halts the loop. A running sweep finishes; nothing fires afterwards.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil
	s.entries = nil
	s.running = false
	s.log.Info().Msg("scheduler stopped")
}

// Status reports the loop state and the next fire time per task.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.running}
	if !s.running {
		return st
	}
	st.NextRuns = make(map[string]time.Time, len(s.entries))
	for task, id := range s.entries {
		st.NextRuns[task] = s.cron.Entry(id).Next
	}
	return st
}

// RunManual triggers one task immediately, outside the schedule, using the
// same engine calls the recurring loop uses.
func (s *Service) RunManual(ctx context.Context, task string, dryRun bool) (retention.MaintenanceReport, error) {
	var report retention.MaintenanceReport
	switch task {
	case TaskExpiration:
		sweep, err := s.engine.ExpirationSweep(ctx, s.policy, dryRun)
		report.Expiration = sweep
		return report, err
	case TaskSize:
		sweep, err := s.engine.SizeSweep(ctx, s.policy, dryRun)
		report.Size = sweep
		return report, err
	case TaskCombined:
		return s.engine.Auto(ctx, s.policy, dryRun)
	default:
		return report, fmt.Errorf("%w %q", ErrUnknownTask, task)
	}
}

// runTask is the scheduled entry point. Errors and panics are contained
// here so one bad run never stops the loop.
func (s *Service) runTask(task string) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.SweepFailures.WithLabelValues(task).Inc()
			s.log.Error().Str("task", task).Interface("panic", r).Msg("scheduled sweep panicked")
		}
	}()

	s.log.Info().Str("task", task).Msg("scheduled sweep starting")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := s.RunManual(ctx, task, false); err != nil {
		telemetry.SweepFailures.WithLabelValues(task).Inc()
		s.log.Error().Str("task", task).Err(err).Msg("scheduled sweep failed")
		return
	}
	s.log.Info().Str("task", task).Msg("scheduled sweep finished")
}

var weekdays = map[string]int{
	"sunday":    0,
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
}

// clockToCronSpec converts "HH:MM" (plus an optional weekday) into a cron
// spec. An empty day yields a daily spec.
func clockToCronSpec(clock, day string) (string, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("expected HH:MM, got %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("bad hour in %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("bad minute in %q", clock)
	}
	if day == "" {
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
	dow, ok := weekdays[strings.ToLower(day)]
	if !ok {
		return "", fmt.Errorf("unknown weekday %q", day)
	}
	return fmt.Sprintf("%d %d * * %d", minute, hour, dow), nil
}

// Package collector fans a search out across every configured job board,
// merges what came back, and collapses duplicates across boards.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"job-collector/internal/filter"
	"job-collector/internal/identity"
	"job-collector/internal/logger"
	"job-collector/internal/models"
	"job-collector/internal/source"
	"job-collector/internal/telemetry"
)

// ErrAllSourcesFailed reports a run in which no board returned anything.
// Individual board failures are not errors; only a fully empty
// successful-source set is.
var ErrAllSourcesFailed = errors.New("all sources failed")

// SourceFailure records one board's failure, isolated from the rest of the run.
type SourceFailure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// Outcome is the merged result of one collection pass.
type Outcome struct {
	RunID             string          `json:"run_id"`
	Jobs              []models.Job    `json:"jobs"`
	PerSource         map[string]int  `json:"per_source"`
	SuccessfulSources []string        `json:"successful_sources"`
	Failures          []SourceFailure `json:"failures,omitempty"`
	FilteredOut       int             `json:"filtered_out"`
	Elapsed           time.Duration   `json:"elapsed"`
}

// Collector runs one adapter per board concurrently. Each unit is internally
// sequential (it pages against its own board); the barrier waits for every
// unit to resolve or time out before anything is merged.
type Collector struct {
	registry        *source.Registry
	filter          filter.Filter
	sourceTimeout   time.Duration
	overallDeadline time.Duration // 0 means no overall deadline
	log             zerolog.Logger
}

// New builds a collector. f may be nil for an unfiltered pipeline.
func New(registry *source.Registry, f filter.Filter, sourceTimeout, overallDeadline time.Duration) *Collector {
	if f == nil {
		f = filter.Passthrough{}
	}
	return &Collector{
		registry:        registry,
		filter:          f,
		sourceTimeout:   sourceTimeout,
		overallDeadline: overallDeadline,
		log:             logger.Get("collector"),
	}
}

type unitResult struct {
	jobs []models.Job
	err  error
}

// Collect runs every adapter concurrently and merges the survivors. A board
// that errors or exceeds its timeout becomes a Failure entry and contributes
// nothing; if the overall deadline fires first, units already resolved are
// still merged and the rest are abandoned as failures. Abandoned units hold
// no reference to the store, so a late result is simply dropped.
func (c *Collector) Collect(ctx context.Context, query, location string, maxPages int) (Outcome, error) {
	adapters := c.registry.Adapters()
	outcome := Outcome{
		RunID:     uuid.New().String(),
		PerSource: make(map[string]int, len(adapters)),
	}
	start := time.Now()
	telemetry.CollectionRuns.Inc()
	c.log.Info().Str("run_id", outcome.RunID).Str("query", query).
		Str("location", location).Int("sources", len(adapters)).Msg("collection started")

	results := make([]unitResult, len(adapters))
	doneCh := make(chan int, len(adapters))
	for i, adapter := range adapters {
		go func(i int, adapter source.Adapter) {
			unitCtx, cancel := context.WithTimeout(ctx, c.sourceTimeout)
			defer cancel()
			jobs, err := adapter.Search(unitCtx, query, location, maxPages)
			if err == nil && unitCtx.Err() != nil {
				err = unitCtx.Err()
			}
			results[i] = unitResult{jobs: jobs, err: err}
			doneCh <- i
		}(i, adapter)
	}

	var overall <-chan time.Time
	if c.overallDeadline > 0 {
		timer := time.NewTimer(c.overallDeadline)
		defer timer.Stop()
		overall = timer.C
	}

	resolved := make([]bool, len(adapters))
	remaining := len(adapters)
	abandonCause := "deadline exceeded"
wait:
	for remaining > 0 {
		select {
		case i := <-doneCh:
			resolved[i] = true
			remaining--
		case <-overall:
			c.log.Warn().Str("run_id", outcome.RunID).Int("abandoned", remaining).
				Msg("overall deadline reached, abandoning remaining sources")
			break wait
		case <-ctx.Done():
			abandonCause = ctx.Err().Error()
			c.log.Warn().Str("run_id", outcome.RunID).Int("abandoned", remaining).
				Msg("collection cancelled, abandoning remaining sources")
			break wait
		}
	}

	// Merge in registry order so the first-seen tie-break follows the
	// configured source priority, not arrival time.
	seen := make(map[string]struct{})
	var merged []models.Job
	for i, adapter := range adapters {
		name := adapter.Name()
		if !resolved[i] {
			outcome.Failures = append(outcome.Failures, SourceFailure{Source: name, Reason: "abandoned: " + abandonCause})
			telemetry.SourceFailures.WithLabelValues(name).Inc()
			continue
		}
		if results[i].err != nil {
			outcome.Failures = append(outcome.Failures, SourceFailure{Source: name, Reason: results[i].err.Error()})
			telemetry.SourceFailures.WithLabelValues(name).Inc()
			c.log.Warn().Str("run_id", outcome.RunID).Str("source", name).
				Err(results[i].err).Msg("source failed")
			continue
		}
		outcome.SuccessfulSources = append(outcome.SuccessfulSources, name)
		telemetry.JobsCollected.WithLabelValues(name).Add(float64(len(results[i].jobs)))
		for _, job := range results[i].jobs {
			key := identity.ContentKey(job)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, job)
			outcome.PerSource[name]++
		}
	}

	if len(outcome.SuccessfulSources) == 0 {
		outcome.Elapsed = time.Since(start)
		return outcome, ErrAllSourcesFailed
	}

	filtered := c.filter.Apply(merged)
	outcome.FilteredOut = len(merged) - len(filtered)
	outcome.Jobs = filtered
	outcome.Elapsed = time.Since(start)

	c.log.Info().Str("run_id", outcome.RunID).Int("jobs", len(outcome.Jobs)).
		Int("filtered_out", outcome.FilteredOut).Int("failed_sources", len(outcome.Failures)).
		Dur("elapsed", outcome.Elapsed).Msg("collection complete")
	return outcome, nil
}

// Package retention keeps the store bounded in age and size: it classifies
// records into age buckets, expires the old ones, and trims the store back
// under its record ceiling, deleting in batches.
package retention

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"job-collector/internal/logger"
	"job-collector/internal/store"
	"job-collector/internal/telemetry"
)

// Policy is the retention configuration. It is plain configuration, mutable
// between runs.
type Policy struct {
	ExpirationDays int `json:"expiration_days"`
	MaxRecords     int `json:"max_records"`
	BatchSize      int `json:"batch_size"`
}

// DefaultPolicy mirrors the documented store defaults.
func DefaultPolicy() Policy {
	return Policy{ExpirationDays: 30, MaxRecords: 10000, BatchSize: 100}
}

// SweepReport is the outcome of one expiration or size sweep. In dry-run
// mode Candidates is filled and nothing is deleted.
type SweepReport struct {
	Task       string   `json:"task"`
	DryRun     bool     `json:"dry_run"`
	Candidates int      `json:"candidates"`
	Deleted    int      `json:"deleted"`
	Failed     int      `json:"failed"`
	FailedKeys []string `json:"failed_keys,omitempty"`
	Sample     []string `json:"sample,omitempty"`
}

// MaintenanceReport combines both sweeps plus a post-run snapshot.
type MaintenanceReport struct {
	Expiration SweepReport  `json:"expiration"`
	Size       SweepReport  `json:"size"`
	Stats      *store.Stats `json:"stats,omitempty"`
}

// Archiver receives the records a sweep is about to delete. Failures are
// logged and never block the deletion.
type Archiver interface {
	Archive(ctx context.Context, task string, records []store.RecordAge) error
}

// Engine performs retention sweeps against a store.
type Engine struct {
	store    store.Store
	archiver Archiver // may be nil
	now      func() time.Time
	log      zerolog.Logger
}

// New builds an engine. archiver may be nil.
func New(st store.Store, archiver Archiver) *Engine {
	return &Engine{store: st, archiver: archiver, now: time.Now, log: logger.Get("retention")}
}

// ExpirationSweep removes every record whose reference-date age exceeds
// policy.ExpirationDays. In dry-run mode it only reports the candidates.
func (e *Engine) ExpirationSweep(ctx context.Context, policy Policy, dryRun bool) (SweepReport, error) {
	report := SweepReport{Task: "expiration", DryRun: dryRun}

	ages, err := e.store.ListAges(ctx)
	if err != nil {
		return report, fmt.Errorf("list record ages: %w", err)
	}

	cutoff := e.now().AddDate(0, 0, -policy.ExpirationDays)
	var candidates []store.RecordAge
	for _, a := range ages {
		if a.Reference.Before(cutoff) {
			candidates = append(candidates, a)
		}
	}
	report.Candidates = len(candidates)
	report.Sample = sampleTitles(candidates, 10)

	e.log.Info().Int("candidates", len(candidates)).Int("total", len(ages)).
		Int("expiration_days", policy.ExpirationDays).Bool("dry_run", dryRun).
		Msg("expiration sweep selected candidates")

	if dryRun || len(candidates) == 0 {
		return report, nil
	}
	e.deleteCandidates(ctx, policy, candidates, &report)
	return report, nil
}

// SizeSweep trims the store back to policy.MaxRecords by deleting exactly
// the oldest excess records, oldest reference date first, ties broken by key
// so the selection is deterministic.
func (e *Engine) SizeSweep(ctx context.Context, policy Policy, dryRun bool) (SweepReport, error) {
	report := SweepReport{Task: "size", DryRun: dryRun}

	ages, err := e.store.ListAges(ctx)
	if err != nil {
		return report, fmt.Errorf("list record ages: %w", err)
	}
	if len(ages) <= policy.MaxRecords {
		e.log.Info().Int("total", len(ages)).Int("max_records", policy.MaxRecords).
			Msg("store within size bound, nothing to do")
		return report, nil
	}

	excess := len(ages) - policy.MaxRecords
	sort.Slice(ages, func(i, j int) bool {
		if ages[i].Reference.Equal(ages[j].Reference) {
			return ages[i].Key < ages[j].Key
		}
		return ages[i].Reference.Before(ages[j].Reference)
	})
	candidates := ages[:excess]
	report.Candidates = len(candidates)
	report.Sample = sampleTitles(candidates, 10)

	e.log.Info().Int("total", len(ages)).Int("max_records", policy.MaxRecords).
		Int("excess", excess).Bool("dry_run", dryRun).Msg("size sweep selected oldest records")

	if dryRun {
		return report, nil
	}
	e.deleteCandidates(ctx, policy, candidates, &report)
	return report, nil
}

// Auto runs the expiration sweep, then the size sweep, and appends a stats
// snapshot when it actually deleted.
func (e *Engine) Auto(ctx context.Context, policy Policy, dryRun bool) (MaintenanceReport, error) {
	var report MaintenanceReport

	expiration, err := e.ExpirationSweep(ctx, policy, dryRun)
	if err != nil {
		return report, fmt.Errorf("expiration sweep: %w", err)
	}
	report.Expiration = expiration

	size, err := e.SizeSweep(ctx, policy, dryRun)
	if err != nil {
		return report, fmt.Errorf("size sweep: %w", err)
	}
	report.Size = size

	if !dryRun {
		stats, err := e.store.Stats(ctx)
		if err != nil {
			return report, fmt.Errorf("post-run stats: %w", err)
		}
		report.Stats = &stats
		telemetry.StoreSizeGauge.Set(float64(stats.Total))
	}
	return report, nil
}

func (e *Engine) deleteCandidates(ctx context.Context, policy Policy, candidates []store.RecordAge, report *SweepReport) {
	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, report.Task, candidates); err != nil {
			e.log.Error().Err(err).Str("task", report.Task).Msg("archive before delete failed")
		}
	}

	keys := make([]string, len(candidates))
	for i, c := range candidates {
		keys[i] = c.Key
	}
	result, err := e.store.DeleteMany(ctx, keys, policy.BatchSize)
	if err != nil {
		// DeleteMany aggregates batch failures itself; an error here means
		// the sweep could not run at all.
		report.Failed = len(keys)
		e.log.Error().Err(err).Str("task", report.Task).Msg("delete failed")
		return
	}
	report.Deleted = result.Deleted
	report.Failed = len(result.FailedKeys)
	report.FailedKeys = result.FailedKeys
	telemetry.JobsDeleted.Add(float64(result.Deleted))
	telemetry.DeleteFailures.Add(float64(len(result.FailedKeys)))

	e.log.Info().Str("task", report.Task).Int("deleted", result.Deleted).
		Int("failed", len(result.FailedKeys)).Msg("sweep finished")
}

func sampleTitles(candidates []store.RecordAge, n int) []string {
	if len(candidates) < n {
		n = len(candidates)
	}
	out := make([]string, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, fmt.Sprintf("%s at %s (%s)", c.Title, c.Company, c.Source))
	}
	return out
}

package collector

import (
	"context"

	"job-collector/internal/store"
	"job-collector/internal/telemetry"
)

// IngestStats tallies one pass of writing a collection outcome to the store.
// Duplicates are the idempotence contract at work, not failures.
type IngestStats struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Ingest upserts every collected job. A failed upsert is counted and logged;
// it never aborts the rest of the batch.
func (c *Collector) Ingest(ctx context.Context, st store.Store, outcome Outcome) IngestStats {
	var stats IngestStats
	for _, job := range outcome.Jobs {
		result, err := st.Upsert(ctx, job)
		if err != nil {
			stats.Failed++
			c.log.Error().Str("run_id", outcome.RunID).Str("title", job.Title).
				Str("company", job.Company).Err(err).Msg("upsert failed")
			continue
		}
		switch result {
		case store.Inserted:
			stats.Inserted++
			telemetry.JobsInserted.Inc()
		case store.AlreadyPresent:
			stats.Duplicates++
			telemetry.DuplicateUpserts.Inc()
		}
	}
	c.log.Info().Str("run_id", outcome.RunID).Int("inserted", stats.Inserted).
		Int("duplicates", stats.Duplicates).Int("failed", stats.Failed).Msg("ingest complete")
	return stats
}

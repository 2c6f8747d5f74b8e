// Package store persists normalised job postings keyed by identity and keeps
// the search index in step with every write and delete.
package store

import (
	"context"
	"errors"
	"time"

	"job-collector/internal/index"
	"job-collector/internal/models"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("record not found")

// UpsertOutcome says what an Upsert call actually did.
type UpsertOutcome string

const (
	Inserted       UpsertOutcome = "inserted"
	AlreadyPresent UpsertOutcome = "already_present"
)

// DeleteResult tallies a batched delete. FailedKeys lists keys whose batch
// errored; they are reported, not retried.
type DeleteResult struct {
	Deleted    int      `json:"deleted"`
	FailedKeys []string `json:"failed_keys,omitempty"`
}

// Stats is a point-in-time snapshot of the store.
type Stats struct {
	Total     int                        `json:"total"`
	PerBucket map[models.AgeBucket]int   `json:"per_bucket"`
	PerSource map[string]int             `json:"per_source"`
}

// RecordAge is the slice of a record the retention engine needs: its key and
// reference date, plus enough context to make deletion reports readable.
type RecordAge struct {
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	Reference time.Time `json:"reference"`
}

// Store is the persistence contract shared by the Postgres and in-memory
// backends. Upsert is idempotent: a second write with the same identity is a
// no-op reported as AlreadyPresent, and the expensive index document is only
// built on a real insert.
type Store interface {
	Upsert(ctx context.Context, job models.Job) (UpsertOutcome, error)
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (models.Job, error)
	DeleteMany(ctx context.Context, keys []string, batchSize int) (DeleteResult, error)
	Stats(ctx context.Context) (Stats, error)
	ListAges(ctx context.Context) ([]RecordAge, error)
	Search(ctx context.Context, query string, n int, filters index.Filters) ([]index.Hit, error)
	Close()
}

func newStats() Stats {
	s := Stats{
		PerBucket: make(map[models.AgeBucket]int, 5),
		PerSource: make(map[string]int),
	}
	for _, b := range models.AgeBuckets() {
		s.PerBucket[b] = 0
	}
	return s
}

// chunkKeys splits keys into batches of at most size.
func chunkKeys(keys []string, size int) [][]string {
	if size <= 0 {
		size = 100
	}
	var out [][]string
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		out = append(out, keys[start:end])
	}
	return out
}

func indexDocument(key string, job models.Job) index.Document {
	var salaryMin float64
	if job.SalaryMin != nil {
		salaryMin = *job.SalaryMin
	}
	return index.Document{
		Key:        key,
		Text:       job.EmbeddingText(),
		Source:     job.Source,
		Location:   job.Location,
		JobType:    string(job.JobType),
		RemoteType: string(job.RemoteType),
		SalaryMin:  salaryMin,
		IndexedAt:  time.Now().UTC(),
	}
}

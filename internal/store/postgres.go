package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"job-collector/internal/identity"
	"job-collector/internal/index"
	"job-collector/internal/logger"
	"job-collector/internal/models"
)

// Postgres persists records in a pgx pool and mirrors them into the index.
type Postgres struct {
	pool  *pgxpool.Pool
	idx   index.Index
	locks keyLock
	log   zerolog.Logger
}

// NewPostgres creates a pooled connection and runs migrations.
func NewPostgres(ctx context.Context, dsn string, idx index.Index) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Postgres{pool: pool, idx: idx, log: logger.Get("store")}
	if err := s.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Upsert writes the record if its identity is not yet present. Duplicates
// are a normal outcome: nothing is written, nothing is re-indexed.
func (s *Postgres) Upsert(ctx context.Context, job models.Job) (UpsertOutcome, error) {
	key := identity.Key(job)
	unlock := s.locks.lock(key)
	defer unlock()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO records (key, title, company, location, description, url, source,
			salary_min, salary_max, salary_text, job_type, remote_type,
			posted_at, scraped_at, requirements, skills, experience_level,
			education, native_id, external_apply)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (key) DO NOTHING
	`, key, job.Title, job.Company, job.Location, job.Description, job.URL, job.Source,
		job.SalaryMin, job.SalaryMax, job.SalaryText, string(job.JobType), string(job.RemoteType),
		job.PostedAt, job.ScrapedAt, job.Requirements, job.Skills, job.ExperienceLevel,
		job.Education, job.NativeID, job.ExternalApply)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.log.Debug().Str("key", key).Str("title", job.Title).Msg("duplicate upsert skipped")
		return AlreadyPresent, nil
	}

	// The index entry is created under the same key lock. If indexing fails
	// the row is rolled back so a record is never stored but unsearchable.
	if err := s.idx.Add(ctx, indexDocument(key, job)); err != nil {
		if _, derr := s.pool.Exec(ctx, `DELETE FROM records WHERE key = $1`, key); derr != nil {
			return "", fmt.Errorf("index add failed (%v) and compensating delete failed: %w", err, derr)
		}
		return "", fmt.Errorf("index record: %w", err)
	}
	return Inserted, nil
}

func (s *Postgres) Exists(ctx context.Context, key string) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM records WHERE key = $1)`, key).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return found, nil
}

func (s *Postgres) Get(ctx context.Context, key string) (models.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT title, company, location, description, url, source,
		       salary_min, salary_max, salary_text, job_type, remote_type,
		       posted_at, scraped_at, requirements, skills, experience_level,
		       education, native_id, external_apply
		FROM records WHERE key = $1
	`, key)

	var job models.Job
	var salaryMin, salaryMax pgtype.Float8
	var postedAt pgtype.Timestamptz
	var jobType, remoteType string
	err := row.Scan(&job.Title, &job.Company, &job.Location, &job.Description, &job.URL, &job.Source,
		&salaryMin, &salaryMax, &job.SalaryText, &jobType, &remoteType,
		&postedAt, &job.ScrapedAt, &job.Requirements, &job.Skills, &job.ExperienceLevel,
		&job.Education, &job.NativeID, &job.ExternalApply)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Job{}, ErrNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("scan record: %w", err)
	}
	job.JobType = models.JobType(jobType)
	job.RemoteType = models.RemoteType(remoteType)
	if salaryMin.Valid {
		job.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		job.SalaryMax = &salaryMax.Float64
	}
	if postedAt.Valid {
		t := postedAt.Time
		job.PostedAt = &t
	}
	return job, nil
}

// DeleteMany removes keys in batches. A failing batch is logged and counted,
// then the sweep moves on to the next batch. Rows and index entries for a
// batch are removed under the batch's key locks, so a concurrent upsert of
// one of these identities lands either entirely before or entirely after.
func (s *Postgres) DeleteMany(ctx context.Context, keys []string, batchSize int) (DeleteResult, error) {
	var res DeleteResult
	for _, batch := range chunkKeys(keys, batchSize) {
		deleted, err := s.deleteBatch(ctx, batch)
		if err != nil {
			s.log.Error().Err(err).Int("batch_size", len(batch)).Msg("delete batch failed")
			res.FailedKeys = append(res.FailedKeys, batch...)
			continue
		}
		res.Deleted += deleted
	}
	return res, nil
}

// deleteBatch removes index entries first, then the rows. A record must never
// stay searchable after its row is gone, so if the index remove fails the
// whole batch is left in place and reported as failed.
func (s *Postgres) deleteBatch(ctx context.Context, batch []string) (int, error) {
	unlock := s.locks.lockKeys(batch)
	defer unlock()

	if err := s.idx.Remove(ctx, batch); err != nil {
		return 0, fmt.Errorf("remove from index: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE key = ANY($1)`, batch)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Stats counts records in total, per source, and per age bucket. Bucket
// classification happens here rather than in SQL so it shares the exact
// reference-date fallback the retention engine uses.
func (s *Postgres) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT source, posted_at, scraped_at FROM records`)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := newStats()
	now := time.Now()
	for rows.Next() {
		var source string
		var postedAt pgtype.Timestamptz
		var scrapedAt time.Time
		if err := rows.Scan(&source, &postedAt, &scrapedAt); err != nil {
			return Stats{}, fmt.Errorf("scan stats row: %w", err)
		}
		ref := scrapedAt
		if postedAt.Valid {
			ref = postedAt.Time
		}
		stats.Total++
		stats.PerSource[source]++
		stats.PerBucket[models.ClassifyAge(ref, now)]++
	}
	return stats, rows.Err()
}

func (s *Postgres) ListAges(ctx context.Context) ([]RecordAge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, source, title, company, COALESCE(posted_at, scraped_at)
		FROM records
	`)
	if err != nil {
		return nil, fmt.Errorf("query ages: %w", err)
	}
	defer rows.Close()

	var ages []RecordAge
	for rows.Next() {
		var a RecordAge
		if err := rows.Scan(&a.Key, &a.Source, &a.Title, &a.Company, &a.Reference); err != nil {
			return nil, fmt.Errorf("scan age row: %w", err)
		}
		ages = append(ages, a)
	}
	return ages, rows.Err()
}

// Search is delegated entirely to the index collaborator.
func (s *Postgres) Search(ctx context.Context, query string, n int, filters index.Filters) ([]index.Hit, error) {
	return s.idx.Search(ctx, query, n, filters)
}

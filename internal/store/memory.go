package store

import (
	"context"
	"sync"
	"time"

	"job-collector/internal/identity"
	"job-collector/internal/index"
	"job-collector/internal/models"
)

// Memory is a map-backed Store used by tests and STORE_DRIVER=memory runs.
// It applies the same per-key locking and index mirroring as the Postgres
// backend, so the concurrency contract can be exercised without a database.
type Memory struct {
	mu      sync.RWMutex
	records map[string]models.Job
	idx     index.Index
	locks   keyLock
}

// NewMemory builds an empty in-memory store over the given index.
func NewMemory(idx index.Index) *Memory {
	return &Memory{records: make(map[string]models.Job), idx: idx}
}

func (s *Memory) Close() {}

func (s *Memory) Upsert(ctx context.Context, job models.Job) (UpsertOutcome, error) {
	key := identity.Key(job)
	unlock := s.locks.lock(key)
	defer unlock()

	s.mu.RLock()
	_, exists := s.records[key]
	s.mu.RUnlock()
	if exists {
		return AlreadyPresent, nil
	}

	if err := s.idx.Add(ctx, indexDocument(key, job)); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.records[key] = job
	s.mu.Unlock()
	return Inserted, nil
}

func (s *Memory) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok, nil
}

func (s *Memory) Get(_ context.Context, key string) (models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.records[key]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return job, nil
}

func (s *Memory) DeleteMany(ctx context.Context, keys []string, batchSize int) (DeleteResult, error) {
	var res DeleteResult
	for _, batch := range chunkKeys(keys, batchSize) {
		unlock := s.locks.lockKeys(batch)
		if err := s.idx.Remove(ctx, batch); err != nil {
			res.FailedKeys = append(res.FailedKeys, batch...)
			unlock()
			continue
		}
		s.mu.Lock()
		for _, k := range batch {
			if _, ok := s.records[k]; ok {
				delete(s.records, k)
				res.Deleted++
			}
		}
		s.mu.Unlock()
		unlock()
	}
	return res, nil
}

func (s *Memory) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := newStats()
	now := time.Now()
	for _, job := range s.records {
		stats.Total++
		stats.PerSource[job.Source]++
		stats.PerBucket[models.ClassifyAge(job.ReferenceDate(), now)]++
	}
	return stats, nil
}

func (s *Memory) ListAges(_ context.Context) ([]RecordAge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ages := make([]RecordAge, 0, len(s.records))
	for key, job := range s.records {
		ages = append(ages, RecordAge{
			Key:       key,
			Source:    job.Source,
			Title:     job.Title,
			Company:   job.Company,
			Reference: job.ReferenceDate(),
		})
	}
	return ages, nil
}

func (s *Memory) Search(ctx context.Context, query string, n int, filters index.Filters) ([]index.Hit, error) {
	return s.idx.Search(ctx, query, n, filters)
}

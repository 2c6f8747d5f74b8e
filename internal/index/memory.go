package index

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Index used by tests and memory-store runs.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory builds an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

func (m *Memory) Add(_ context.Context, doc Document) error {
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.Key] = doc
	return nil
}

func (m *Memory) Remove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.docs, k)
	}
	return nil
}

func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[key]
	return ok, nil
}

func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func (m *Memory) Search(_ context.Context, query string, n int, filters Filters) ([]Hit, error) {
	if n <= 0 {
		n = 10
	}
	terms := tokenize(query)
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.docs))
	for key, doc := range m.docs {
		if !matchFilters(doc, filters) {
			continue
		}
		score := overlapScore(terms, doc.Text)
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{Key: key, Score: score, Text: doc.Text})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Key < hits[j].Key
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

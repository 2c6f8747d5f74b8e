package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const docsKey = "index:docs"

// Redis keeps indexed documents in a redis hash keyed by record identity.
// Search is a brute-force token-overlap scan; good enough for the record
// counts the retention policy bounds the store to.
type Redis struct {
	client *redis.Client
}

// NewRedis builds an index on the given client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Add stores or replaces the document for a key.
func (r *Redis) Add(ctx context.Context, doc Document) error {
	if doc.Key == "" {
		return fmt.Errorf("index add: empty key")
	}
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return r.client.HSet(ctx, docsKey, doc.Key, raw).Err()
}

// Remove deletes the documents for the given keys. Missing keys are not an
// error; the caller only needs them gone.
func (r *Redis) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.HDel(ctx, docsKey, keys...).Err()
}

// Has reports whether a document exists for the key.
func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	return r.client.HExists(ctx, docsKey, key).Result()
}

// Count returns the number of indexed documents.
func (r *Redis) Count(ctx context.Context) (int64, error) {
	return r.client.HLen(ctx, docsKey).Result()
}

// Search scans all documents and ranks them by query-token overlap.
func (r *Redis) Search(ctx context.Context, query string, n int, filters Filters) ([]Hit, error) {
	if n <= 0 {
		n = 10
	}
	raw, err := r.client.HGetAll(ctx, docsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	terms := tokenize(query)
	hits := make([]Hit, 0, len(raw))
	for key, blob := range raw {
		var doc Document
		if err := json.Unmarshal([]byte(blob), &doc); err != nil {
			continue
		}
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

func matchFilters(doc Document, f Filters) bool {
	if f.Location != "" && !strings.Contains(strings.ToLower(doc.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.JobType != "" && doc.JobType != f.JobType {
		return false
	}
	if f.RemoteType != "" && doc.RemoteType != f.RemoteType {
		return false
	}
	if f.SalaryMin > 0 && doc.SalaryMin < f.SalaryMin {
		return false
	}
	return true
}

func overlapScore(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

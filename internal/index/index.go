// Package index defines the similarity-search collaborator the store
// delegates to. The store only relies on the contract: every stored record
// is represented here, and deletes remove the entry in the same call.
package index

import (
	"context"
	"time"
)

// Document is the indexed representation of one stored record.
type Document struct {
	Key        string    `json:"key"`
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	Location   string    `json:"location"`
	JobType    string    `json:"job_type"`
	RemoteType string    `json:"remote_type"`
	SalaryMin  float64   `json:"salary_min"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Filters narrows a search by metadata. Zero values mean "no constraint".
type Filters struct {
	Location   string
	JobType    string
	RemoteType string
	SalaryMin  float64
}

// Hit is one search result.
type Hit struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// Index is implemented by search backends. The current backend scores by
// lexical token overlap; an ANN-capable backend can replace it without
// touching the store, since documents and hits are backend-agnostic.
type Index interface {
	Add(ctx context.Context, doc Document) error
	Remove(ctx context.Context, keys []string) error
	Search(ctx context.Context, query string, n int, filters Filters) ([]Hit, error)
	Count(ctx context.Context) (int64, error)
	Has(ctx context.Context, key string) (bool, error)
}

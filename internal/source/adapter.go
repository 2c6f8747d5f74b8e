// Package source contains the per-board adapters. Each adapter fetches and
// normalises postings from one job platform, paginating sequentially against
// that board and respecting its request budget.
package source

import (
	"context"

	"job-collector/internal/models"
)

// Limiter gates outbound requests per source. Implemented by
// ratelimit.TokenBucket; nil means unlimited.
type Limiter interface {
	Wait(ctx context.Context, source string) error
}

// Adapter is implemented once per job board. Search pages 1..maxPages
// sequentially and returns every posting it could normalise, or an error if
// the board could not be read at all. Adapters never write to the store.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query, location string, maxPages int) ([]models.Job, error)
}

// Registry is an ordered adapter list. The order doubles as the dedup
// priority: when two boards report the same posting, the record from the
// earlier adapter wins.
type Registry struct {
	adapters []Adapter
}

// NewRegistry keeps the adapters in the given priority order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Adapters returns the adapters in priority order.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// Names returns the adapter names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

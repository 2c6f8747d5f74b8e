// Package filter holds the relevance filter applied between dedup and
// ingestion. The pipeline only depends on the Filter contract; a scoring
// model can replace the keyword implementation without touching the
// collector.
package filter

import (
	"strings"

	"job-collector/internal/models"
)

// Filter is a pure transformation over a collected batch.
type Filter interface {
	Apply(jobs []models.Job) []models.Job
}

// Keyword keeps postings that mention at least one required keyword and
// drops any posting containing a red-flag term. Matching is case-insensitive
// substring over title, company and description.
type Keyword struct {
	Keywords []string
	RedFlags []string
}

// NewKeyword builds a keyword filter. Both lists may be empty, in which case
// the corresponding check is skipped.
func NewKeyword(keywords, redFlags []string) *Keyword {
	return &Keyword{Keywords: keywords, RedFlags: redFlags}
}

func (f *Keyword) Apply(jobs []models.Job) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		combined := strings.ToLower(job.Title + " " + job.Company + " " + job.Description)
		if containsAny(combined, f.RedFlags) {
			continue
		}
		if len(f.Keywords) > 0 && !containsAny(combined, f.Keywords) {
			continue
		}
		out = append(out, job)
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// Passthrough applies no filtering.
type Passthrough struct{}

func (Passthrough) Apply(jobs []models.Job) []models.Job { return jobs }

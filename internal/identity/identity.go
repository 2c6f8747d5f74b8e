// Package identity computes the stable deduplication key for a job posting.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"job-collector/internal/models"
)

// Key returns the deterministic identity of a posting. When the board
// supplied its own ID the key is "<source>_<id>"; otherwise it is a hash of
// the (source, title, company, location) tuple. Two postings that agree on
// that tuple always map to the same key, across sources runs and restarts.
func Key(job models.Job) string {
	source := normalize(job.Source)
	if job.NativeID != "" {
		return fmt.Sprintf("%s_%s", source, job.NativeID)
	}
	content := fmt.Sprintf("%s_%s_%s_%s",
		source, normalize(job.Title), normalize(job.Company), normalize(job.Location))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ContentKey identifies the underlying posting independent of which board
// reported it. The collector uses it to collapse the same job seen on two
// boards into one record.
func ContentKey(job models.Job) string {
	content := fmt.Sprintf("%s_%s_%s",
		normalize(job.Title), normalize(job.Company), normalize(job.Location))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

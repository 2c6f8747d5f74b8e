package models

import "time"

// AgeBucket classifies how stale a record is relative to "now", based on its
// reference date. The five buckets are disjoint and cover every record.
type AgeBucket string

const (
	BucketFresh   AgeBucket = "fresh"   // 0-7 days
	BucketRecent  AgeBucket = "recent"  // 8-14 days
	BucketAging   AgeBucket = "aging"   // 15-30 days
	BucketOld     AgeBucket = "old"     // 31-60 days
	BucketExpired AgeBucket = "expired" // 60+ days
)

// AgeBuckets lists all buckets in ascending age order.
func AgeBuckets() []AgeBucket {
	return []AgeBucket{BucketFresh, BucketRecent, BucketAging, BucketOld, BucketExpired}
}

// ClassifyAge returns the bucket for a record whose reference date is ref.
func ClassifyAge(ref, now time.Time) AgeBucket {
	days := int(now.Sub(ref).Hours() / 24)
	switch {
	case days <= 7:
		return BucketFresh
	case days <= 14:
		return BucketRecent
	case days <= 30:
		return BucketAging
	case days <= 60:
		return BucketOld
	default:
		return BucketExpired
	}
}

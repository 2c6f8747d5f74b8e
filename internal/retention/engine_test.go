package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"job-collector/internal/index"
	"job-collector/internal/models"
	"job-collector/internal/store"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

// seedStore inserts one record per age and returns the store.
func seedStore(t *testing.T, ageDays ...int) *store.Memory {
	t.Helper()
	st := store.NewMemory(index.NewMemory())
	ctx := context.Background()
	for i, days := range ageDays {
		posted := testNow.AddDate(0, 0, -days)
		job := models.Job{
			Title:     fmt.Sprintf("Role %d (%dd)", i, days),
			Company:   "Acme",
			Location:  "Houston, TX",
			Source:    "adzuna",
			PostedAt:  &posted,
			ScrapedAt: testNow,
		}
		if _, err := st.Upsert(ctx, job); err != nil {
			t.Fatalf("seed upsert: %v", err)
		}
	}
	return st
}

func testEngine(st store.Store, archiver Archiver) *Engine {
	e := New(st, archiver)
	e.now = func() time.Time { return testNow }
	return e
}

func TestExpirationSweepDeletesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t, 5, 20, 40, 70)
	e := testEngine(st, nil)
	policy := Policy{ExpirationDays: 30, MaxRecords: 10000, BatchSize: 100}

	report, err := e.ExpirationSweep(ctx, policy, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Candidates != 2 || report.Deleted != 2 || report.Failed != 0 {
		t.Fatalf("expected 2 expired records deleted, got %+v", report)
	}

	stats, _ := st.Stats(ctx)
	if stats.Total != 2 {
		t.Fatalf("expected 2 survivors, got %d", stats.Total)
	}
}

func TestExpirationSweepDryRunDeletesNothing(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t, 5, 40, 70)
	e := testEngine(st, nil)

	report, err := e.ExpirationSweep(ctx, Policy{ExpirationDays: 30, BatchSize: 100}, true)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !report.DryRun || report.Candidates != 2 || report.Deleted != 0 {
		t.Fatalf("dry run must only report: %+v", report)
	}
	if len(report.Sample) != 2 {
		t.Fatalf("sample should list the candidates, got %v", report.Sample)
	}

	stats, _ := st.Stats(ctx)
	if stats.Total != 3 {
		t.Fatalf("dry run deleted records: total=%d", stats.Total)
	}
}

func TestSizeSweepTrimsOldestExcess(t *testing.T) {
	ctx := context.Background()
	ages := make([]int, 0, 12)
	for i := 0; i < 12; i++ {
		ages = append(ages, i) // 0..11 days old, all distinct
	}
	st := seedStore(t, ages...)
	e := testEngine(st, nil)
	policy := Policy{ExpirationDays: 365, MaxRecords: 10, BatchSize: 5}

	report, err := e.SizeSweep(ctx, policy, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Candidates != 2 || report.Deleted != 2 {
		t.Fatalf("expected exactly the 2 oldest gone, got %+v", report)
	}

	stats, _ := st.Stats(ctx)
	if stats.Total != 10 {
		t.Fatalf("store should sit exactly at the bound, got %d", stats.Total)
	}

	// The survivors must be the 10 newest.
	agesLeft, _ := st.ListAges(ctx)
	oldest := testNow
	for _, a := range agesLeft {
		if a.Reference.Before(oldest) {
			oldest = a.Reference
		}
	}
	if oldest.Before(testNow.AddDate(0, 0, -9)) {
		t.Fatalf("an old record survived the size sweep: %v", oldest)
	}
}

func TestSizeSweepNoopWithinBound(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t, 1, 2, 3)
	e := testEngine(st, nil)

	report, err := e.SizeSweep(ctx, Policy{MaxRecords: 10, BatchSize: 100}, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Candidates != 0 || report.Deleted != 0 {
		t.Fatalf("store within bound must be untouched: %+v", report)
	}
}

func TestSizeSweepDeterministicTieBreak(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t, 10, 10, 10)
	e := testEngine(st, nil)

	first, err := e.SizeSweep(ctx, Policy{MaxRecords: 2, BatchSize: 100}, true)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	second, err := e.SizeSweep(ctx, Policy{MaxRecords: 2, BatchSize: 100}, true)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if first.Candidates != 1 || second.Candidates != 1 {
		t.Fatalf("expected 1 candidate each run: %+v / %+v", first, second)
	}
	if first.Sample[0] != second.Sample[0] {
		t.Fatalf("tie-break not deterministic: %q vs %q", first.Sample[0], second.Sample[0])
	}
}

func TestAutoRunsBothSweepsAndSnapshots(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t, 5, 20, 40, 70)
	e := testEngine(st, nil)
	policy := Policy{ExpirationDays: 30, MaxRecords: 1, BatchSize: 100}

	report, err := e.Auto(ctx, policy, false)
	if err != nil {
		t.Fatalf("auto: %v", err)
	}
	if report.Expiration.Deleted != 2 {
		t.Fatalf("expiration pass: %+v", report.Expiration)
	}
	// After expiration two records remain; the size pass trims to 1.
	if report.Size.Deleted != 1 {
		t.Fatalf("size pass: %+v", report.Size)
	}
	if report.Stats == nil || report.Stats.Total != 1 {
		t.Fatalf("missing or wrong stats snapshot: %+v", report.Stats)
	}
}

type capturingArchiver struct {
	task    string
	records []store.RecordAge
	err     error
}

func (a *capturingArchiver) Archive(_ context.Context, task string, records []store.RecordAge) error {
	a.task = task
	a.records = records
	return a.err
}

func TestArchiverReceivesCandidatesBeforeDelete(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t, 5, 70)
	arch := &capturingArchiver{}
	e := testEngine(st, arch)

	report, err := e.ExpirationSweep(ctx, Policy{ExpirationDays: 30, BatchSize: 100}, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Deleted != 1 {
		t.Fatalf("sweep: %+v", report)
	}
	if arch.task != "expiration" || len(arch.records) != 1 {
		t.Fatalf("archiver not fed: task=%q records=%d", arch.task, len(arch.records))
	}
}

func TestArchiverFailureDoesNotBlockDelete(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t, 70)
	arch := &capturingArchiver{err: errors.New("bucket gone")}
	e := testEngine(st, arch)

	report, err := e.ExpirationSweep(ctx, Policy{ExpirationDays: 30, BatchSize: 100}, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Deleted != 1 {
		t.Fatalf("delete must proceed past a failed archive: %+v", report)
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.ExpirationDays != 30 || p.MaxRecords != 10000 || p.BatchSize != 100 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

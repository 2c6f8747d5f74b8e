package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"job-collector/internal/index"
	"job-collector/internal/models"
	"job-collector/internal/source"
	"job-collector/internal/store"
)

type fakeAdapter struct {
	name  string
	jobs  []models.Job
	err   error
	delay time.Duration
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Search(ctx context.Context, _, _ string, _ int) ([]models.Job, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.jobs, f.err
}

func mkJobs(sourceName string, n int) []models.Job {
	jobs := make([]models.Job, n)
	for i := range jobs {
		jobs[i] = models.Job{
			Title:     fmt.Sprintf("%s role %d", sourceName, i),
			Company:   "Acme",
			Location:  "Remote",
			Source:    sourceName,
			ScrapedAt: time.Now(),
		}
	}
	return jobs
}

func TestCollectMergesSuccessfulSources(t *testing.T) {
	reg := source.NewRegistry(
		&fakeAdapter{name: "a", jobs: mkJobs("a", 5)},
		&fakeAdapter{name: "b", err: errors.New("HTTP 500")},
		&fakeAdapter{name: "c", jobs: mkJobs("c", 7)},
	)
	c := New(reg, nil, time.Second, 0)

	outcome, err := c.Collect(context.Background(), "go", "", 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(outcome.Jobs) != 12 {
		t.Fatalf("expected 12 merged jobs, got %d", len(outcome.Jobs))
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Source != "b" {
		t.Fatalf("expected one failure for b, got %+v", outcome.Failures)
	}
	if outcome.PerSource["a"] != 5 || outcome.PerSource["c"] != 7 {
		t.Fatalf("per-source counts wrong: %+v", outcome.PerSource)
	}
	if outcome.RunID == "" {
		t.Fatalf("run id missing")
	}
}

func TestCollectSlowSourceIsIsolated(t *testing.T) {
	reg := source.NewRegistry(
		&fakeAdapter{name: "fast", jobs: mkJobs("fast", 3)},
		&fakeAdapter{name: "slow", jobs: mkJobs("slow", 3), delay: 2 * time.Second},
	)
	c := New(reg, nil, 50*time.Millisecond, 0)

	outcome, err := c.Collect(context.Background(), "go", "", 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(outcome.Jobs) != 3 {
		t.Fatalf("only the fast source should contribute, got %d jobs", len(outcome.Jobs))
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Source != "slow" {
		t.Fatalf("slow source should fail with a timeout, got %+v", outcome.Failures)
	}
}

func TestCollectCrossSourceDedupFollowsPriority(t *testing.T) {
	shared := models.Job{
		Title: "Go Developer", Company: "Acme", Location: "Houston, TX",
		ScrapedAt: time.Now(),
	}
	first := shared
	first.Source = "primary"
	second := shared
	second.Source = "secondary"

	reg := source.NewRegistry(
		&fakeAdapter{name: "primary", jobs: []models.Job{first}},
		&fakeAdapter{name: "secondary", jobs: []models.Job{second}},
	)
	c := New(reg, nil, time.Second, 0)

	outcome, err := c.Collect(context.Background(), "go", "", 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(outcome.Jobs) != 1 {
		t.Fatalf("identical postings must collapse to one, got %d", len(outcome.Jobs))
	}
	if outcome.Jobs[0].Source != "primary" {
		t.Fatalf("the higher-priority source should win, got %s", outcome.Jobs[0].Source)
	}
	if outcome.PerSource["primary"] != 1 || outcome.PerSource["secondary"] != 0 {
		t.Fatalf("duplicate should not be attributed to the losing source: %+v", outcome.PerSource)
	}
}

func TestCollectAllSourcesFailed(t *testing.T) {
	reg := source.NewRegistry(
		&fakeAdapter{name: "a", err: errors.New("down")},
		&fakeAdapter{name: "b", err: errors.New("down")},
	)
	c := New(reg, nil, time.Second, 0)

	outcome, err := c.Collect(context.Background(), "go", "", 1)
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
	if len(outcome.Failures) != 2 {
		t.Fatalf("both failures should be reported, got %+v", outcome.Failures)
	}
}

func TestCollectOverallDeadlineAbandonsStragglers(t *testing.T) {
	reg := source.NewRegistry(
		&fakeAdapter{name: "fast", jobs: mkJobs("fast", 2)},
		&fakeAdapter{name: "straggler", jobs: mkJobs("straggler", 2), delay: 5 * time.Second},
	)
	c := New(reg, nil, 10*time.Second, 100*time.Millisecond)

	start := time.Now()
	outcome, err := c.Collect(context.Background(), "go", "", 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("overall deadline did not cut the run short")
	}
	if len(outcome.Jobs) != 2 {
		t.Fatalf("resolved source should still be merged, got %d jobs", len(outcome.Jobs))
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Source != "straggler" {
		t.Fatalf("straggler should be abandoned, got %+v", outcome.Failures)
	}
}

func TestCollectCancellationReportedAsCancelled(t *testing.T) {
	reg := source.NewRegistry(
		&fakeAdapter{name: "slow", jobs: mkJobs("slow", 2), delay: 5 * time.Second},
	)
	c := New(reg, nil, 10*time.Second, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	outcome, err := c.Collect(ctx, "go", "", 1)
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
	if len(outcome.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", outcome.Failures)
	}
	reason := outcome.Failures[0].Reason
	if !strings.Contains(reason, "canceled") {
		t.Fatalf("cancellation should be named in the reason, got %q", reason)
	}
	if strings.Contains(reason, "deadline exceeded") {
		t.Fatalf("cancellation must not masquerade as a deadline: %q", reason)
	}
}

func TestCollectAppliesFilterAfterDedup(t *testing.T) {
	jobs := append(mkJobs("a", 2), models.Job{
		Title: "Crypto Sales", Company: "Shady", Location: "Remote",
		Source: "a", ScrapedAt: time.Now(),
	})
	reg := source.NewRegistry(&fakeAdapter{name: "a", jobs: jobs})
	c := New(reg, dropTitle("Crypto Sales"), time.Second, 0)

	outcome, err := c.Collect(context.Background(), "go", "", 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(outcome.Jobs) != 2 || outcome.FilteredOut != 1 {
		t.Fatalf("expected 2 kept and 1 filtered, got %d kept %d filtered",
			len(outcome.Jobs), outcome.FilteredOut)
	}
}

type dropTitle string

func (d dropTitle) Apply(jobs []models.Job) []models.Job {
	out := jobs[:0:0]
	for _, j := range jobs {
		if j.Title != string(d) {
			out = append(out, j)
		}
	}
	return out
}

func TestIngestCountsOutcomes(t *testing.T) {
	st := store.NewMemory(index.NewMemory())
	defer st.Close()

	reg := source.NewRegistry(&fakeAdapter{name: "a", jobs: mkJobs("a", 3)})
	c := New(reg, nil, time.Second, 0)

	outcome, err := c.Collect(context.Background(), "go", "", 1)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	first := c.Ingest(context.Background(), st, outcome)
	if first.Inserted != 3 || first.Duplicates != 0 {
		t.Fatalf("first ingest: %+v", first)
	}
	second := c.Ingest(context.Background(), st, outcome)
	if second.Inserted != 0 || second.Duplicates != 3 {
		t.Fatalf("re-ingest must be a no-op: %+v", second)
	}

	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("store grew on re-ingest: total=%d", stats.Total)
	}
}

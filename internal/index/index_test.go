package index

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testBackends(t *testing.T) map[string]Index {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return map[string]Index{
		"redis":  NewRedis(client),
		"memory": NewMemory(),
	}
}

func seedDocs(t *testing.T, idx Index) {
	t.Helper()
	ctx := context.Background()
	docs := []Document{
		{Key: "k1", Text: "Job Title: Go Developer\nCompany: Acme\nLocation: Houston, TX",
			Source: "adzuna", Location: "Houston, TX", JobType: "full-time", RemoteType: "onsite", SalaryMin: 90000},
		{Key: "k2", Text: "Job Title: Go Backend Engineer\nCompany: Globex\nLocation: Remote",
			Source: "remoteok", Location: "Remote", JobType: "full-time", RemoteType: "remote", SalaryMin: 120000},
		{Key: "k3", Text: "Job Title: Sales Manager\nCompany: Initech\nLocation: Austin, TX",
			Source: "adzuna", Location: "Austin, TX", JobType: "full-time", RemoteType: "hybrid"},
	}
	for _, d := range docs {
		if err := idx.Add(ctx, d); err != nil {
			t.Fatalf("add %s: %v", d.Key, err)
		}
	}
}

func TestAddCountHas(t *testing.T) {
	for name, idx := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedDocs(t, idx)

			n, err := idx.Count(ctx)
			if err != nil || n != 3 {
				t.Fatalf("count: n=%d err=%v", n, err)
			}
			ok, err := idx.Has(ctx, "k1")
			if err != nil || !ok {
				t.Fatalf("has k1: ok=%v err=%v", ok, err)
			}
			ok, err = idx.Has(ctx, "missing")
			if err != nil || ok {
				t.Fatalf("has missing: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestAddReplacesExisting(t *testing.T) {
	for name, idx := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := idx.Add(ctx, Document{Key: "k1", Text: "first"}); err != nil {
				t.Fatalf("add: %v", err)
			}
			if err := idx.Add(ctx, Document{Key: "k1", Text: "second"}); err != nil {
				t.Fatalf("re-add: %v", err)
			}
			n, _ := idx.Count(ctx)
			if n != 1 {
				t.Fatalf("re-adding a key must replace, not grow: count=%d", n)
			}
		})
	}
}

func TestSearchRanksAndFilters(t *testing.T) {
	for name, idx := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedDocs(t, idx)

			hits, err := idx.Search(ctx, "go developer", 10, Filters{})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(hits) != 2 {
				t.Fatalf("expected the two go postings, got %d hits", len(hits))
			}
			if hits[0].Key != "k1" {
				t.Fatalf("k1 matches both terms and must rank first, got %s", hits[0].Key)
			}

			hits, err = idx.Search(ctx, "go", 10, Filters{RemoteType: "remote"})
			if err != nil {
				t.Fatalf("filtered search: %v", err)
			}
			if len(hits) != 1 || hits[0].Key != "k2" {
				t.Fatalf("remote filter should leave only k2, got %+v", hits)
			}

			hits, err = idx.Search(ctx, "go", 10, Filters{SalaryMin: 100000})
			if err != nil {
				t.Fatalf("salary search: %v", err)
			}
			if len(hits) != 1 || hits[0].Key != "k2" {
				t.Fatalf("salary floor should leave only k2, got %+v", hits)
			}

			hits, err = idx.Search(ctx, "go", 1, Filters{})
			if err != nil {
				t.Fatalf("limited search: %v", err)
			}
			if len(hits) != 1 {
				t.Fatalf("n must cap the result set, got %d", len(hits))
			}
		})
	}
}

func TestRemove(t *testing.T) {
	for name, idx := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedDocs(t, idx)

			if err := idx.Remove(ctx, []string{"k1", "k2", "never-existed"}); err != nil {
				t.Fatalf("remove: %v", err)
			}
			n, _ := idx.Count(ctx)
			if n != 1 {
				t.Fatalf("expected 1 document left, got %d", n)
			}
			if ok, _ := idx.Has(ctx, "k1"); ok {
				t.Fatalf("k1 survived removal")
			}
		})
	}
}

func TestAddEmptyKeyRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	idx := NewRedis(client)

	if err := idx.Add(context.Background(), Document{Text: "no key"}); err == nil {
		t.Fatalf("empty key must be rejected")
	}
}

package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"job-collector/internal/models"
)

func remoteOKFeed() []any {
	return []any{
		map[string]any{"legal": "terms of use notice"},
		remoteOKPosting{
			ID: "101", Position: "Go Engineer", Company: "Acme",
			Description: "Write Go services.", URL: "https://example.com/101",
			Salary: "$100k", Tags: []string{"golang", "backend"},
			Date: time.Now().UTC().Format(time.RFC3339),
		},
		remoteOKPosting{
			ID: "102", Position: "Designer", Company: "Globex",
			URL: "https://example.com/102", Tags: []string{"figma"},
		},
	}
}

func newTestRemoteOK(serverURL string) *RemoteOK {
	r := NewRemoteOK(nil)
	r.baseURL = serverURL
	return r
}

func TestRemoteOKFiltersLegalNoticeAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(remoteOKFeed())
	}))
	defer server.Close()

	jobs, err := newTestRemoteOK(server.URL).Search(context.Background(), "go", "", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("only the matching posting should survive, got %d", len(jobs))
	}

	j := jobs[0]
	if j.Source != "remoteok" || j.NativeID != "101" {
		t.Fatalf("identity fields wrong: %+v", j)
	}
	if j.RemoteType != models.RemoteTypeRemote {
		t.Fatalf("remoteok postings are remote by definition, got %s", j.RemoteType)
	}
	if j.Location != "Remote" {
		t.Fatalf("empty location should default to Remote, got %q", j.Location)
	}
	if j.SalaryText != "$100k" {
		t.Fatalf("salary text not mapped: %q", j.SalaryText)
	}
	if len(j.Skills) != 2 {
		t.Fatalf("tags should map to skills: %v", j.Skills)
	}
}

func TestRemoteOKEmptyQueryMatchesAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(remoteOKFeed())
	}))
	defer server.Close()

	jobs, err := newTestRemoteOK(server.URL).Search(context.Background(), "", "", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("empty query should keep all real postings, got %d", len(jobs))
	}
}

func TestRemoteOKMatchesOnTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(remoteOKFeed())
	}))
	defer server.Close()

	jobs, err := newTestRemoteOK(server.URL).Search(context.Background(), "backend", "", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(jobs) != 1 || jobs[0].NativeID != "101" {
		t.Fatalf("tag match failed: %+v", jobs)
	}
}

func TestRemoteOKHTTPErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := newTestRemoteOK(server.URL).Search(context.Background(), "go", "", 1); err == nil {
		t.Fatalf("non-200 response must surface as an error")
	}
}

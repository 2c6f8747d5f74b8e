package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"job-collector/internal/logger"
	"job-collector/internal/models"
)

// RemoteOK fetches postings from the RemoteOK JSON API. The API returns one
// flat feed, so pagination and the page budget do not apply; the query is
// matched client-side against title and tags.
type RemoteOK struct {
	baseURL string
	limiter Limiter
	client  *http.Client
	log     zerolog.Logger
}

// NewRemoteOK constructs the adapter. limiter may be nil.
func NewRemoteOK(limiter Limiter) *RemoteOK {
	return &RemoteOK{
		baseURL: "https://remoteok.com/api",
		limiter: limiter,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     logger.Get("remoteok"),
	}
}

func (r *RemoteOK) Name() string { return "remoteok" }

type remoteOKPosting struct {
	ID          string   `json:"id"`
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Salary      string   `json:"salary"`
	SalaryMin   float64  `json:"salary_min"`
	SalaryMax   float64  `json:"salary_max"`
	Tags        []string `json:"tags"`
	Date        string   `json:"date"`
}

func (r *RemoteOK) Search(ctx context.Context, query, location string, _ int) ([]models.Job, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, r.Name()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remoteok returned %d", resp.StatusCode)
	}

	// The feed's first element is a legal notice object; decoding into the
	// posting shape leaves it with an empty position, filtered out below.
	var postings []remoteOKPosting
	if err := json.Unmarshal(body, &postings); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	terms := strings.Fields(strings.ToLower(query))
	now := time.Now()
	var jobs []models.Job
	for _, p := range postings {
		if p.Position == "" {
			continue
		}
		if !matchesQuery(p, terms) {
			continue
		}
		job := models.Job{
			Title:       p.Position,
			Company:     p.Company,
			Location:    orDefault(p.Location, "Remote"),
			Description: p.Description,
			URL:         p.URL,
			Source:      r.Name(),
			SalaryText:  p.Salary,
			JobType:     models.JobTypeUnknown,
			RemoteType:  models.RemoteTypeRemote,
			Skills:      p.Tags,
			ScrapedAt:   now,
			NativeID:    p.ID,
		}
		if p.SalaryMin > 0 {
			v := p.SalaryMin
			job.SalaryMin = &v
		}
		if p.SalaryMax > 0 {
			v := p.SalaryMax
			job.SalaryMax = &v
		}
		if t, err := time.Parse(time.RFC3339, p.Date); err == nil {
			job.PostedAt = &t
		}
		jobs = append(jobs, job)
	}
	r.log.Debug().Int("jobs", len(jobs)).Str("query", query).Msg("search complete")
	return jobs, nil
}

func matchesQuery(p remoteOKPosting, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	haystack := strings.ToLower(p.Position + " " + strings.Join(p.Tags, " "))
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

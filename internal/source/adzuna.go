package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"job-collector/internal/logger"
	"job-collector/internal/models"
)

const (
	adzunaPageSize = 50
	adzunaTimeout  = 15 * time.Second
)

// Adzuna fetches postings from the Adzuna public API.
type Adzuna struct {
	appID     string
	appKey    string
	country   string // "us", "gb", "fr", ...
	baseURL   string
	pageDelay time.Duration
	limiter   Limiter
	client    *http.Client
	log       zerolog.Logger
}

// NewAdzuna constructs the adapter. limiter may be nil.
func NewAdzuna(appID, appKey, country string, pageDelay time.Duration, limiter Limiter) *Adzuna {
	return &Adzuna{
		appID:     appID,
		appKey:    appKey,
		country:   country,
		baseURL:   "https://api.adzuna.com/v1/api/jobs",
		pageDelay: pageDelay,
		limiter:   limiter,
		client:    &http.Client{Timeout: adzunaTimeout},
		log:       logger.Get("adzuna"),
	}
}

func (a *Adzuna) Name() string { return "adzuna" }

type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaCompany  `json:"company"`
	Location     adzunaLocation `json:"location"`
	SalaryMin    float64        `json:"salary_min"`
	SalaryMax    float64        `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractTime string         `json:"contract_time"`
	ContractType string         `json:"contract_type"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// Search pages sequentially until an empty or short page or maxPages.
func (a *Adzuna) Search(ctx context.Context, query, location string, maxPages int) ([]models.Job, error) {
	if a.appID == "" || a.appKey == "" {
		return nil, fmt.Errorf("adzuna credentials not configured")
	}
	if maxPages <= 0 {
		maxPages = 1
	}

	var results []models.Job
	for page := 1; page <= maxPages; page++ {
		if page > 1 && a.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(a.pageDelay):
			}
		}
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx, a.Name()); err != nil {
				return results, fmt.Errorf("rate limit wait: %w", err)
			}
		}
		batch, err := a.fetchPage(ctx, query, location, page)
		if err != nil {
			return results, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		results = append(results, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}
	a.log.Debug().Int("jobs", len(results)).Str("query", query).Msg("search complete")
	return results, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, query, location string, page int) ([]models.Job, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", a.baseURL, a.country, page)

	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", query)
	params.Set("where", location)
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	now := time.Now()
	jobs := make([]models.Job, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		job := models.Job{
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: r.Description,
			URL:         r.RedirectURL,
			Source:      a.Name(),
			JobType:     parseAdzunaContract(r.ContractTime, r.ContractType),
			RemoteType:  models.RemoteTypeUnknown,
			ScrapedAt:   now,
			NativeID:    r.ID,
		}
		if r.SalaryMin > 0 {
			v := r.SalaryMin
			job.SalaryMin = &v
		}
		if r.SalaryMax > 0 {
			v := r.SalaryMax
			job.SalaryMax = &v
		}
		if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
			job.PostedAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func parseAdzunaContract(contractTime, contractType string) models.JobType {
	switch contractTime {
	case "full_time":
		return models.JobTypeFullTime
	case "part_time":
		return models.JobTypePartTime
	}
	return models.ParseJobType(contractType)
}

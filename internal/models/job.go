package models

import (
	"fmt"
	"strings"
	"time"
)

// JobType enumerates employment types reported by job boards.
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeTemporary  JobType = "temporary"
	JobTypeInternship JobType = "internship"
	JobTypeUnknown    JobType = "unknown"
)

// RemoteType enumerates remote work arrangements.
type RemoteType string

const (
	RemoteTypeOnsite  RemoteType = "onsite"
	RemoteTypeRemote  RemoteType = "remote"
	RemoteTypeHybrid  RemoteType = "hybrid"
	RemoteTypeUnknown RemoteType = "unknown"
)

// ParseJobType maps free-text contract descriptions onto a JobType.
func ParseJobType(s string) JobType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full-time", "full_time", "fulltime", "permanent":
		return JobTypeFullTime
	case "part-time", "part_time", "parttime":
		return JobTypePartTime
	case "contract", "contractor", "freelance":
		return JobTypeContract
	case "temporary", "temp":
		return JobTypeTemporary
	case "internship", "intern":
		return JobTypeInternship
	default:
		return JobTypeUnknown
	}
}

// ParseRemoteType maps free-text remote policies onto a RemoteType.
func ParseRemoteType(s string) RemoteType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "onsite", "on-site", "office":
		return RemoteTypeOnsite
	case "remote", "fully remote", "work from home":
		return RemoteTypeRemote
	case "hybrid":
		return RemoteTypeHybrid
	default:
		return RemoteTypeUnknown
	}
}

// Job is a posting normalised to a fixed field set, regardless of which
// board it came from. ScrapedAt is always set by the adapter; PostedAt only
// when the board exposes it.
type Job struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`

	SalaryMin  *float64   `json:"salary_min,omitempty"`
	SalaryMax  *float64   `json:"salary_max,omitempty"`
	SalaryText string     `json:"salary_text,omitempty"`
	JobType    JobType    `json:"job_type"`
	RemoteType RemoteType `json:"remote_type"`

	PostedAt  *time.Time `json:"posted_at,omitempty"`
	ScrapedAt time.Time  `json:"scraped_at"`

	Requirements    string   `json:"requirements,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
	Education       string   `json:"education,omitempty"`

	NativeID      string `json:"native_id,omitempty"`
	ExternalApply bool   `json:"external_apply,omitempty"`
}

// HasSalary reports whether any salary information is present.
func (j Job) HasSalary() bool {
	return j.SalaryMin != nil || j.SalaryMax != nil || j.SalaryText != ""
}

// HasDescription reports whether the description is substantial enough to
// count towards quality (more than 50 characters of actual text).
func (j Job) HasDescription() bool {
	return len(strings.TrimSpace(j.Description)) > 50
}

// QualityScore rates how completely the posting is filled in, 0.0 to 1.0.
// Recomputed from the fields every time, never stored.
func (j Job) QualityScore() float64 {
	score := 0.0
	if j.Title != "" {
		score += 0.2
	}
	if j.Company != "" {
		score += 0.2
	}
	if j.Location != "" {
		score += 0.1
	}
	if j.Description != "" {
		score += 0.2
	}
	if j.HasSalary() {
		score += 0.1
	}
	if len(j.Skills) > 0 {
		score += 0.1
	}
	if j.PostedAt != nil {
		score += 0.05
	}
	if j.JobType != JobTypeUnknown && j.JobType != "" {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ReferenceDate is the date used for all age calculations: the posting date
// when the board reported one, otherwise the scrape date.
func (j Job) ReferenceDate() time.Time {
	if j.PostedAt != nil {
		return *j.PostedAt
	}
	return j.ScrapedAt
}

// EmbeddingText builds the document representation handed to the search
// index: core fields first, then salary, skills and a truncated description.
func (j Job) EmbeddingText() string {
	parts := []string{
		"Job Title: " + j.Title,
		"Company: " + j.Company,
		"Location: " + j.Location,
	}
	if j.JobType != "" && j.JobType != JobTypeUnknown {
		parts = append(parts, "Job Type: "+string(j.JobType))
	}
	if j.RemoteType != "" && j.RemoteType != RemoteTypeUnknown {
		parts = append(parts, "Work Type: "+string(j.RemoteType))
	}
	if s := j.salaryLine(); s != "" {
		parts = append(parts, "Salary: "+s)
	}
	if len(j.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(j.Skills, ", "))
	}
	if j.ExperienceLevel != "" {
		parts = append(parts, "Experience Level: "+j.ExperienceLevel)
	}
	if j.Education != "" {
		parts = append(parts, "Education: "+j.Education)
	}
	if desc := strings.TrimSpace(j.Description); desc != "" {
		if len(desc) > 1000 {
			desc = desc[:1000] + "..."
		}
		parts = append(parts, "Description: "+desc)
	}
	if req := strings.TrimSpace(j.Requirements); req != "" {
		if len(req) > 500 {
			req = req[:500] + "..."
		}
		parts = append(parts, "Requirements: "+req)
	}
	return strings.Join(parts, "\n")
}

func (j Job) salaryLine() string {
	if j.SalaryText != "" {
		return j.SalaryText
	}
	switch {
	case j.SalaryMin != nil && j.SalaryMax != nil:
		return fmt.Sprintf("$%.0f - $%.0f", *j.SalaryMin, *j.SalaryMax)
	case j.SalaryMin != nil:
		return fmt.Sprintf("$%.0f+", *j.SalaryMin)
	case j.SalaryMax != nil:
		return fmt.Sprintf("Up to $%.0f", *j.SalaryMax)
	}
	return ""
}

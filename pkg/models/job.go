package models

import "time"

// JobType is the closed set of employment types a record can carry
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
)

// ExperienceLevel is the closed set of seniority buckets
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceExecutive ExperienceLevel = "executive"
)

// JobStatus is the lifecycle state stored alongside a document-store record
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusExpired  JobStatus = "expired"
	JobStatusFilled   JobStatus = "filled"
	JobStatusArchived JobStatus = "archived"
)

// RawJob is a single listing as extracted by a source adapter, before normalization.
// Fields the source did not provide are left at their zero value.
type RawJob struct {
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	Salary      string     `json:"salary,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	PostedDate  *time.Time `json:"posted_date,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"`
	JobType     string     `json:"job_type,omitempty"`
	Remote      bool       `json:"remote,omitempty"`

	Source  string `json:"source"`
	BaseURL string `json:"-"`
}

// Salary represents a parsed salary range
type Salary struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency"`
}

// Midpoint returns the average of the two bounds
func (s Salary) Midpoint() float64 {
	return float64(s.Min+s.Max) / 2
}

// JobRecord is the canonical, normalized job posting
type JobRecord struct {
	IdentityKey     string          `json:"identityKey"`
	ExternalID      string          `json:"externalId,omitempty"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	Remote          bool            `json:"remote"`
	Description     string          `json:"description"`
	Salary          *Salary         `json:"salary,omitempty"`
	JobType         JobType         `json:"jobType"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	Skills          []string        `json:"skills"`
	Certifications  []string        `json:"certifications"`
	URL             string          `json:"url"`
	Source          string          `json:"source"`
	Status          JobStatus       `json:"status"`
	PostedDate      *time.Time      `json:"postedDate,omitempty"`
	ScrapedAt       time.Time       `json:"scrapedAt"`
}

// HasSalary reports whether both salary bounds were parsed
func (j *JobRecord) HasSalary() bool {
	return j.Salary != nil
}

// UpsertKey returns the external unique key used by document stores
func (j *JobRecord) UpsertKey() string {
	if j.ExternalID != "" {
		return j.Source + ":" + j.ExternalID
	}
	return j.IdentityKey
}

// JobDocument is the shape persisted by document-store sinks
type JobDocument struct {
	JobRecord
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Query is one search request against a source. Page starts at 1.
type Query struct {
	Keywords string `json:"keywords"`
	Location string `json:"location,omitempty"`
	Page     int    `json:"page"`
}

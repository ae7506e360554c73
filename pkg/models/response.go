package models

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// JobsResponse is returned by the jobs listing endpoint
type JobsResponse struct {
	Jobs      []JobRecord `json:"jobs"`
	Count     int         `json:"count"`
	Total     int         `json:"total"`
	RequestID string      `json:"request_id"`
}

// StatsResponse wraps a run summary with the time of the last completed scrape
type StatsResponse struct {
	Summary    interface{} `json:"summary"`
	LastScrape *time.Time  `json:"last_scrape,omitempty"`
	RequestID  string      `json:"request_id"`
}

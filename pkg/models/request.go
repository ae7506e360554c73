package models

// ScrapeRequest represents the payload that starts a harvesting run
type ScrapeRequest struct {
	Keywords   []string `json:"keywords" yaml:"keywords" validate:"required,min=1,dive,required"`
	Locations  []string `json:"locations,omitempty" yaml:"locations"`
	Sources    []string `json:"sources,omitempty" yaml:"sources" validate:"omitempty,dive,required"`
	MaxPages   int      `json:"max_pages,omitempty" yaml:"max_pages" validate:"omitempty,min=1,max=10"`
	RemoteOnly bool     `json:"remote_only,omitempty" yaml:"remote_only"`
	MinSalary  int      `json:"min_salary,omitempty" yaml:"min_salary" validate:"omitempty,min=0"`
	Parallel   bool     `json:"parallel,omitempty" yaml:"parallel"`
}

// JobsQuery holds the filters accepted by the jobs listing endpoint
type JobsQuery struct {
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=1000"`
	Source    string `query:"source"`
	Location  string `query:"location"`
	MinSalary int    `query:"min_salary" validate:"omitempty,min=0"`
}

// Package filter selects job records matching search criteria.
package filter

import (
	"strings"

	"jobharvest/pkg/models"
)

// Criteria is a conjunction of optional conditions. Zero values match
// everything.
type Criteria struct {
	// Keywords matches when any keyword occurs in title, company or description
	Keywords []string `json:"keywords,omitempty"`
	// Locations matches when any entry is a substring of the location
	Locations  []string                 `json:"locations,omitempty"`
	RemoteOnly bool                     `json:"remote_only,omitempty"`
	MinSalary  int                      `json:"min_salary,omitempty"`
	Experience []models.ExperienceLevel `json:"experience,omitempty"`
}

// IsZero reports whether c matches every record
func (c Criteria) IsZero() bool {
	return len(nonEmpty(c.Keywords)) == 0 &&
		len(nonEmpty(c.Locations)) == 0 &&
		!c.RemoteOnly &&
		c.MinSalary <= 0 &&
		len(c.Experience) == 0
}

// Match reports whether r satisfies every condition in c. A minimum salary
// excludes records without a parsed salary.
func (c Criteria) Match(r *models.JobRecord) bool {
	if kws := nonEmpty(c.Keywords); len(kws) > 0 {
		text := strings.ToLower(r.Title + " " + r.Company + " " + r.Description)
		if !containsAny(text, kws) {
			return false
		}
	}

	if locs := nonEmpty(c.Locations); len(locs) > 0 {
		if !containsAny(strings.ToLower(r.Location), locs) {
			return false
		}
	}

	if c.RemoteOnly && !r.Remote {
		return false
	}

	if c.MinSalary > 0 && (r.Salary == nil || r.Salary.Min < c.MinSalary) {
		return false
	}

	if len(c.Experience) > 0 {
		ok := false
		for _, lvl := range c.Experience {
			if r.ExperienceLevel == lvl {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	return true
}

// Apply returns the matching records in input order
func Apply(c Criteria, records []models.JobRecord) []models.JobRecord {
	if c.IsZero() {
		return records
	}

	out := make([]models.JobRecord, 0, len(records))
	for i := range records {
		if c.Match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// nonEmpty lower-cases and drops blank terms
func nonEmpty(terms []string) []string {
	var out []string
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

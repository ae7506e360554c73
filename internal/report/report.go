// Package report aggregates a final job set into a run summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"jobharvest/pkg/models"
)

// topN bounds the skills and locations lists
const topN = 10

// Count is one group and its size
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary is a display structure over a job set
type Summary struct {
	Total         int            `json:"total"`
	WithSalary    int            `json:"withSalary"`
	AverageSalary float64        `json:"averageSalary"`
	BySource      map[string]int `json:"bySource"`
	ByLocation    map[string]int `json:"byLocation"`
	ByCompany     map[string]int `json:"byCompany"`
	ByExperience  map[string]int `json:"byExperience"`
	ByJobType     map[string]int `json:"byJobType"`
	TopSkills     []Count        `json:"topSkills"`
	TopLocations  []Count        `json:"topLocations"`
}

// Summarize counts records by source, location, company, experience level
// and job type. The input is only read.
func Summarize(records []models.JobRecord) Summary {
	s := Summary{
		Total:        len(records),
		BySource:     map[string]int{},
		ByLocation:   map[string]int{},
		ByCompany:    map[string]int{},
		ByExperience: map[string]int{},
		ByJobType:    map[string]int{},
	}

	skills := map[string]int{}
	var salaryTotal float64

	for i := range records {
		r := &records[i]
		s.BySource[r.Source]++
		s.ByLocation[orUnknown(r.Location)]++
		s.ByCompany[r.Company]++
		s.ByExperience[string(r.ExperienceLevel)]++
		s.ByJobType[string(r.JobType)]++

		for _, skill := range r.Skills {
			skills[skill]++
		}

		if r.HasSalary() {
			s.WithSalary++
			salaryTotal += r.Salary.Midpoint()
		}
	}

	if s.WithSalary > 0 {
		s.AverageSalary = salaryTotal / float64(s.WithSalary)
	}
	s.TopSkills = Top(skills, topN)
	s.TopLocations = Top(s.ByLocation, topN)
	return s
}

// Top returns the n largest groups, ties broken by key
func Top(groups map[string]int, n int) []Count {
	counts := make([]Count, 0, len(groups))
	for k, v := range groups {
		counts = append(counts, Count{Key: k, Count: v})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Key < counts[j].Key
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Render writes s as aligned text tables
func Render(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Total jobs\t%d\n", s.Total)
	fmt.Fprintf(tw, "With salary\t%d\n", s.WithSalary)
	if s.WithSalary > 0 {
		fmt.Fprintf(tw, "Average salary\t%.0f\n", s.AverageSalary)
	}

	section(tw, "By source", Top(s.BySource, 0))
	section(tw, "By experience level", Top(s.ByExperience, 0))
	section(tw, "By job type", Top(s.ByJobType, 0))
	section(tw, "By company", Top(s.ByCompany, topN))
	section(tw, "Top locations", s.TopLocations)
	section(tw, "Top skills", s.TopSkills)

	return tw.Flush()
}

func section(w io.Writer, title string, counts []Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
	for _, c := range counts {
		fmt.Fprintf(w, "  %s\t%d\n", c.Key, c.Count)
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

package normalizer

import (
	"strings"

	"jobharvest/pkg/models"
)

type levelRule struct {
	level    models.ExperienceLevel
	keywords []string
}

// experienceRules are evaluated in order, first match wins
var experienceRules = []levelRule{
	{models.ExperienceSenior, []string{"senior", "10+ years"}},
	{models.ExperienceExecutive, []string{"lead", "manager"}},
	{models.ExperienceMid, []string{"mid-level", "3-5 years"}},
	{models.ExperienceEntry, []string{"entry", "0-2 years"}},
}

// ClassifyExperience buckets free text into an experience level. Text matching
// no keyword is mid.
func ClassifyExperience(text string) models.ExperienceLevel {
	lower := strings.ToLower(text)
	for _, rule := range experienceRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.level
			}
		}
	}
	return models.ExperienceMid
}

type typeRule struct {
	jobType  models.JobType
	keywords []string
}

var jobTypeRules = []typeRule{
	{models.JobTypeInternship, []string{"intern"}},
	{models.JobTypeContract, []string{"contract", "temporary", "freelance"}},
	{models.JobTypePartTime, []string{"part-time", "part time"}},
}

// ClassifyJobType maps a source-provided type or free text onto the closed set
// of job types, falling back to full-time.
func ClassifyJobType(declared, text string) models.JobType {
	if t, ok := parseJobType(declared); ok {
		return t
	}

	lower := strings.ToLower(text)
	for _, rule := range jobTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.jobType
			}
		}
	}
	return models.JobTypeFullTime
}

func parseJobType(s string) (models.JobType, bool) {
	switch strings.NewReplacer("_", "-", " ", "-").Replace(strings.ToLower(strings.TrimSpace(s))) {
	case "full-time", "fulltime", "permanent":
		return models.JobTypeFullTime, true
	case "part-time", "parttime":
		return models.JobTypePartTime, true
	case "contract", "contractor", "temporary", "freelance":
		return models.JobTypeContract, true
	case "internship", "intern":
		return models.JobTypeInternship, true
	}
	return "", false
}

// IsRemote reports whether any of the given texts advertises remote work
func IsRemote(texts ...string) bool {
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), "remote") {
			return true
		}
	}
	return false
}

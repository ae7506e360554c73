package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/pkg/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func TestParseSalary(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  *models.Salary
	}{
		{"range with separators", []string{"$85,000 - $120,000 per year"}, &models.Salary{Min: 85000, Max: 120000, Currency: "USD"}},
		{"plain digits", []string{"90000-110000"}, &models.Salary{Min: 90000, Max: 110000, Currency: "USD"}},
		{"no range", []string{"Competitive"}, nil},
		{"empty", []string{""}, nil},
		{"falls back to description", []string{"Competitive", "Pay: $70,000 - $80,000"}, &models.Salary{Min: 70000, Max: 80000, Currency: "USD"}},
		{"salary text wins", []string{"$1,000 - $2,000", "$70,000 - $80,000"}, &models.Salary{Min: 1000, Max: 2000, Currency: "USD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSalary(tt.texts...))
		})
	}
}

func TestClassifyExperience(t *testing.T) {
	tests := []struct {
		text string
		want models.ExperienceLevel
	}{
		{"Senior Actuarial Analyst, 10+ years required", models.ExperienceSenior},
		{"Entry level, 0-2 years", models.ExperienceEntry},
		{"Pricing Actuary", models.ExperienceMid},
		{"Team Lead, Reserving", models.ExperienceExecutive},
		{"Actuarial Manager", models.ExperienceExecutive},
		{"Mid-level Analyst", models.ExperienceMid},
		// senior takes precedence over manager
		{"Senior Manager", models.ExperienceSenior},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyExperience(tt.text))
		})
	}
}

func TestClassifyJobType(t *testing.T) {
	assert.Equal(t, models.JobTypeFullTime, ClassifyJobType("", "Actuarial Analyst"))
	assert.Equal(t, models.JobTypeInternship, ClassifyJobType("", "Summer Actuarial Intern"))
	assert.Equal(t, models.JobTypeContract, ClassifyJobType("", "6 month contractor role"))
	assert.Equal(t, models.JobTypePartTime, ClassifyJobType("", "Part time analyst"))
	assert.Equal(t, models.JobTypeContract, ClassifyJobType("Contract", "Actuary"))
	assert.Equal(t, models.JobTypePartTime, ClassifyJobType("part_time", "Actuary"))
	assert.Equal(t, models.JobTypeInternship, ClassifyJobType("weird", "Intern"))
}

func TestVocabularyMatch(t *testing.T) {
	skills := NewVocabulary(Skills)

	got := skills.Match("Strong SQL and python skills, experience with GGY AXIS and R.")
	assert.Equal(t, []string{"SQL", "Python", "R", "AXIS", "GGY AXIS"}, got)

	assert.NotContains(t, skills.Match("Reserving and pricing work"), "R")
	assert.Contains(t, skills.Match("C++ developer"), "C++")
	assert.Empty(t, skills.Match(""))

	certs := NewVocabulary(Certifications)
	assert.Equal(t, []string{"FSA", "MAAA"}, certs.Match("FSA preferred; MAAA required"))
	assert.NotContains(t, certs.Match("great team"), "EA")
}

func TestIdentityKeyIsCaseAndSpaceInvariant(t *testing.T) {
	assert.Equal(t, "actuary|acme", IdentityKey("Actuary", "Acme"))
	assert.Equal(t, IdentityKey("Actuary", "Acme"), IdentityKey("  actuary ", " ACME "))
	assert.NotEqual(t, IdentityKey("Actuary", "Acme"), IdentityKey("Analyst", "Acme"))
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize(models.RawJob{Title: "", Company: "Acme", Location: "NYC", Description: "FSA"})
	assert.ErrorIs(t, err, ErrMissingTitle)

	_, err = n.Normalize(models.RawJob{Title: "Actuary", Company: "   "})
	assert.ErrorIs(t, err, ErrMissingCompany)

	records, rejected := n.NormalizeAll([]models.RawJob{
		{Title: "", Company: "Acme"},
		{Title: "Actuary", Company: "Acme"},
	})
	assert.Len(t, records, 1)
	assert.Equal(t, 1, rejected)
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer()
	posted := time.Date(2024, 2, 20, 0, 0, 0, 0, time.FixedZone("EST", -5*3600))

	record, err := n.Normalize(models.RawJob{
		Title:       "  Senior   Pricing Actuary ",
		Company:     "Acme Insurance",
		Location:    "Remote - US",
		Salary:      "$120,000 - $150,000",
		Description: "<p>FSA required.</p><p>Excel, SQL and Prophet.</p>",
		URL:         "/viewjob?jk=abc",
		PostedDate:  &posted,
		Source:      "indeed",
		BaseURL:     "https://www.indeed.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "senior pricing actuary|acme insurance", record.IdentityKey)
	assert.Equal(t, "Senior Pricing Actuary", record.Title)
	assert.True(t, record.Remote)
	assert.Equal(t, &models.Salary{Min: 120000, Max: 150000, Currency: "USD"}, record.Salary)
	assert.Equal(t, models.ExperienceSenior, record.ExperienceLevel)
	assert.Equal(t, models.JobTypeFullTime, record.JobType)
	assert.Equal(t, []string{"Excel", "SQL", "Prophet"}, record.Skills)
	assert.Equal(t, []string{"FSA"}, record.Certifications)
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=abc", record.URL)
	assert.Equal(t, "FSA required.\nExcel, SQL and Prophet.", record.Description)
	assert.Equal(t, models.JobStatusActive, record.Status)
	assert.Equal(t, fixedNow, record.ScrapedAt)
	require.NotNil(t, record.PostedDate)
	assert.Equal(t, time.UTC, record.PostedDate.Location())
}

func TestNormalizeWithoutOptionalFields(t *testing.T) {
	record, err := newTestNormalizer().Normalize(models.RawJob{Title: "Actuary", Company: "Acme"})
	require.NoError(t, err)

	assert.Nil(t, record.Salary)
	assert.Nil(t, record.PostedDate)
	assert.Equal(t, models.ExperienceMid, record.ExperienceLevel)
	assert.Equal(t, models.JobTypeFullTime, record.JobType)
	assert.Empty(t, record.Skills)
	assert.NotNil(t, record.Skills)
	assert.False(t, record.Remote)
	assert.Empty(t, record.URL)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://jobs.soa.org/job/123", ResolveURL("https://jobs.soa.org/jobs/", "/job/123"))
	assert.Equal(t, "https://jobs.soa.org/jobs/123", ResolveURL("https://jobs.soa.org/jobs/", "123"))
	assert.Equal(t, "https://other.example/x", ResolveURL("https://jobs.soa.org", "https://other.example/x"))
	assert.Equal(t, "/job/1", ResolveURL("", "/job/1"))
	assert.Equal(t, "", ResolveURL("https://jobs.soa.org", "  "))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "line one\n\nline two", CleanDescription("  line   one \r\n\r\n\r\n line two  "))
	assert.Equal(t, "Café", CleanDescription("Café"))
	assert.Equal(t, "a < b", CleanDescription("a < b"))
}

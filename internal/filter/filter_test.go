package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobharvest/pkg/models"
)

func job(title, location string, remote bool, salary *models.Salary, lvl models.ExperienceLevel) models.JobRecord {
	return models.JobRecord{Title: title, Company: "Acme", Location: location, Remote: remote, Salary: salary, ExperienceLevel: lvl}
}

func TestCriteriaMatch(t *testing.T) {
	senior := job("Senior Pricing Actuary", "Hartford, CT", false, &models.Salary{Min: 150000, Max: 180000}, models.ExperienceSenior)
	remote := job("Data Analyst", "Remote - US", true, nil, models.ExperienceMid)

	tests := []struct {
		name     string
		criteria Criteria
		rec      models.JobRecord
		want     bool
	}{
		{"zero criteria", Criteria{}, remote, true},
		{"keyword in title", Criteria{Keywords: []string{"ACTUARY"}}, senior, true},
		{"keyword in company", Criteria{Keywords: []string{"acme"}}, remote, true},
		{"keyword missing", Criteria{Keywords: []string{"actuary"}}, remote, false},
		{"blank keywords ignored", Criteria{Keywords: []string{" ", ""}}, remote, true},
		{"location substring", Criteria{Locations: []string{"hartford"}}, senior, true},
		{"location mismatch", Criteria{Locations: []string{"Chicago", "Boston"}}, senior, false},
		{"remote only", Criteria{RemoteOnly: true}, remote, true},
		{"remote only rejects onsite", Criteria{RemoteOnly: true}, senior, false},
		{"min salary met", Criteria{MinSalary: 150000}, senior, true},
		{"min salary unmet", Criteria{MinSalary: 160000}, senior, false},
		{"min salary without salary", Criteria{MinSalary: 1}, remote, false},
		{"experience", Criteria{Experience: []models.ExperienceLevel{models.ExperienceSenior}}, senior, true},
		{"experience mismatch", Criteria{Experience: []models.ExperienceLevel{models.ExperienceEntry}}, senior, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Match(&tt.rec))
		})
	}
}

func TestApplyKeepsOrder(t *testing.T) {
	records := []models.JobRecord{
		job("Actuary B", "", true, nil, models.ExperienceMid),
		job("Clerk", "", true, nil, models.ExperienceMid),
		job("Actuary A", "", false, nil, models.ExperienceMid),
	}

	got := Apply(Criteria{Keywords: []string{"actuary"}}, records)
	assert.Equal(t, []string{"Actuary B", "Actuary A"}, []string{got[0].Title, got[1].Title})
	assert.Len(t, Apply(Criteria{}, records), 3)
	assert.Len(t, records, 3)
}

package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"jobharvest/pkg/models"
)

// DefaultCurrency is assigned to every parsed salary
const DefaultCurrency = "USD"

var salaryRange = regexp.MustCompile(`\$?(\d{1,3}(?:,\d{3})+|\d+)\s*-\s*\$?(\d{1,3}(?:,\d{3})+|\d+)`)

// ParseSalary returns the first salary range found in the given texts, checked
// in order. It returns nil when no range is present or a bound does not parse.
func ParseSalary(texts ...string) *models.Salary {
	for _, text := range texts {
		m := salaryRange.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		min, err := parseAmount(m[1])
		if err != nil {
			return nil
		}
		max, err := parseAmount(m[2])
		if err != nil {
			return nil
		}

		return &models.Salary{Min: min, Max: max, Currency: DefaultCurrency}
	}
	return nil
}

func parseAmount(s string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(s, ",", ""))
}

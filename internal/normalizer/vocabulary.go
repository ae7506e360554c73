package normalizer

import (
	"regexp"
	"strings"
)

// Skills is the fixed skill vocabulary matched against title and description
var Skills = []string{
	"Excel", "SQL", "Python", "R", "SAS", "Tableau", "Power BI", "VBA", "Stata", "MATLAB",
	"Java", "JavaScript", "C++", "Spark", "Hadoop", "AWS", "Azure", "GCP", "Machine Learning",
	"Prophet", "MoSes", "Emblem", "AXIS", "GGY AXIS", "Igloo",
}

// Certifications is the fixed actuarial credential vocabulary
var Certifications = []string{
	"FSA", "ASA", "FCAS", "ACAS", "EA", "MAAA", "CERA", "FIA", "CIA", "FIAI", "AIAI",
}

// shortTermLen is the longest term that must match as a whole word. Without it
// "R" would match nearly every posting.
const shortTermLen = 3

// Vocabulary matches a fixed list of terms case-insensitively
type Vocabulary struct {
	terms    []string
	lowered  []string
	patterns []*regexp.Regexp
}

// NewVocabulary compiles terms into a matcher
func NewVocabulary(terms []string) *Vocabulary {
	v := &Vocabulary{
		terms:    terms,
		lowered:  make([]string, len(terms)),
		patterns: make([]*regexp.Regexp, len(terms)),
	}
	for i, term := range terms {
		v.lowered[i] = strings.ToLower(term)
		if len(term) <= shortTermLen {
			v.patterns[i] = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])` + regexp.QuoteMeta(term) + `(?:[^a-z0-9]|$)`)
		}
	}
	return v
}

// Match returns the vocabulary terms present in text, in vocabulary order
func (v *Vocabulary) Match(text string) []string {
	found := make([]string, 0)
	if text == "" {
		return found
	}

	lower := strings.ToLower(text)
	for i, term := range v.terms {
		if p := v.patterns[i]; p != nil {
			if p.MatchString(text) {
				found = append(found, term)
			}
			continue
		}
		if strings.Contains(lower, v.lowered[i]) {
			found = append(found, term)
		}
	}
	return found
}

// Package normalizer turns raw source listings into canonical job records.
package normalizer

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"jobharvest/pkg/models"
)

var (
	// ErrMissingTitle rejects a raw job whose title is empty after trimming
	ErrMissingTitle = errors.New("missing title")
	// ErrMissingCompany rejects a raw job whose company is empty after trimming
	ErrMissingCompany = errors.New("missing company")
)

// IdentityKey is the deduplication key of a job: lower-cased, trimmed title and
// company joined by "|".
func IdentityKey(title, company string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(company))
}

// Normalizer maps RawJob values to JobRecord values. It is safe for concurrent use.
type Normalizer struct {
	skills         *Vocabulary
	certifications *Vocabulary
	now            func() time.Time
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithClock overrides the clock used for ScrapedAt
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a normalizer with the default vocabularies
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		skills:         NewVocabulary(Skills),
		certifications: NewVocabulary(Certifications),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts raw into a canonical record, or rejects it with
// ErrMissingTitle or ErrMissingCompany.
func (n *Normalizer) Normalize(raw models.RawJob) (models.JobRecord, error) {
	title := CleanLine(raw.Title)
	if title == "" {
		return models.JobRecord{}, ErrMissingTitle
	}
	company := CleanLine(raw.Company)
	if company == "" {
		return models.JobRecord{}, ErrMissingCompany
	}

	location := CleanLine(raw.Location)
	description := CleanDescription(raw.Description)
	text := title + "\n" + description

	record := models.JobRecord{
		IdentityKey:     IdentityKey(title, company),
		ExternalID:      strings.TrimSpace(raw.ExternalID),
		Title:           title,
		Company:         company,
		Location:        location,
		Remote:          raw.Remote || IsRemote(location, title, description),
		Description:     description,
		Salary:          ParseSalary(raw.Salary, description),
		JobType:         ClassifyJobType(raw.JobType, text),
		ExperienceLevel: ClassifyExperience(text),
		Skills:          n.skills.Match(text),
		Certifications:  n.certifications.Match(text),
		URL:             ResolveURL(raw.BaseURL, raw.URL),
		Source:          raw.Source,
		Status:          models.JobStatusActive,
		ScrapedAt:       n.now().UTC(),
	}

	if raw.PostedDate != nil && !raw.PostedDate.IsZero() {
		posted := raw.PostedDate.UTC()
		record.PostedDate = &posted
	}

	return record, nil
}

// NormalizeAll normalizes raws in order, dropping rejected entries. It returns
// the accepted records and the number rejected.
func (n *Normalizer) NormalizeAll(raws []models.RawJob) ([]models.JobRecord, int) {
	records := make([]models.JobRecord, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		record, err := n.Normalize(raw)
		if err != nil {
			rejected++
			continue
		}
		records = append(records, record)
	}
	return records, rejected
}

// ResolveURL resolves ref against base. Absolute refs are returned unchanged and
// unparseable input is returned trimmed.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() || base == "" {
		return refURL.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

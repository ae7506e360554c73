package sources

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/pkg/models"
)

type stubEngine struct {
	pages map[string]string
	urls  []string
	err   error
}

func (s *stubEngine) Fetch(ctx context.Context, u string) (string, error) {
	s.urls = append(s.urls, u)
	if s.err != nil {
		return "", s.err
	}
	page, ok := s.pages[u]
	if !ok {
		return "", errors.New("not found")
	}
	return page, nil
}

// anyPage returns the same html for every url
type anyPage struct {
	html string
	urls []string
}

func (a *anyPage) Fetch(ctx context.Context, u string) (string, error) {
	a.urls = append(a.urls, u)
	return a.html, nil
}

const indeedPage = `<html><body>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a data-jk="abc123" href="/viewjob?jk=abc123"><span title="Senior Actuary">Senior Actuary</span></a></h2>
  <span data-testid="company-name">Acme Insurance</span>
  <div data-testid="text-location">Hartford, CT</div>
  <div class="salary-snippet-container">$120,000 - $150,000 a year</div>
  <div class="job-snippet">Pricing models for P&amp;C lines.</div>
  <span class="date">Posted 3 days ago</span>
</div>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a data-jk="nope" href="/x"></a></h2>
</div>
</body></html>`

func TestIndeedParse(t *testing.T) {
	now = func() time.Time { return time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC) }
	defer func() { now = time.Now }()

	engine := &anyPage{html: indeedPage}
	board := NewIndeed("", engine)

	jobs, err := board.Search(context.Background(), models.Query{Keywords: "actuary", Location: "Hartford, CT", Page: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, "Senior Actuary", job.Title)
	assert.Equal(t, "Acme Insurance", job.Company)
	assert.Equal(t, "Hartford, CT", job.Location)
	assert.Equal(t, "$120,000 - $150,000 a year", job.Salary)
	assert.Equal(t, "Pricing models for P&C lines.", job.Description)
	assert.Equal(t, "/viewjob?jk=abc123", job.URL)
	assert.Equal(t, "abc123", job.ExternalID)
	assert.Equal(t, "indeed", job.Source)
	assert.Equal(t, "https://www.indeed.com", job.BaseURL)
	require.NotNil(t, job.PostedDate)
	assert.Equal(t, time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), *job.PostedDate)

	require.Len(t, engine.urls, 1)
	u, err := url.Parse(engine.urls[0])
	require.NoError(t, err)
	assert.Equal(t, "/jobs", u.Path)
	assert.Equal(t, "actuary", u.Query().Get("q"))
	assert.Equal(t, "Hartford, CT", u.Query().Get("l"))
	assert.Equal(t, "10", u.Query().Get("start"))
}

func TestLinkedInParse(t *testing.T) {
	page := `<li><div class="base-card" data-entity-urn="urn:li:jobPosting:3901">
  <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/3901"></a>
  <h3 class="base-search-card__title"> Actuarial Analyst </h3>
  <h4 class="base-search-card__subtitle"><a>Globe Re</a></h4>
  <span class="job-search-card__location">New York, NY</span>
  <time datetime="2024-04-30">2 weeks ago</time>
</div></li>`

	engine := &anyPage{html: page}
	jobs, err := NewLinkedIn("", engine).Search(context.Background(), models.Query{Keywords: "actuary", Page: 3})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.Equal(t, "Actuarial Analyst", jobs[0].Title)
	assert.Equal(t, "Globe Re", jobs[0].Company)
	assert.Equal(t, "3901", jobs[0].ExternalID)
	require.NotNil(t, jobs[0].PostedDate)
	assert.Equal(t, "2024-04-30", jobs[0].PostedDate.Format("2006-01-02"))

	u, _ := url.Parse(engine.urls[0])
	assert.Equal(t, "50", u.Query().Get("start"))
	assert.Empty(t, u.Query().Get("location"))
}

func TestSOAPagination(t *testing.T) {
	engine := &anyPage{html: `<div class="job-listing"><a class="job-title" href="/job/1">Pricing Actuary</a><span class="company-name">Zeta Life</span><span class="job-location">Remote</span></div>`}
	board := NewSOA("", engine)

	jobs, err := board.Search(context.Background(), models.Query{Page: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Pricing Actuary", jobs[0].Title)
	assert.Equal(t, "Zeta Life", jobs[0].Company)
	assert.Contains(t, jobs[0].Description, "Pricing Actuary")

	_, err = board.Search(context.Background(), models.Query{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://jobs.soa.org/jobs/", "https://jobs.soa.org/jobs/?page=2"}, engine.urls)
}

func TestCASSinglePageAndUnknownCompany(t *testing.T) {
	engine := &anyPage{html: `<article><h3>Reserving Actuary</h3><a href="/jobs/9">details</a></article>`}
	board := NewCAS("", engine)

	jobs, err := board.Search(context.Background(), models.Query{Page: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, unknownCompany, jobs[0].Company)

	jobs, err = board.Search(context.Background(), models.Query{Page: 2})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Len(t, engine.urls, 1)
}

func TestNaukriURL(t *testing.T) {
	engine := &anyPage{html: `<html></html>`}
	jobs, err := NewNaukri("", engine).Search(context.Background(), models.Query{Keywords: "Data Scientist", Location: "Pune", Page: 2})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	u, _ := url.Parse(engine.urls[0])
	assert.Equal(t, "/data-scientist-jobs-in-pune", u.Path)
	assert.Equal(t, "2", u.Query().Get("page"))
}

func TestFetchErrorIsWrapped(t *testing.T) {
	engine := &stubEngine{err: errors.New("boom")}
	_, err := NewGlassdoor("", engine).Search(context.Background(), models.Query{Keywords: "x", Page: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glassdoor: boom")
}

func TestSimplyHiredParse(t *testing.T) {
	page := `<ul><li data-testid="searchSerpJob">
  <h2><a href="/job/k1" data-jobkey="k1">Health Actuary</a></h2>
  <span data-testid="companyName">Northwind</span>
  <span data-testid="searchSerpJobLocation">Remote</span>
  <p data-testid="searchSerpJobSnippet">ASA required.</p>
</li></ul>`
	jobs, err := NewSimplyHired("https://sh.example", &anyPage{html: page}).Search(context.Background(), models.Query{Keywords: "actuary", Page: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Health Actuary", jobs[0].Title)
	assert.Equal(t, "Northwind", jobs[0].Company)
	assert.Equal(t, "k1", jobs[0].ExternalID)
	assert.Equal(t, "https://sh.example", jobs[0].BaseURL)
}

func TestRelativeDate(t *testing.T) {
	now = func() time.Time { return time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC) }
	defer func() { now = time.Now }()

	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		label string
		want  *time.Time
	}{
		{"Posted Today", ptr(day(10))},
		{"Just posted", ptr(day(10))},
		{"Yesterday", ptr(day(9))},
		{"Posted 1 day ago", ptr(day(9))},
		{"30+ days ago", ptr(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))},
		{"Hiring now", nil},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, relativeDate(tt.label))
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }

package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/config"
	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

var scrapedAt = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func sampleRecords() []models.JobRecord {
	return []models.JobRecord{
		{
			IdentityKey:     "actuary|acme",
			Title:           "Actuary",
			Company:         "Acme",
			Location:        "Hartford, CT",
			Description:     `He said, "hello"` + "\nNext line",
			Salary:          &models.Salary{Min: 85000, Max: 120000, Currency: "USD"},
			JobType:         models.JobTypeFullTime,
			ExperienceLevel: models.ExperienceMid,
			Skills:          []string{"Excel", "SQL"},
			Certifications:  []string{"ASA"},
			URL:             "https://example.com/1",
			Source:          "indeed",
			Status:          models.JobStatusActive,
			ScrapedAt:       scrapedAt,
		},
		{
			IdentityKey:     "analyst|acme",
			Title:           "Analyst",
			Company:         "Acme",
			JobType:         models.JobTypeContract,
			ExperienceLevel: models.ExperienceEntry,
			Skills:          []string{},
			Certifications:  []string{},
			Source:          "soa",
			Status:          models.JobStatusActive,
			ScrapedAt:       scrapedAt,
		},
	}
}

func TestCSVEscaping(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()[:1]))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, strings.Join(Columns, ",")+"\n"))
	assert.Contains(t, out, `"He said, ""hello""`+"\n"+`Next line"`)
	assert.Contains(t, out, `"Hartford, CT"`)
	assert.Contains(t, out, ",Excel; SQL,ASA,")
}

func TestCSVRoundTripsColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])

	first := rows[1]
	assert.Equal(t, "Actuary", first[0])
	assert.Equal(t, "85000", first[5])
	assert.Equal(t, "120000", first[6])
	assert.Equal(t, "USD", first[7])
	assert.Equal(t, "2024-05-10T12:00:00Z", first[13])
	assert.Equal(t, `He said, "hello"`+"\nNext line", first[14])

	second := rows[2]
	assert.Equal(t, "", second[5])
	assert.Equal(t, "contract", second[3])
	assert.Equal(t, "entry", second[4])
}

func TestJSONSinkOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.json")
	sink := &JSONSink{Path: path}

	require.NoError(t, sink.Export(context.Background(), sampleRecords()))
	require.NoError(t, sink.Export(context.Background(), sampleRecords()[1:]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"identityKey\"")

	var got []models.JobRecord
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Analyst", got[0].Title)
}

func TestJSONSinkEmptySetIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, (&JSONSink{Path: path}).Export(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestSinkConfigErrors(t *testing.T) {
	assert.ErrorIs(t, (&JSONSink{}).Export(context.Background(), nil), ErrSinkConfig)
	assert.ErrorIs(t, (&CSVSink{}).Export(context.Background(), nil), ErrSinkConfig)
	assert.ErrorIs(t, (&PerJobSink{}).Export(context.Background(), nil), ErrSinkConfig)

	_, err := NewPortalSink("https://portal.example", "", 0, nil, nil)
	assert.ErrorIs(t, err, ErrSinkConfig)
}

func TestPerJobSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "jobs")
	records := sampleRecords()
	records = append(records, records[0])

	require.NoError(t, (&PerJobSink{Dir: dir}).Export(context.Background(), records))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"actuary-acme.json", "actuary-acme-2.json", "analyst-acme.json"}, names)
}

func TestPerJobSinkNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	records := []models.JobRecord{
		{Title: "Actuary", Company: "Acme"},
		{Title: "Actuary", Company: "Acme"},
		{Title: "Actuary Acme", Company: "2"},
	}

	require.NoError(t, (&PerJobSink{Dir: dir}).Export(context.Background(), records))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"actuary-acme.json", "actuary-acme-2.json", "actuary-acme-2-2.json"}, names)
}

func TestDocumentSinkUpsertPreservesCreatedAt(t *testing.T) {
	store := NewMemoryStore()
	sink := NewDocumentSink("memory", store, nil)

	first := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return first }
	require.NoError(t, sink.Export(context.Background(), sampleRecords()))

	second := first.Add(48 * time.Hour)
	sink.now = func() time.Time { return second }
	updated := sampleRecords()[:1]
	updated[0].Status = models.JobStatusFilled
	require.NoError(t, sink.Export(context.Background(), updated))

	doc, ok := store.Get("actuary|acme")
	require.True(t, ok)
	assert.Equal(t, first, doc.CreatedAt)
	assert.Equal(t, second, doc.LastUpdated)
	assert.Equal(t, models.JobStatusFilled, doc.Status)

	doc, ok = store.Get("analyst|acme")
	require.True(t, ok)
	assert.Equal(t, first, doc.CreatedAt)
	assert.Equal(t, first, doc.LastUpdated)

	assert.Len(t, store.Documents(), 2)
	assert.Equal(t, second, store.LastUpdated())
}

func TestDocumentSinkUsesExternalID(t *testing.T) {
	store := NewMemoryStore()
	rec := sampleRecords()[0]
	rec.ExternalID = "abc"

	require.NoError(t, NewDocumentSink("memory", store, nil).Export(context.Background(), []models.JobRecord{rec}))
	_, ok := store.Get("indeed:abc")
	assert.True(t, ok)
}

type failingStore struct{ *MemoryStore }

func (failingStore) Upsert(context.Context, string, models.JobRecord, time.Time) (bool, error) {
	return false, errors.New("disk full")
}

func TestDocumentSinkUpsertError(t *testing.T) {
	err := NewDocumentSink("broken", failingStore{NewMemoryStore()}, nil).Export(context.Background(), sampleRecords())
	assert.ErrorIs(t, err, ErrUpsert)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "jobs.db"), "jobs")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx))
	require.NoError(t, store.EnsureCollection(ctx))

	rec := sampleRecords()[0]
	first := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	inserted, err := store.Upsert(ctx, rec.UpsertKey(), rec, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	rec.Title = "Senior Actuary"
	inserted, err = store.Upsert(ctx, rec.UpsertKey(), rec, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, inserted)

	doc, err := store.Document(ctx, rec.UpsertKey())
	require.NoError(t, err)
	assert.Equal(t, "Senior Actuary", doc.Title)
	assert.True(t, doc.CreatedAt.Equal(first))
	assert.True(t, doc.LastUpdated.Equal(first.Add(time.Hour)))
}

func TestPortalSinkBatches(t *testing.T) {
	var batches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/create", r.URL.Path)
		assert.Equal(t, "Bearer admin-key", r.Header.Get("Authorization"))

		var batch []models.JobRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		assert.LessOrEqual(t, len(batch), 2)
		atomic.AddInt32(&batches, 1)

		w.Write([]byte(`{"data":{"inserted":1,"updated":0}}`))
	}))
	defer srv.Close()

	client := fetch.NewClient(fetch.Options{MaxRetries: 1}, nil, nil)
	sink, err := NewPortalSink(srv.URL+"/", "admin-key", 2, client, nil)
	require.NoError(t, err)

	records := append(sampleRecords(), sampleRecords()...)
	records = append(records, sampleRecords()[0])
	require.NoError(t, sink.Export(context.Background(), records))
	assert.Equal(t, int32(3), atomic.LoadInt32(&batches))
}

func TestPortalSinkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := fetch.NewClient(fetch.Options{MaxRetries: 1}, nil, nil)
	sink, err := NewPortalSink(srv.URL, "k", 0, client, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, sink.Export(context.Background(), sampleRecords()), ErrUpsert)
}

type recordingSink struct {
	name string
	err  error
	got  int
}

func (r *recordingSink) Name() string { return r.name }
func (r *recordingSink) Export(_ context.Context, records []models.JobRecord) error {
	r.got = len(records)
	return r.err
}

func TestExportAllContinuesAfterFailure(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("nope")}
	good := &recordingSink{name: "good"}

	results := ExportAll(context.Background(), []Sink{bad, good}, sampleRecords(), nil)
	require.Len(t, results, 2)
	assert.Equal(t, "nope", results[0].Error)
	assert.Empty(t, results[1].Error)
	assert.Equal(t, 2, good.got)
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.JSONPath = filepath.Join(dir, "jobs.json")
	cfg.Output.CSVPath = filepath.Join(dir, "jobs.csv")
	cfg.SQLite.Path = filepath.Join(dir, "jobs.db")

	sinks, closeAll, err := FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer closeAll()

	var names []string
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"json", "csv", "sqlite"}, names)
}

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/exporter"
	"jobharvest/internal/pipeline"
	"jobharvest/internal/report"
	"jobharvest/pkg/models"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{
		"--keywords", "actuary,pricing analyst",
		"-l", "Chicago",
		"--sources", "indeed,soa",
		"--max-pages", "2",
		"--remote-only",
		"--min-salary", "90000",
		"--out", "out/jobs.json",
		"--csv", "out/jobs.csv",
		"--parallel",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, []string{"actuary", "pricing analyst"}, opts.request.Keywords)
	assert.Equal(t, []string{"Chicago"}, opts.request.Locations)
	assert.Equal(t, []string{"indeed", "soa"}, opts.request.Sources)
	assert.Equal(t, 2, opts.request.MaxPages)
	assert.True(t, opts.request.RemoteOnly)
	assert.True(t, opts.request.Parallel)
	assert.Equal(t, 90000, opts.request.MinSalary)
	assert.Equal(t, "out/jobs.json", opts.jsonPath)
	assert.Equal(t, "out/jobs.csv", opts.csvPath)
	assert.Equal(t, "configs/config.yaml", opts.configPath)
}

func TestParseFlagsRejectsBadPages(t *testing.T) {
	_, err := parseFlags([]string{"--max-pages", "11"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunHelpExitsZero(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"--help"}, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "--keywords")
}

func TestRunMissingCredentialsExitsOne(t *testing.T) {
	t.Setenv("ADZUNA_APP_ID", "")
	t.Setenv("ADZUNA_APP_KEY", "")

	var stderr bytes.Buffer
	code := run([]string{
		"--config", "does-not-exist.yaml",
		"--sources", "adzuna",
		"--keywords", "actuary",
		"--out", t.TempDir() + "/jobs.json",
	}, &bytes.Buffer{}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "ADZUNA_APP_ID")
}

func TestRunUnknownFlagExitsOne(t *testing.T) {
	assert.Equal(t, 1, run([]string{"--bogus"}, &bytes.Buffer{}, &bytes.Buffer{}))
}

func TestPrintResult(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.JobRecord{{Title: "Actuary", Company: "Acme", Source: "indeed"}}
	res := &pipeline.Result{
		Records:     records,
		Duplicates:  1,
		StartedAt:   start,
		CompletedAt: start.Add(1500 * time.Millisecond),
		Sources: []pipeline.SourceResult{
			{Name: "indeed", Pages: 1, Raw: 2, Records: 2},
			{Name: "linkedin", Error: "circuit open for www.linkedin.com"},
			{Name: "soa", Pages: 1, Raw: 3, Records: 3, Error: "page 2: timeout\npage 2: timeout"},
		},
		Exports: []exporter.Result{{Sink: "json", Records: 1}},
		Summary: report.Summarize(records),
	}

	var out bytes.Buffer
	printResult(&out, res)
	text := out.String()

	assert.Contains(t, text, "Harvest finished in 1.50s")
	assert.Contains(t, text, "linkedin     failed: circuit open")
	assert.Contains(t, text, "soa             3 jobs")
	assert.Contains(t, text, "partial: page 2: timeout; page 2: timeout")
	assert.Contains(t, text, "1 unique jobs, 1 duplicates removed")
	assert.Contains(t, text, "exported 1 jobs to json")
	assert.True(t, strings.Contains(text, "indeed"))
}

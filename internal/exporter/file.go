package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// Columns is the fixed CSV column order
var Columns = []string{
	"title", "company", "location", "job_type", "experience_level",
	"salary_min", "salary_max", "currency", "skills", "certifications",
	"url", "source", "posted_date", "scraped_at", "description",
}

// JSONSink writes the records as one pretty-printed JSON array, replacing the
// file on every export
type JSONSink struct {
	Path string
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Export(_ context.Context, records []models.JobRecord) error {
	if s.Path == "" {
		return fmt.Errorf("%w: json path is empty", ErrSinkConfig)
	}
	if records == nil {
		records = []models.JobRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return writeFile(s.Path, append(data, '\n'))
}

// CSVSink writes a header row and one row per record
type CSVSink struct {
	Path string
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Export(_ context.Context, records []models.JobRecord) error {
	if s.Path == "" {
		return fmt.Errorf("%w: csv path is empty", ErrSinkConfig)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return writeFile(s.Path, buf.Bytes())
}

// WriteCSV encodes records in Columns order. Fields containing a comma, quote
// or line break are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, records []models.JobRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(csvRow(&records[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r *models.JobRecord) []string {
	var min, max, currency, posted string
	if r.Salary != nil {
		min = strconv.Itoa(r.Salary.Min)
		max = strconv.Itoa(r.Salary.Max)
		currency = r.Salary.Currency
	}
	if r.PostedDate != nil {
		posted = r.PostedDate.Format(time.RFC3339)
	}

	return []string{
		r.Title,
		r.Company,
		r.Location,
		string(r.JobType),
		string(r.ExperienceLevel),
		min,
		max,
		currency,
		strings.Join(r.Skills, "; "),
		strings.Join(r.Certifications, "; "),
		r.URL,
		r.Source,
		posted,
		r.ScrapedAt.Format(time.RFC3339),
		r.Description,
	}
}

// PerJobSink writes each record to its own <slug>.json file in Dir
type PerJobSink struct {
	Dir string
}

func (s *PerJobSink) Name() string { return "per_job" }

func (s *PerJobSink) Export(ctx context.Context, records []models.JobRecord) error {
	if s.Dir == "" {
		return fmt.Errorf("%w: per-job directory is empty", ErrSinkConfig)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	used := make(map[string]struct{}, len(records))
	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := uniqueName(FileName(&records[i]), used)

		data, err := json.MarshalIndent(records[i], "", "  ")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
		if err := writeFile(filepath.Join(s.Dir, name+".json"), append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// uniqueName returns stem, or stem-2, stem-3, ... if that final name was
// already taken in this export, and reserves it
func uniqueName(stem string, used map[string]struct{}) string {
	name := stem
	for n := 2; ; n++ {
		if _, taken := used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s-%d", stem, n)
	}
	used[name] = struct{}{}
	return name
}

// FileName returns the per-job file stem for a record
func FileName(r *models.JobRecord) string {
	name := utils.Slugify(r.Title+"-"+r.Company, 50)
	if name == "" {
		name = "job"
	}
	return name
}

// writeFile replaces path with data, creating parent directories
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

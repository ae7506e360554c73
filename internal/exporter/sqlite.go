package exporter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"jobharvest/pkg/models"
)

// SQLiteStore is a single-file DocumentStore
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLiteStore opens (creating if needed) the database at path
func NewSQLiteStore(path, table string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", ErrSinkConfig)
	}
	if table == "" {
		table = "jobs"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkConfig, err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkConfig, err)
	}
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db, table: quoteSQLite(table)}, nil
}

func (s *SQLiteStore) EnsureCollection(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	job_key      TEXT PRIMARY KEY,
	doc          TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	last_updated TIMESTAMP NOT NULL
)`, s.table))
	if err != nil {
		return err
	}

	idx := quoteSQLite(strings.Trim(s.table, `"`) + "_status_idx")
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (status)`, idx, s.table))
	return err
}

func (s *SQLiteStore) Upsert(ctx context.Context, key string, rec models.JobRecord, now time.Time) (bool, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (job_key, doc, status, created_at, last_updated)
VALUES (?, ?, ?, ?, ?) ON CONFLICT (job_key) DO NOTHING`, s.table), key, string(doc), string(rec.Status), now, now)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	inserted := n == 1

	if !inserted {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET doc = ?, status = ?, last_updated = ? WHERE job_key = ?`, s.table),
			string(doc), string(rec.Status), now, key)
		if err != nil {
			return false, err
		}
	}

	return inserted, tx.Commit()
}

// Document loads the stored document at key
func (s *SQLiteStore) Document(ctx context.Context, key string) (models.JobDocument, error) {
	var (
		doc  models.JobDocument
		data string
	)
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT doc, created_at, last_updated FROM %s WHERE job_key = ?`, s.table), key)
	if err := row.Scan(&data, &doc.CreatedAt, &doc.LastUpdated); err != nil {
		return doc, err
	}
	if err := json.Unmarshal([]byte(data), &doc.JobRecord); err != nil {
		return doc, err
	}
	return doc, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobharvest/internal/config"
	"jobharvest/pkg/models"
)

// PostgresStore keeps one JSONB document per job key
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore connects to the database section of the config
func NewPostgresStore(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("%w: database url is empty", ErrSinkConfig)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkConfig, err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		poolCfg.MinConns = cfg.Database.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkConfig, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrSinkConfig, err)
	}

	table := cfg.Database.Table
	if table == "" {
		table = "jobs"
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

func (p *PostgresStore) EnsureCollection(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresSchema(p.table))
	return err
}

func (p *PostgresStore) Upsert(ctx context.Context, key string, rec models.JobRecord, now time.Time) (bool, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = p.pool.QueryRow(ctx, postgresUpsert(p.table), key, doc, string(rec.Status), now).Scan(&inserted)
	return inserted, err
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func postgresSchema(table string) string {
	t := pgx.Identifier{table}.Sanitize()
	idx := pgx.Identifier{table + "_status_idx"}.Sanitize()
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	job_key      TEXT PRIMARY KEY,
	doc          JSONB NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS %s ON %s (status)`, t, idx, t)
}

// postgresUpsert reports inserted rows through xmax, which is zero only for a
// freshly inserted tuple
func postgresUpsert(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (job_key, doc, status, created_at, last_updated)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (job_key) DO UPDATE
SET doc = EXCLUDED.doc, status = EXCLUDED.status, last_updated = EXCLUDED.last_updated
RETURNING (xmax = 0)`, pgx.Identifier{table}.Sanitize())
}

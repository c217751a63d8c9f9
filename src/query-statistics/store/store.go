// Package store persists aggregated query rollups into MySQL so successive
// report runs can be reviewed over time.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/newrelic/go-agent/v3/integrations/nrmysql"
	datamodels "github.com/newrelic/nri-gridstat/src/query-statistics/stats-data-models"
)

const createTableStmt = `
CREATE TABLE IF NOT EXISTS gridstat_query_rollups (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	kind VARCHAR(16) NOT NULL,
	text TEXT NOT NULL,
	executions BIGINT NOT NULL,
	duration_ms BIGINT NOT NULL,
	logical_reads BIGINT NOT NULL,
	physical_reads BIGINT NOT NULL,
	failures BIGINT NOT NULL,
	collected_at DATETIME NOT NULL,
	PRIMARY KEY (id),
	KEY idx_kind_collected_at (kind, collected_at)
)`

const insertRollupStmt = `
INSERT INTO gridstat_query_rollups
	(kind, text, executions, duration_ms, logical_reads, physical_reads, failures, collected_at)
VALUES
	(:kind, :text, :executions, :duration_ms, :logical_reads, :physical_reads, :failures, :collected_at)`

// RollupStore writes rollup rows through a MySQL connection.
type RollupStore struct {
	db *sqlx.DB
}

// Open connects to MySQL using the instrumented driver.
func Open(dsn string) (*RollupStore, error) {
	db, err := sqlx.Connect("nrmysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening rollup store: %w", err)
	}
	return &RollupStore{db: db}, nil
}

// NewWithDB wraps an existing connection. Used by tests.
func NewWithDB(db *sqlx.DB) *RollupStore {
	return &RollupStore{db: db}
}

func (s *RollupStore) Close() {
	s.db.Close()
}

// EnsureSchema creates the rollup table when it does not exist yet.
func (s *RollupStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableStmt); err != nil {
		return fmt.Errorf("error creating rollup table: %w", err)
	}
	return nil
}

// SaveRollups inserts one row per rollup entry.
func (s *RollupStore) SaveRollups(ctx context.Context, rows []datamodels.RollupRow) error {
	for _, row := range rows {
		if _, err := s.db.NamedExecContext(ctx, insertRollupStmt, row); err != nil {
			return fmt.Errorf("error saving rollup for %s query %q: %w", row.Kind, row.Text, err)
		}
	}
	return nil
}

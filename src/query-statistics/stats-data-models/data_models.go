package datamodels

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueryKind is the category of a query execution reported by the grid.
type QueryKind int

const (
	// SQLFields is a field-oriented SQL query. Its text is the SQL statement.
	SQLFields QueryKind = iota
	// Scan is a full cache scan. Its text is the cache name.
	Scan
	// Index is an index scan. Its text is the cache name.
	Index
)

// QueryKinds lists every kind tracked by the aggregation engine, in report order.
var QueryKinds = []QueryKind{SQLFields, Scan, Index}

func (k QueryKind) String() string {
	switch k {
	case SQLFields:
		return "SQL_FIELDS"
	case Scan:
		return "SCAN"
	case Index:
		return "INDEX"
	}
	return fmt.Sprintf("QueryKind(%d)", int(k))
}

// RollupSection returns the report section name holding per-text rollups of this kind.
func (k QueryKind) RollupSection() string {
	switch k {
	case SQLFields:
		return "sql"
	case Scan:
		return "scan"
	case Index:
		return "index"
	}
	return ""
}

// TopSlowSection returns the report section name holding the slowest executions of this kind.
func (k QueryKind) TopSlowSection() string {
	switch k {
	case SQLFields:
		return "topSlowSql"
	case Scan:
		return "topSlowScan"
	case Index:
		return "topSlowIndex"
	}
	return ""
}

// ParseQueryKind maps the kind name used on the wire to a QueryKind.
func ParseQueryKind(s string) (QueryKind, error) {
	switch s {
	case "SQL_FIELDS":
		return SQLFields, nil
	case "SCAN":
		return Scan, nil
	case "INDEX":
		return Index, nil
	}
	return 0, fmt.Errorf("unknown query kind %q", s)
}

// QueryIdentity identifies one query execution for correlation purposes:
// the originating node plus the query id local to that node. Reads, rows and
// property events reference the execution they describe through this pair.
type QueryIdentity struct {
	NodeID uuid.UUID
	ID     int64
}

// Query is the payload of a query completion event. It is kept verbatim in
// the per-kind top-slow leaderboard.
type Query struct {
	Kind      QueryKind
	Text      string
	NodeID    uuid.UUID
	ID        int64
	StartTime int64
	Duration  int64
	Success   bool
}

// Identity returns the correlation identity of the execution.
func (q Query) Identity() QueryIdentity {
	return QueryIdentity{NodeID: q.NodeID, ID: q.ID}
}

// QueryRollupSample is the flattened form of one rollup entry, published as
// a metric set. Tags drive the reflection-based ingestion helper.
type QueryRollupSample struct {
	QueryKind      string `metric_name:"queryKind" source_type:"attribute"`
	QueryText      string `metric_name:"queryText" source_type:"attribute"`
	ExecutionCount int64  `metric_name:"executionCount" source_type:"gauge"`
	DurationMs     int64  `metric_name:"totalDurationMs" source_type:"gauge"`
	LogicalReads   int64  `metric_name:"logicalReads" source_type:"gauge"`
	PhysicalReads  int64  `metric_name:"physicalReads" source_type:"gauge"`
	Failures       int64  `metric_name:"failures" source_type:"gauge"`
}

// RollupRow is one rollup entry as persisted by the optional MySQL store.
type RollupRow struct {
	Kind          string    `db:"kind"`
	Text          string    `db:"text"`
	Executions    int64     `db:"executions"`
	DurationMs    int64     `db:"duration_ms"`
	LogicalReads  int64     `db:"logical_reads"`
	PhysicalReads int64     `db:"physical_reads"`
	Failures      int64     `db:"failures"`
	CollectedAt   time.Time `db:"collected_at"`
}

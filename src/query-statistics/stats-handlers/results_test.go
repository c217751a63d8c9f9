package statshandlers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
	datamodels "github.com/newrelic/nri-gridstat/src/query-statistics/stats-data-models"
)

func TestResultsContainsAllSectionsWhenEmpty(t *testing.T) {
	h := NewQueryHandler(0, false)

	res := h.Results()

	for _, section := range []string{"sql", "scan", "index"} {
		require.Contains(t, res, section)
		entries, err := res[section].Map()
		assert.NoError(t, err)
		assert.Empty(t, entries)
	}
	for _, section := range []string{"topSlowSql", "topSlowScan", "topSlowIndex"} {
		require.Contains(t, res, section)
		entries, err := res[section].Array()
		assert.NoError(t, err)
		assert.Empty(t, entries)
	}
}

func TestResultsSingleSQLQueryEndToEnd(t *testing.T) {
	h := NewQueryHandler(0, false)

	h.Query(nodeA, datamodels.SQLFields, "SELECT 1", 7, 0, 500_000_000, true)
	h.QueryReads(nodeB, datamodels.SQLFields, nodeA, 7, 10, 2)
	h.QueryRows(nodeB, datamodels.SQLFields, nodeA, 7, "UPDATE", 3)

	res := h.Results()

	sql, err := res["sql"].Map()
	require.NoError(t, err)
	require.Len(t, sql, 1)

	entry := res["sql"].Get("SELECT 1")
	assert.Equal(t, int64(1), entry.Get("count").MustInt64())
	assert.Equal(t, int64(500), entry.Get("duration").MustInt64())
	assert.Equal(t, int64(10), entry.Get("logicalReads").MustInt64())
	assert.Equal(t, int64(2), entry.Get("physicalReads").MustInt64())
	assert.Equal(t, int64(0), entry.Get("failures").MustInt64())
	assert.Equal(t, int64(3), entry.Get("rows").Get("UPDATE").MustInt64())
}

func TestTopSlowRetainsSlowestWithinCapacity(t *testing.T) {
	h := NewQueryHandler(2, false)

	h.Query(nodeA, datamodels.SQLFields, "SELECT 1", 1, 0, 100_000_000, true)
	h.Query(nodeA, datamodels.SQLFields, "SELECT 1", 2, 0, 900_000_000, true)
	h.Query(nodeA, datamodels.SQLFields, "SELECT 1", 3, 0, 500_000_000, true)

	topSlow, err := h.Results()["topSlowSql"].Array()
	require.NoError(t, err)
	require.Len(t, topSlow, 2)

	first := h.Results()["topSlowSql"].GetIndex(0)
	second := h.Results()["topSlowSql"].GetIndex(1)
	assert.Equal(t, int64(500), first.Get("duration").MustInt64())
	assert.Equal(t, int64(900), second.Get("duration").MustInt64())
}

func TestTopSlowEntryFields(t *testing.T) {
	h := NewQueryHandler(0, false)

	h.Query(nodeA, datamodels.SQLFields, "SELECT * FROM big", 7, 1690000000000, 750_000_000, false)
	h.QueryReads(nodeB, datamodels.SQLFields, nodeA, 7, 42, 6)
	h.QueryRows(nodeB, datamodels.SQLFields, nodeA, 7, "READ", 1000)
	h.QueryProperty(nodeB, datamodels.SQLFields, nodeA, 7, "initiator", "job-42")

	entry := h.Results()["topSlowSql"].GetIndex(0)
	assert.Equal(t, "SELECT * FROM big", entry.Get("text").MustString())
	assert.Equal(t, int64(1690000000000), entry.Get("startTime").MustInt64())
	assert.Equal(t, int64(750), entry.Get("duration").MustInt64())
	assert.Equal(t, nodeA.String(), entry.Get("nodeId").MustString())
	assert.False(t, entry.Get("success").MustBool())
	assert.Equal(t, int64(42), entry.Get("logicalReads").MustInt64())
	assert.Equal(t, int64(6), entry.Get("physicalReads").MustInt64())
	assert.Equal(t, int64(1000), entry.Get("rows").Get("READ").MustInt64())
	assert.Equal(t, "job-42", entry.Get("properties").Get("initiator").Get("value").MustString())
	assert.Equal(t, int64(1), entry.Get("properties").Get("initiator").Get("count").MustInt64())
}

func TestTopSlowReadsDefaultToZeroWhenAbsent(t *testing.T) {
	h := NewQueryHandler(0, false)

	h.Query(nodeA, datamodels.Index, "cacheOne", 7, 0, 300_000_000, true)

	entry := h.Results()["topSlowIndex"].GetIndex(0)
	assert.Equal(t, int64(0), entry.Get("logicalReads").MustInt64())
	assert.Equal(t, int64(0), entry.Get("physicalReads").MustInt64())

	fields, err := entry.Map()
	require.NoError(t, err)
	assert.NotContains(t, fields, "rows")
	assert.NotContains(t, fields, "properties")
}

func TestUnmatchedCorrelationDataIsIgnored(t *testing.T) {
	h := NewQueryHandler(0, false)

	// Reads for an execution whose completion event never arrives.
	h.QueryReads(nodeB, datamodels.SQLFields, nodeA, 99, 10, 2)
	h.QueryRows(nodeB, datamodels.SQLFields, nodeA, 99, "UPDATE", 3)

	res := h.Results()

	entries, err := res["sql"].Map()
	require.NoError(t, err)
	assert.Empty(t, entries)

	topSlow, err := res["topSlowSql"].Array()
	require.NoError(t, err)
	assert.Empty(t, topSlow)
}

func TestResultsIsIdempotent(t *testing.T) {
	h := NewQueryHandler(0, false)

	h.Query(nodeA, datamodels.SQLFields, "SELECT 1", 7, 0, 500_000_000, true)
	h.Query(nodeB, datamodels.SQLFields, "SELECT 1", 7, 0, 250_000_000, false)
	h.Query(nodeA, datamodels.Scan, "cacheOne", 8, 0, 100_000_000, true)
	h.QueryReads(nodeB, datamodels.SQLFields, nodeA, 7, 10, 2)
	h.QueryRows(nodeB, datamodels.SQLFields, nodeA, 7, "UPDATE", 3)
	h.QueryProperty(nodeB, datamodels.SQLFields, nodeA, 7, "label", "a")

	first, err := json.Marshal(h.Results())
	require.NoError(t, err)
	second, err := json.Marshal(h.Results())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReportMatchesSchema(t *testing.T) {
	h := NewQueryHandler(0, false)

	h.Query(nodeA, datamodels.SQLFields, "SELECT 1", 7, 1690000000000, 500_000_000, true)
	h.Query(nodeA, datamodels.SQLFields, "SELECT 1", 8, 1690000001000, 900_000_000, false)
	h.Query(nodeB, datamodels.Scan, "cacheOne", 1, 1690000002000, 50_000_000, true)
	h.Query(nodeB, datamodels.Index, "cacheTwo", 2, 1690000003000, 75_000_000, true)
	h.QueryReads(nodeB, datamodels.SQLFields, nodeA, 7, 10, 2)
	h.QueryReads(nodeA, datamodels.Scan, nodeB, 1, 4, 0)
	h.QueryRows(nodeB, datamodels.SQLFields, nodeA, 7, "UPDATE", 3)
	h.QueryProperty(nodeB, datamodels.SQLFields, nodeA, 7, "label", "nightly")

	doc, err := json.Marshal(h.Results())
	require.NoError(t, err)

	schemaBytes, err := os.ReadFile(filepath.Join("testdata", "report-schema.json"))
	require.NoError(t, err)

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(doc),
	)
	require.NoError(t, err)

	for _, desc := range result.Errors() {
		t.Errorf("report schema violation: %s", desc)
	}
	assert.True(t, result.Valid())
}

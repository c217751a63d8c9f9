// Package statshandlers contains the query statistics aggregation engine:
// it correlates the four query event kinds emitted by the grid's
// performance statistics facility and builds the aggregated report.
package statshandlers

import (
	"github.com/google/uuid"
	datamodels "github.com/newrelic/nri-gridstat/src/query-statistics/stats-data-models"
	topk "github.com/newrelic/nri-gridstat/src/query-statistics/top-k"
)

// QueryHandler aggregates query statistics keyed by query kind and text,
// and tracks the slowest executions per kind in a bounded leaderboard.
//
// Ingestion is single-threaded: the event reader delivers events one at a
// time, in delivery order. Reads, rows and property events may arrive in any
// order relative to the completion event sharing their identity; they are
// joined lazily when Results is called, after ingestion has completed.
//
// The handler performs no validation of the stream. Delivering the same
// completion event twice double-counts it; guaranteeing exactly-once
// delivery is the reader's contract.
type QueryHandler struct {
	topSlowCount int

	// aggrQuery holds the per-(kind, text) rollups: kind -> text -> info.
	aggrQuery map[datamodels.QueryKind]map[string]*aggregatedQueryInfo

	correlator *identityCorrelator

	// topSlow holds the slowest executions per kind, keyed by duration.
	topSlow map[datamodels.QueryKind]*topk.BoundedTopK[datamodels.Query]
}

// NewQueryHandler creates an empty aggregation engine. topSlowCount bounds
// the per-kind slowest query leaderboard; non-positive values fall back to
// the default. scopeRowsByKind additionally scopes row and property
// correlation by query kind instead of the grid's legacy identity-only
// scoping.
func NewQueryHandler(topSlowCount int, scopeRowsByKind bool) *QueryHandler {
	return &QueryHandler{
		topSlowCount: topSlowCount,
		aggrQuery:    make(map[datamodels.QueryKind]map[string]*aggregatedQueryInfo),
		correlator:   newIdentityCorrelator(scopeRowsByKind),
		topSlow:      make(map[datamodels.QueryKind]*topk.BoundedTopK[datamodels.Query]),
	}
}

// aggregatedQueryInfo is the running rollup for one (kind, text) pair.
// Reads, rows and properties are not accumulated here; the identity sets
// recorded at merge time let the report step pull them in afterwards.
type aggregatedQueryInfo struct {
	count         int64
	totalDuration int64
	failures      int64

	// ids groups the seen execution identities by originating node.
	ids map[uuid.UUID]map[int64]struct{}
}

func (info *aggregatedQueryInfo) merge(identity datamodels.QueryIdentity, duration int64, success bool) {
	info.count++
	info.totalDuration += duration

	if !success {
		info.failures++
	}

	ids, ok := info.ids[identity.NodeID]
	if !ok {
		ids = make(map[int64]struct{})
		info.ids[identity.NodeID] = ids
	}
	ids[identity.ID] = struct{}{}
}

// Query ingests a query completion event. The execution enters both the
// (kind, text) rollup and the kind's top-slow leaderboard.
func (h *QueryHandler) Query(nodeID uuid.UUID, kind datamodels.QueryKind, text string, id int64, startTime, duration int64, success bool) {
	query := datamodels.Query{
		Kind:      kind,
		Text:      text,
		NodeID:    nodeID,
		ID:        id,
		StartTime: startTime,
		Duration:  duration,
		Success:   success,
	}

	tree, ok := h.topSlow[kind]
	if !ok {
		tree = topk.New[datamodels.Query](h.topSlowCount)
		h.topSlow[kind] = tree
	}
	tree.Put(duration, query)

	byText, ok := h.aggrQuery[kind]
	if !ok {
		byText = make(map[string]*aggregatedQueryInfo)
		h.aggrQuery[kind] = byText
	}

	info, ok := byText[text]
	if !ok {
		info = &aggregatedQueryInfo{ids: make(map[uuid.UUID]map[int64]struct{})}
		byText[text] = info
	}

	info.merge(query.Identity(), duration, success)
}

// QueryReads ingests a page reads event. Multiple partial reports for the
// same execution are summed. nodeID is the reporting node and takes no part
// in correlation; queryNodeID and id identify the execution.
func (h *QueryHandler) QueryReads(nodeID uuid.UUID, kind datamodels.QueryKind, queryNodeID uuid.UUID, id int64, logicalReads, physicalReads int64) {
	identity := datamodels.QueryIdentity{NodeID: queryNodeID, ID: id}
	h.correlator.recordReads(kind, identity, logicalReads, physicalReads)
}

// QueryRows ingests a row action event, summing row counts per
// (identity, action) pair.
func (h *QueryHandler) QueryRows(nodeID uuid.UUID, kind datamodels.QueryKind, queryNodeID uuid.UUID, id int64, action string, rows int64) {
	identity := datamodels.QueryIdentity{NodeID: queryNodeID, ID: id}
	h.correlator.recordRows(kind, identity, action, rows)
}

// QueryProperty ingests a free-form query property event, counting
// occurrences of each exact (name, value) pair per identity.
func (h *QueryHandler) QueryProperty(nodeID uuid.UUID, kind datamodels.QueryKind, queryNodeID uuid.UUID, id int64, name, value string) {
	identity := datamodels.QueryIdentity{NodeID: queryNodeID, ID: id}
	h.correlator.recordProperty(kind, identity, name, value)
}

package statshandlers

import (
	"sort"
	"time"

	"github.com/bitly/go-simplejson"
	datamodels "github.com/newrelic/nri-gridstat/src/query-statistics/stats-data-models"
)

// Results joins the rollups and the top-slow leaderboards against the
// correlated reads, rows and properties, and materializes the report as one
// JSON node per section:
//
//	"sql" / "scan" / "index":
//	    { $textOrCacheName: {"count": n, "duration": ms, "logicalReads": n,
//	      "physicalReads": n, "failures": n,
//	      "properties": {$name: {"value": v, "count": n}, ...},
//	      "rows": {$action: n, ...}} }
//	"topSlowSql" / "topSlowScan" / "topSlowIndex":
//	    [ {"text": t, "startTime": ts, "duration": ms, "nodeId": id,
//	       "success": b, "logicalReads": n, "physicalReads": n, ...}, ... ]
//
// Durations are accumulated in nanoseconds and converted to milliseconds
// here. The join never mutates the ingested state, so calling Results again
// without further ingestion produces an identical report. Missing
// correlation data shows up as zero reads and absent properties/rows
// blocks, never as an error.
func (h *QueryHandler) Results() map[string]*simplejson.Json {
	res := make(map[string]*simplejson.Json, 2*len(datamodels.QueryKinds))

	for _, kind := range datamodels.QueryKinds {
		res[kind.RollupSection()] = h.buildRollup(kind)
		res[kind.TopSlowSection()] = h.buildTopSlow(kind)
	}

	return res
}

func (h *QueryHandler) buildRollup(kind datamodels.QueryKind) *simplejson.Json {
	section := simplejson.New()

	for text, info := range h.aggrQuery[kind] {
		var logicalReads, physicalReads int64
		propTotals := make(map[string]*propEntry)
		rowTotals := make(map[string]int64)

		for nodeID, ids := range info.ids {
			for id := range ids {
				identity := datamodels.QueryIdentity{NodeID: nodeID, ID: id}

				if logical, physical, ok := h.correlator.lookupReads(kind, identity); ok {
					logicalReads += logical
					physicalReads += physical
				}

				// Rows and properties are reported for SQL queries only.
				if kind != datamodels.SQLFields {
					continue
				}

				for propKey, prop := range h.correlator.lookupProperties(kind, identity) {
					total, ok := propTotals[propKey]
					if !ok {
						total = &propEntry{name: prop.name, value: prop.value}
						propTotals[propKey] = total
					}
					total.count += prop.count
				}

				for action, rows := range h.correlator.lookupRows(kind, identity) {
					rowTotals[action] += rows
				}
			}
		}

		entry := map[string]interface{}{
			"count":         info.count,
			"duration":      durationMillis(info.totalDuration),
			"logicalReads":  logicalReads,
			"physicalReads": physicalReads,
			"failures":      info.failures,
		}

		if len(propTotals) > 0 {
			entry["properties"] = propertiesNode(propTotals)
		}
		if len(rowTotals) > 0 {
			entry["rows"] = rowsNode(rowTotals)
		}

		section.Set(text, entry)
	}

	return section
}

func (h *QueryHandler) buildTopSlow(kind datamodels.QueryKind) *simplejson.Json {
	entries := make([]interface{}, 0)

	if tree, ok := h.topSlow[kind]; ok {
		for _, query := range tree.Values() {
			entry := map[string]interface{}{
				"text":          query.Text,
				"startTime":     query.StartTime,
				"duration":      durationMillis(query.Duration),
				"nodeId":        query.NodeID.String(),
				"success":       query.Success,
				"logicalReads":  int64(0),
				"physicalReads": int64(0),
			}

			identity := query.Identity()

			if logical, physical, ok := h.correlator.lookupReads(kind, identity); ok {
				entry["logicalReads"] = logical
				entry["physicalReads"] = physical
			}

			if kind == datamodels.SQLFields {
				if props := h.correlator.lookupProperties(kind, identity); len(props) > 0 {
					entry["properties"] = propertiesNode(props)
				}
				if rows := h.correlator.lookupRows(kind, identity); len(rows) > 0 {
					entry["rows"] = rowsNode(rows)
				}
			}

			entries = append(entries, entry)
		}
	}

	arr := simplejson.New()
	arr.SetPath([]string{}, entries)
	return arr
}

// propertiesNode renders accumulated property entries keyed by property
// name. When the same name was reported with several values, the entry with
// the smallest "name=value" key wins the name slot.
func propertiesNode(props map[string]*propEntry) map[string]interface{} {
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	node := make(map[string]interface{}, len(props))
	for _, key := range keys {
		prop := props[key]
		if _, ok := node[prop.name]; ok {
			continue
		}
		node[prop.name] = map[string]interface{}{
			"value": prop.value,
			"count": prop.count,
		}
	}
	return node
}

func rowsNode(rows map[string]int64) map[string]interface{} {
	node := make(map[string]interface{}, len(rows))
	for action, count := range rows {
		node[action] = count
	}
	return node
}

func durationMillis(nanos int64) int64 {
	return time.Duration(nanos).Milliseconds()
}

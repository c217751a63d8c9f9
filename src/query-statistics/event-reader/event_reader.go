// Package eventreader decodes the grid's performance statistics event log
// and replays it against a query statistics handler.
//
// The log is newline-delimited JSON. Every line carries an "op"
// discriminator naming the event kind; node identifiers are UUID strings
// and durations are nanoseconds:
//
//	{"op":"query","nodeId":"...","type":"SQL_FIELDS","text":"SELECT ...",
//	 "id":7,"startTime":1690000000000,"duration":500000000,"success":true}
//	{"op":"queryReads","nodeId":"...","type":"SQL_FIELDS",
//	 "queryNodeId":"...","id":7,"logicalReads":10,"physicalReads":2}
//	{"op":"queryRows","nodeId":"...","type":"SQL_FIELDS",
//	 "queryNodeId":"...","id":7,"action":"UPDATE","rows":3}
//	{"op":"queryProperty","nodeId":"...","type":"SQL_FIELDS",
//	 "queryNodeId":"...","id":7,"name":"label","value":"nightly"}
package eventreader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/bitly/go-simplejson"
	"github.com/google/uuid"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
	datamodels "github.com/newrelic/nri-gridstat/src/query-statistics/stats-data-models"
)

// Event ops recognized by the reader.
const (
	OpQuery         = "query"
	OpQueryReads    = "queryReads"
	OpQueryRows     = "queryRows"
	OpQueryProperty = "queryProperty"
)

// maxLineSize bounds a single event line. Query texts dominate line length
// and the grid truncates them well below this.
const maxLineSize = 1024 * 1024

// QueryStatisticsHandler receives decoded query events in delivery order.
// The reader guarantees each log line is delivered at most once; handlers
// rely on that and do not deduplicate.
type QueryStatisticsHandler interface {
	Query(nodeID uuid.UUID, kind datamodels.QueryKind, text string, id int64, startTime, duration int64, success bool)
	QueryReads(nodeID uuid.UUID, kind datamodels.QueryKind, queryNodeID uuid.UUID, id int64, logicalReads, physicalReads int64)
	QueryRows(nodeID uuid.UUID, kind datamodels.QueryKind, queryNodeID uuid.UUID, id int64, action string, rows int64)
	QueryProperty(nodeID uuid.UUID, kind datamodels.QueryKind, queryNodeID uuid.UUID, id int64, name, value string)
}

// Process reads the event log from r and dispatches every event to the
// handler. Malformed lines and unknown ops are logged and skipped so a
// partially corrupted log still yields a report; only a read failure on the
// underlying source is returned as an error.
func Process(r io.Reader, handler QueryStatisticsHandler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		js, err := simplejson.NewJson(line)
		if err != nil {
			log.Warn("Skipping malformed event at line %d: %v", lineNo, err)
			continue
		}

		if err := dispatch(js, handler); err != nil {
			log.Warn("Skipping event at line %d: %v", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading event log at line %d: %w", lineNo, err)
	}
	return nil
}

func dispatch(js *simplejson.Json, handler QueryStatisticsHandler) error {
	op := js.Get("op").MustString()

	kind, err := datamodels.ParseQueryKind(js.Get("type").MustString())
	if err != nil {
		return err
	}

	nodeID, err := uuid.Parse(js.Get("nodeId").MustString())
	if err != nil {
		return fmt.Errorf("invalid nodeId: %w", err)
	}

	if op == OpQuery {
		handler.Query(
			nodeID,
			kind,
			js.Get("text").MustString(),
			js.Get("id").MustInt64(),
			js.Get("startTime").MustInt64(),
			js.Get("duration").MustInt64(),
			js.Get("success").MustBool(),
		)
		return nil
	}

	// The remaining ops reference the execution they describe through the
	// originating node and its local query id.
	queryNodeID, err := uuid.Parse(js.Get("queryNodeId").MustString())
	if err != nil {
		return fmt.Errorf("invalid queryNodeId: %w", err)
	}
	id := js.Get("id").MustInt64()

	switch op {
	case OpQueryReads:
		handler.QueryReads(nodeID, kind, queryNodeID, id,
			js.Get("logicalReads").MustInt64(),
			js.Get("physicalReads").MustInt64())
	case OpQueryRows:
		handler.QueryRows(nodeID, kind, queryNodeID, id,
			js.Get("action").MustString(),
			js.Get("rows").MustInt64())
	case OpQueryProperty:
		handler.QueryProperty(nodeID, kind, queryNodeID, id,
			js.Get("name").MustString(),
			js.Get("value").MustString())
	default:
		return fmt.Errorf("unknown op %q", op)
	}

	return nil
}

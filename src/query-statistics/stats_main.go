package querystatistics

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/newrelic/infra-integrations-sdk/v3/integration"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
	arguments "github.com/newrelic/nri-gridstat/src/args"
	commonutils "github.com/newrelic/nri-gridstat/src/query-statistics/common-utils"
	"github.com/newrelic/nri-gridstat/src/query-statistics/constants"
	eventreader "github.com/newrelic/nri-gridstat/src/query-statistics/event-reader"
	gridstatapm "github.com/newrelic/nri-gridstat/src/query-statistics/gridstat-apm"
	datamodels "github.com/newrelic/nri-gridstat/src/query-statistics/stats-data-models"
	statshandlers "github.com/newrelic/nri-gridstat/src/query-statistics/stats-handlers"
	"github.com/newrelic/nri-gridstat/src/query-statistics/store"
)

// storeTimeout bounds the optional rollup persistence step.
const storeTimeout = 30 * time.Second

// PopulateQueryStatistics runs the aggregation pipeline: replay the
// performance statistics event log through the query handler, write the
// aggregated report, then publish rollup metrics and persist rollups when
// configured.
func PopulateQueryStatistics(args arguments.ArgumentList, i *integration.Integration) error {
	if args.StatsPath == "" {
		return fmt.Errorf("stats_path is required")
	}

	f, err := os.Open(args.StatsPath)
	if err != nil {
		return fmt.Errorf("error opening statistics event log: %w", err)
	}
	defer f.Close()

	topSlowCount := args.TopSlowCount
	if topSlowCount <= 0 {
		topSlowCount = constants.DefaultTopSlowCount
	}
	handler := statshandlers.NewQueryHandler(topSlowCount, args.ScopeRowsByKind)

	if gridstatapm.Txn != nil {
		defer gridstatapm.Txn.StartSegment("AggregateQueryStatistics").End()
	}

	start := time.Now()
	log.Debug("Beginning to process performance statistics events")
	if err := eventreader.Process(f, handler); err != nil {
		return err
	}
	log.Debug("Completed processing events in %v", time.Since(start))

	results := handler.Results()

	if err := commonutils.WriteReport(args.Output, results); err != nil {
		return err
	}
	log.Debug("Report written to %s", args.Output)

	if args.HasMetrics() {
		samples := commonutils.RollupSamplesFromReport(results)
		commonutils.IngestMetric(commonutils.ConvertToInterfaceSlice(samples), constants.RollupSampleName, i)
	}

	if args.StoreDSN != "" {
		rows := commonutils.RollupRowsFromReport(results, time.Now().UTC())
		if err := persistRollups(args.StoreDSN, rows); err != nil {
			return err
		}
		log.Debug("Persisted %d rollup rows", len(rows))
	}

	return nil
}

func persistRollups(dsn string, rows []datamodels.RollupRow) error {
	st, err := store.Open(dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	return st.SaveRollups(ctx, rows)
}

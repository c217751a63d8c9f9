package constants

const (
	IntegrationName = "com.newrelic.gridstat"
	// MetricSetLimit defines the maximum number of metric sets published in a single batch.
	MetricSetLimit = 100
	// RollupSampleName is the event type used when publishing per-query rollup metrics.
	RollupSampleName = "GridQueryStatsSample"
	// DefaultTopSlowCount bounds the per-kind leaderboard of slowest query executions.
	// It matches the default of the grid's own performance statistics report tool.
	DefaultTopSlowCount = 30
)

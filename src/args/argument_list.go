package args

import (
	sdkArgs "github.com/newrelic/infra-integrations-sdk/v3/args"
)

// ArgumentList defines the command line and environment arguments accepted
// by the integration.
type ArgumentList struct {
	sdkArgs.DefaultArgumentList
	StatsPath       string `default:"" help:"Path to the performance statistics event log (newline-delimited JSON)."`
	Output          string `default:"gridstat-report.json" help:"Path the aggregated query statistics report is written to."`
	TopSlowCount    int    `default:"30" help:"Number of slowest queries to retain per query kind."`
	ScopeRowsByKind bool   `default:"false" help:"Scope row and property correlation by query kind in addition to the query identity."`
	StoreDSN        string `default:"" help:"Optional MySQL DSN used to persist aggregated rollups for retention."`
	AppName         string `default:"" help:"APM application name. Instruments the aggregation run when set."`
	LicenseKey      string `default:"" help:"License key used for APM instrumentation."`
	ShowVersion     bool   `default:"false" help:"Print build information and exit"`
}

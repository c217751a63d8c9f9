package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/newrelic/infra-integrations-sdk/v3/integration"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
	arguments "github.com/newrelic/nri-gridstat/src/args"
	querystatistics "github.com/newrelic/nri-gridstat/src/query-statistics"
	commonutils "github.com/newrelic/nri-gridstat/src/query-statistics/common-utils"
	"github.com/newrelic/nri-gridstat/src/query-statistics/constants"
	gridstatapm "github.com/newrelic/nri-gridstat/src/query-statistics/gridstat-apm"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	args               arguments.ArgumentList
	integrationVersion = "0.0.0"
	gitCommit          = ""
	buildDate          = ""
)

func main() {
	i, err := integration.New(constants.IntegrationName, integrationVersion, integration.Args(&args))
	commonutils.FatalIfErr(err)

	if args.ShowVersion {
		fmt.Printf(
			"New Relic %s integration Version: %s, Platform: %s, GoVersion: %s, GitCommit: %s, BuildDate: %s\n",
			cases.Title(language.Und).String(strings.Replace(constants.IntegrationName, "com.newrelic.", "", 1)),
			integrationVersion,
			fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
			runtime.Version(),
			gitCommit,
			buildDate)
		os.Exit(0)
	}

	log.SetupLogging(args.Verbose)

	if args.AppName != "" {
		gridstatapm.ArgsAppName = args.AppName
		gridstatapm.ArgsKey = args.LicenseKey
		gridstatapm.InitApp()

		if gridstatapm.App != nil {
			defer gridstatapm.App.Shutdown(10 * time.Second)

			txn := gridstatapm.App.StartTransaction("GridStatReport")
			gridstatapm.Txn = txn
			defer txn.End()
		}
	}

	commonutils.FatalIfErr(querystatistics.PopulateQueryStatistics(args, i))
}

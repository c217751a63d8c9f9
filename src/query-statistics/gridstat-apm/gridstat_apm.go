package gridstatapm

import (
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
)

var ArgsAppName = ""
var ArgsKey = ""
var App *newrelic.Application = nil
var Txn *newrelic.Transaction = nil

// InitApp creates the APM application used to instrument the aggregation
// run. It is a no-op observability layer: failures are logged and the run
// proceeds uninstrumented.
func InitApp() {
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(ArgsAppName),
		newrelic.ConfigLicense(ArgsKey),
		newrelic.ConfigDebugLogger(os.Stdout),
	)
	if err != nil {
		log.Error("Error creating APM application: %s", err.Error())
		return
	}

	if err := app.WaitForConnection(10 * time.Second); err != nil {
		log.Debug("APM application did not connect: %v", err)
		return
	}

	log.Debug("APM application initialized successfully")
	App = app
}

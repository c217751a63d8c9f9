package commonutils

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"time"

	"github.com/bitly/go-simplejson"
	"github.com/newrelic/infra-integrations-sdk/v3/data/metric"
	"github.com/newrelic/infra-integrations-sdk/v3/integration"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
	"github.com/newrelic/nri-gridstat/src/query-statistics/constants"
	datamodels "github.com/newrelic/nri-gridstat/src/query-statistics/stats-data-models"
)

func FatalIfErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// WriteReport writes the report sections as one indented JSON document.
// encoding/json orders object keys, so the same report always marshals to
// the same bytes.
func WriteReport(path string, results map[string]*simplejson.Json) error {
	doc, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}

	if err := os.WriteFile(path, append(doc, '\n'), 0o644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}

// rollupEntries walks the rollup sections of a report and invokes fn for
// every (kind, text, entry) triple, texts in sorted order.
func rollupEntries(results map[string]*simplejson.Json, fn func(kind datamodels.QueryKind, text string, entry *simplejson.Json)) {
	for _, kind := range datamodels.QueryKinds {
		section, ok := results[kind.RollupSection()]
		if !ok {
			continue
		}

		entries, err := section.Map()
		if err != nil {
			log.Warn("Report section %q is not an object: %v", kind.RollupSection(), err)
			continue
		}

		texts := make([]string, 0, len(entries))
		for text := range entries {
			texts = append(texts, text)
		}
		sort.Strings(texts)

		for _, text := range texts {
			fn(kind, text, section.Get(text))
		}
	}
}

// RollupSamplesFromReport flattens the report's rollup sections into metric
// samples, one per (kind, text) pair.
func RollupSamplesFromReport(results map[string]*simplejson.Json) []datamodels.QueryRollupSample {
	var samples []datamodels.QueryRollupSample

	rollupEntries(results, func(kind datamodels.QueryKind, text string, entry *simplejson.Json) {
		samples = append(samples, datamodels.QueryRollupSample{
			QueryKind:      kind.String(),
			QueryText:      text,
			ExecutionCount: entry.Get("count").MustInt64(),
			DurationMs:     entry.Get("duration").MustInt64(),
			LogicalReads:   entry.Get("logicalReads").MustInt64(),
			PhysicalReads:  entry.Get("physicalReads").MustInt64(),
			Failures:       entry.Get("failures").MustInt64(),
		})
	})

	return samples
}

// RollupRowsFromReport flattens the report's rollup sections into store
// rows stamped with the given collection time.
func RollupRowsFromReport(results map[string]*simplejson.Json, collectedAt time.Time) []datamodels.RollupRow {
	var rows []datamodels.RollupRow

	rollupEntries(results, func(kind datamodels.QueryKind, text string, entry *simplejson.Json) {
		rows = append(rows, datamodels.RollupRow{
			Kind:          kind.String(),
			Text:          text,
			Executions:    entry.Get("count").MustInt64(),
			DurationMs:    entry.Get("duration").MustInt64(),
			LogicalReads:  entry.Get("logicalReads").MustInt64(),
			PhysicalReads: entry.Get("physicalReads").MustInt64(),
			Failures:      entry.Get("failures").MustInt64(),
			CollectedAt:   collectedAt,
		})
	})

	return rows
}

// ConvertToInterfaceSlice widens a typed slice for metric ingestion.
func ConvertToInterfaceSlice[T any](items []T) []interface{} {
	result := make([]interface{}, len(items))
	for i, item := range items {
		result[i] = item
	}
	return result
}

// SetMetric sets a metric in the given metric set.
func SetMetric(metricSet *metric.Set, name string, value interface{}, sourceType string) {
	switch sourceType {
	case "gauge":
		err := metricSet.SetMetric(name, value, metric.GAUGE)
		if err != nil {
			log.Warn("Error setting gauge metric: %v", err)
		}
	case "attribute":
		err := metricSet.SetMetric(name, value, metric.ATTRIBUTE)
		if err != nil {
			log.Warn("Error setting attribute metric: %v", err)
		}
	default:
		err := metricSet.SetMetric(name, value, metric.GAUGE)
		if err != nil {
			log.Warn("Error setting default gauge metric: %v", err)
		}
	}
}

// IngestMetric ingests a list of metric models into the integration,
// publishing in batches of MetricSetLimit. Field tags (metric_name,
// source_type) drive the mapping.
func IngestMetric(metricList []interface{}, eventName string, i *integration.Integration) {
	metricCount := 0
	instanceEntity := i.LocalEntity()

	for _, model := range metricList {
		if model == nil {
			continue
		}
		metricCount++
		metricSet := instanceEntity.NewMetricSet(eventName)

		modelValue := reflect.ValueOf(model)
		if modelValue.Kind() == reflect.Ptr {
			modelValue = modelValue.Elem()
		}
		if !modelValue.IsValid() || modelValue.Kind() != reflect.Struct {
			continue
		}

		modelType := modelValue.Type()

		for f := 0; f < modelValue.NumField(); f++ {
			field := modelValue.Field(f)
			fieldType := modelType.Field(f)
			metricName := fieldType.Tag.Get("metric_name")
			sourceType := fieldType.Tag.Get("source_type")

			if field.Kind() == reflect.Ptr && !field.IsNil() {
				SetMetric(metricSet, metricName, field.Elem().Interface(), sourceType)
			} else if field.Kind() != reflect.Ptr {
				SetMetric(metricSet, metricName, field.Interface(), sourceType)
			}
		}

		if metricCount > constants.MetricSetLimit {
			metricCount = 0
			if err := i.Publish(); err != nil {
				log.Error("Error publishing metrics: %v", err)
				return
			}
			instanceEntity = i.LocalEntity()
		}
	}

	if metricCount > 0 {
		if err := i.Publish(); err != nil {
			log.Error("Error publishing metrics: %v", err)
		}
	}
}

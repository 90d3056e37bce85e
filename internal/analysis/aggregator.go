package analysis

import (
	"fmt"
	"strings"

	"salesinsight/internal/dataset"
)

// DefaultTopN is the row limit of the ranking reports
const DefaultTopN = 10

// Aggregator turns an enriched table into zero or more report tables. An
// aggregator whose inputs are missing returns nil and records a diagnostic.
// Aggregators only read the table.
type Aggregator interface {
	Name() string
	Aggregate(t *dataset.Table, sink LogSink) []*Report
}

// DefaultAggregators returns the standard aggregators in report order
func DefaultAggregators(topN int) []Aggregator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return []Aggregator{
		TopProducts{N: topN},
		LoyalCustomers{N: topN},
		ProfitabilityTrend{},
		CategoryBreakdown{},
		RegionMonth{},
		FinalReport{},
	}
}

// requireColumns resolves the roles and checks the derived columns an
// aggregator needs. It records a diagnostic and returns false when anything
// is missing.
func requireColumns(t *dataset.Table, sink LogSink, step string, roles []Role, derived ...string) (Roles, bool) {
	resolved := ResolveAll(t.Columns())
	missing := resolved.Missing(roles...)
	for _, col := range derived {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sink.Diagnostic(step, fmt.Sprintf("required columns not found: %s", strings.Join(missing, ", ")))
		return resolved, false
	}
	return resolved, true
}

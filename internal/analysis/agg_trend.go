package analysis

import (
	"fmt"

	"salesinsight/internal/dataset"
)

// StepProfitTrend is the analysis log step of ProfitabilityTrend
const StepProfitTrend = "Profitability Trend"

// ProfitabilityTrend summarizes profit per calendar month
type ProfitabilityTrend struct{}

// Name implements Aggregator
func (ProfitabilityTrend) Name() string { return "profitability_trend" }

// Aggregate implements Aggregator
func (a ProfitabilityTrend) Aggregate(t *dataset.Table, sink LogSink) []*Report {
	sink = sinkOrDiscard(sink)
	roles, ok := requireColumns(t, sink, StepProfitTrend, []Role{RoleProfit}, ColYear, ColMonth, ColMonthName)
	if !ok {
		return nil
	}
	profit := roles[RoleProfit]
	hasMargin := t.HasColumn(ColProfitMargin)

	groups := groupRows(t, ColYear, ColMonth, ColMonthName)
	sortStableBy(groups, func(x, y *group) bool {
		if c := x.keys[0].Compare(y.keys[0]); c != 0 {
			return c < 0
		}
		return x.keys[1].Compare(y.keys[1]) < 0
	})

	report := NewReport(a.Name(),
		KeyColumn(ColYear),
		KeyColumn(ColMonth),
		KeyColumn(ColMonthName),
		AmountColumn("Total_Profit"),
		AmountColumn("Average_Profit"),
		AmountColumn("Average_Profit_Margin"),
	)
	for _, g := range groups {
		p := columnStats(t, profit, g.rows)
		var margin any
		if hasMargin {
			m := columnStats(t, ColProfitMargin, g.rows)
			margin = m.mean()
		}
		report.AddRow(g.keys[0], g.keys[1], g.keys[2], p.sum, p.mean(), margin)
	}
	sink.Record(StepProfitTrend, fmt.Sprintf("computed profitability for %d months", report.Len()))
	return []*Report{report}
}

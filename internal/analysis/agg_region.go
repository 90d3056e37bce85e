package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"salesinsight/internal/dataset"
)

// StepRegion is the analysis log step of RegionMonth
const StepRegion = "Regional Sales"

// RegionMonth breaks sales down by region and month. It produces the
// region x month detail plus a per-region and a per-month summary of the
// monthly totals.
type RegionMonth struct{}

// Name implements Aggregator
func (RegionMonth) Name() string { return "regional_monthly_sales" }

type regionMonthTotal struct {
	region    dataset.Value
	monthName dataset.Value
	month     dataset.Value
	total     decimal.Decimal
}

// Aggregate implements Aggregator
func (a RegionMonth) Aggregate(t *dataset.Table, sink LogSink) []*Report {
	sink = sinkOrDiscard(sink)
	roles, ok := requireColumns(t, sink, StepRegion, []Role{RoleRegion, RoleSales}, ColMonth, ColMonthName)
	if !ok {
		return nil
	}
	region, sales := roles[RoleRegion], roles[RoleSales]

	var totals []regionMonthTotal
	for _, g := range groupRows(t, region, ColMonthName, ColMonth) {
		totals = append(totals, regionMonthTotal{
			region:    g.keys[0],
			monthName: g.keys[1],
			month:     g.keys[2],
			total:     columnStats(t, sales, g.rows).sum,
		})
	}
	sortStableBy(totals, func(x, y regionMonthTotal) bool {
		if c := x.region.Compare(y.region); c != 0 {
			return c < 0
		}
		return x.month.Compare(y.month) < 0
	})

	detail := NewReport(a.Name(),
		KeyColumn(region),
		KeyColumn(ColMonthName),
		KeyColumn(ColMonth),
		AmountColumn("Total_Sales"),
	)
	for _, tot := range totals {
		detail.AddRow(tot.region, tot.monthName, tot.month, tot.total)
	}

	reports := []*Report{detail, regionSummary(region, totals), monthSummary(totals)}
	sink.Record(StepRegion, fmt.Sprintf("computed %d region-month totals across %d regions",
		detail.Len(), reports[1].Len()))
	return reports
}

type summaryGroup struct {
	keys  []dataset.Value
	stats stats
}

// summarize groups the monthly totals by key, in first-appearance order
func summarize(totals []regionMonthTotal, key func(regionMonthTotal) []dataset.Value) []*summaryGroup {
	var out []*summaryGroup
	index := make(map[string]*summaryGroup)
	for _, tot := range totals {
		keys := key(tot)
		id := dataset.Key(keys...)
		g, ok := index[id]
		if !ok {
			g = &summaryGroup{keys: keys}
			index[id] = g
			out = append(out, g)
		}
		g.stats.add(tot.total)
	}
	return out
}

func regionSummary(region string, totals []regionMonthTotal) *Report {
	groups := summarize(totals, func(t regionMonthTotal) []dataset.Value {
		return []dataset.Value{t.region}
	})
	sortStableBy(groups, func(x, y *summaryGroup) bool { return x.stats.sum.GreaterThan(y.stats.sum) })

	report := NewReport("regional_summary",
		KeyColumn(region),
		AmountColumn("Total_Sales"),
		AmountColumn("Max_Monthly_Sales"),
		AmountColumn("Min_Monthly_Sales"),
		AmountColumn("Average_Monthly_Sales"),
	)
	for _, g := range groups {
		report.AddRow(g.keys[0], g.stats.sum, g.stats.max, g.stats.min, g.stats.mean())
	}
	return report
}

func monthSummary(totals []regionMonthTotal) *Report {
	groups := summarize(totals, func(t regionMonthTotal) []dataset.Value {
		return []dataset.Value{t.month, t.monthName}
	})
	sortStableBy(groups, func(x, y *summaryGroup) bool { return x.keys[0].Compare(y.keys[0]) < 0 })

	report := NewReport("monthly_summary",
		KeyColumn(ColMonth),
		KeyColumn(ColMonthName),
		AmountColumn("Total_Sales"),
		AmountColumn("Max_Regional_Sales"),
		AmountColumn("Min_Regional_Sales"),
		AmountColumn("Average_Regional_Sales"),
	)
	for _, g := range groups {
		report.AddRow(g.keys[0], g.keys[1], g.stats.sum, g.stats.max, g.stats.min, g.stats.mean())
	}
	return report
}

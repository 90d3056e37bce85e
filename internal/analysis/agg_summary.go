package analysis

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"salesinsight/internal/dataset"
)

// StepFinalReport is the analysis log step of FinalReport
const StepFinalReport = "Final Report"

// Final report metric labels, in output order
const (
	MetricTransactions  = "Total Transactions"
	MetricTotalSales    = "Total Sales"
	MetricAverageSale   = "Average Sale"
	MetricMaxSale       = "Maximum Sale"
	MetricMinSale       = "Minimum Sale"
	MetricTotalProfit   = "Total Profit"
	MetricAverageProfit = "Average Profit"
	MetricAverageMargin = "Average Profit Margin"
)

const notAvailable = "N/A"

// FinalReport produces the whole-table Metric/Value summary with display
// formatted values. A transaction is a row with a Sales value.
type FinalReport struct{}

// Name implements Aggregator
func (FinalReport) Name() string { return "summary_report" }

// Aggregate implements Aggregator
func (a FinalReport) Aggregate(t *dataset.Table, sink LogSink) []*Report {
	sink = sinkOrDiscard(sink)
	roles, ok := requireColumns(t, sink, StepFinalReport, []Role{RoleSales})
	if !ok {
		return nil
	}
	rows := allRows(t)
	s := columnStats(t, roles[RoleSales], rows)

	report := NewReport(a.Name(), TextColumn("Metric"), TextColumn("Value"))
	report.AddRow(MetricTransactions, humanize.Comma(s.n))
	report.AddRow(MetricTotalSales, FormatCurrency(s.sum))
	report.AddRow(MetricAverageSale, formatNullCurrency(s.mean()))
	report.AddRow(MetricMaxSale, formatExtreme(s, s.max))
	report.AddRow(MetricMinSale, formatExtreme(s, s.min))

	if profit, ok := roles.Get(RoleProfit); ok {
		p := columnStats(t, profit, rows)
		report.AddRow(MetricTotalProfit, FormatCurrency(p.sum))
		report.AddRow(MetricAverageProfit, formatNullCurrency(p.mean()))
	}
	if t.HasColumn(ColProfitMargin) {
		m := columnStats(t, ColProfitMargin, rows).mean()
		if m.Valid {
			report.AddRow(MetricAverageMargin, FormatPercent(m.Decimal))
		} else {
			report.AddRow(MetricAverageMargin, notAvailable)
		}
	}

	sink.Record(StepFinalReport, fmt.Sprintf("summarized %d transactions", s.n))
	return []*Report{report}
}

// FormatCurrency renders d as dollars with thousands separators and two
// decimals, e.g. $1,234.56 or -$7.50
func FormatCurrency(d decimal.Decimal) string {
	d = round2(d)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	wholeDec, err := decimal.NewFromString(whole)
	if err != nil {
		return sign + "$" + fixed
	}
	return sign + "$" + humanize.BigComma(wholeDec.BigInt()) + "." + frac
}

// FormatPercent renders d as a two-decimal percentage, e.g. 12.34%
func FormatPercent(d decimal.Decimal) string {
	return round2(d).StringFixed(2) + "%"
}

func formatNullCurrency(d decimal.NullDecimal) string {
	if !d.Valid {
		return notAvailable
	}
	return FormatCurrency(d.Decimal)
}

func formatExtreme(s stats, d decimal.Decimal) string {
	if s.n == 0 {
		return notAvailable
	}
	return FormatCurrency(d)
}

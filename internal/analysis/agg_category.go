package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"salesinsight/internal/dataset"
)

// StepCategory is the analysis log step of CategoryBreakdown
const StepCategory = "Category Performance"

// CategoryBreakdown summarizes sales per category with each category's share
// of total sales
type CategoryBreakdown struct{}

// Name implements Aggregator
func (CategoryBreakdown) Name() string { return "category_performance" }

// Aggregate implements Aggregator
func (a CategoryBreakdown) Aggregate(t *dataset.Table, sink LogSink) []*Report {
	sink = sinkOrDiscard(sink)
	roles, ok := requireColumns(t, sink, StepCategory, []Role{RoleCategory, RoleSales})
	if !ok {
		return nil
	}
	category, sales := roles[RoleCategory], roles[RoleSales]
	profit, hasProfit := roles.Get(RoleProfit)

	type row struct {
		key    dataset.Value
		sales  stats
		profit decimal.Decimal
	}
	var rows []row
	grand := decimal.Zero
	for _, g := range groupRows(t, category) {
		r := row{key: g.keys[0], sales: columnStats(t, sales, g.rows)}
		if hasProfit {
			r.profit = columnStats(t, profit, g.rows).sum
		}
		grand = grand.Add(r.sales.sum)
		rows = append(rows, r)
	}
	sortStableBy(rows, func(x, y row) bool { return x.sales.sum.GreaterThan(y.sales.sum) })

	cols := []ColumnSpec{
		KeyColumn(category),
		AmountColumn("Total_Sales"),
		AmountColumn("Average_Sales"),
		CountColumn("Transaction_Count"),
	}
	if hasProfit {
		cols = append(cols, AmountColumn("Total_Profit"))
	}
	cols = append(cols, AmountColumn("Sales_Percentage"))
	report := NewReport(a.Name(), cols...)

	for _, r := range rows {
		var share any
		if !grand.IsZero() {
			share = r.sales.sum.Mul(hundred).Div(grand)
		}
		values := []any{r.key, r.sales.sum, r.sales.mean(), int(r.sales.n)}
		if hasProfit {
			values = append(values, r.profit)
		}
		values = append(values, share)
		report.AddRow(values...)
	}
	sink.Record(StepCategory, fmt.Sprintf("summarized %d categories", report.Len()))
	return []*Report{report}
}

package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"

	"salesinsight/internal/dataset"
)

// StepTopProducts is the analysis log step of TopProducts
const StepTopProducts = "Top Products"

// TopProducts ranks products by total sales
type TopProducts struct {
	N int
}

// Name implements Aggregator
func (TopProducts) Name() string { return "top_products" }

// Aggregate implements Aggregator
func (a TopProducts) Aggregate(t *dataset.Table, sink LogSink) []*Report {
	sink = sinkOrDiscard(sink)
	roles, ok := requireColumns(t, sink, StepTopProducts, []Role{RoleProduct, RoleSales})
	if !ok {
		return nil
	}
	product, sales := roles[RoleProduct], roles[RoleSales]
	qty, hasQty := roles.Get(RoleQuantity)

	type row struct {
		key   dataset.Value
		sales decimal.Decimal
		qty   decimal.Decimal
		count int
	}
	var rows []row
	for _, g := range groupRows(t, product) {
		r := row{key: g.keys[0], sales: columnStats(t, sales, g.rows).sum, count: len(g.rows)}
		if hasQty {
			r.qty = columnStats(t, qty, g.rows).sum
		}
		rows = append(rows, r)
	}
	sortStableBy(rows, func(x, y row) bool { return x.sales.GreaterThan(y.sales) })
	rows = truncate(rows, a.N)

	third := CountColumn("Transaction_Count")
	if hasQty {
		third = AmountColumn("Total_Quantity")
	}
	report := NewReport(a.Name(), KeyColumn(product), AmountColumn("Total_Sales"), third)
	for _, r := range rows {
		if hasQty {
			report.AddRow(r.key, r.sales, r.qty)
		} else {
			report.AddRow(r.key, r.sales, r.count)
		}
	}
	sink.Record(StepTopProducts, fmt.Sprintf("ranked top %d products by %s", report.Len(), sales))
	return []*Report{report}
}

func truncate[T any](items []T, n int) []T {
	if n <= 0 {
		n = DefaultTopN
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

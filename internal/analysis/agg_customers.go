package analysis

import (
	"fmt"

	"salesinsight/internal/dataset"
)

// StepLoyalCustomers is the analysis log step of LoyalCustomers
const StepLoyalCustomers = "Loyal Customers"

// LoyalCustomers ranks customers by total spending
type LoyalCustomers struct {
	N int
}

// Name implements Aggregator
func (LoyalCustomers) Name() string { return "top_customers" }

// Aggregate implements Aggregator
func (a LoyalCustomers) Aggregate(t *dataset.Table, sink LogSink) []*Report {
	sink = sinkOrDiscard(sink)
	roles, ok := requireColumns(t, sink, StepLoyalCustomers, []Role{RoleCustomer, RoleSales})
	if !ok {
		return nil
	}
	customer, sales := roles[RoleCustomer], roles[RoleSales]

	type row struct {
		key   dataset.Value
		stats stats
	}
	var rows []row
	for _, g := range groupRows(t, customer) {
		rows = append(rows, row{key: g.keys[0], stats: columnStats(t, sales, g.rows)})
	}
	sortStableBy(rows, func(x, y row) bool { return x.stats.sum.GreaterThan(y.stats.sum) })
	rows = truncate(rows, a.N)

	report := NewReport(a.Name(),
		KeyColumn(customer),
		AmountColumn("Total_Spent"),
		CountColumn("Transaction_Count"),
		AmountColumn("Average_Transaction"),
	)
	for _, r := range rows {
		report.AddRow(r.key, r.stats.sum, int(r.stats.n), r.stats.mean())
	}
	sink.Record(StepLoyalCustomers, fmt.Sprintf("ranked top %d customers by total spending", report.Len()))
	return []*Report{report}
}

package analysis

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"

	"salesinsight/internal/dataset"
)

// Derived column names
const (
	ColProfit       = "Profit"
	ColProfitMargin = "Profit_Margin_Percentage"
	ColUnitPrice    = "Average_Unit_Price"
	ColYear         = "Year"
	ColMonth        = "Month"
	ColMonthName    = "Month_Name"
	ColQuarter      = "Quarter"
)

// Analysis log step names used by the derivation engine
const (
	StepProfit    = "Profit Calculation"
	StepMargin    = "Profit Margin"
	StepUnitPrice = "Unit Price"
	StepDates     = "Date Parsing"
)

var hundred = decimal.NewFromInt(100)

// DerivationSummary lists the columns a derivation pass produced
type DerivationSummary struct {
	Added       []string `json:"added"`
	DatesParsed int      `json:"dates_parsed"`
	DatesFailed int      `json:"dates_failed"`
}

// Derive enriches a cleaned table with profit, margin, unit price and
// calendar columns. Roles are re-resolved after every added column. Profit
// is only added when absent; the other derived columns are recomputed on
// every call.
func Derive(t *dataset.Table, sink LogSink) (*dataset.Table, DerivationSummary) {
	sink = sinkOrDiscard(sink)
	var summary DerivationSummary
	out := t

	add := func(name string, values []dataset.Value) {
		next, err := out.WithColumn(name, values)
		if err != nil {
			sink.Diagnostic("Derivation", fmt.Sprintf("could not add %s: %v", name, err))
			return
		}
		out = next
		summary.Added = append(summary.Added, name)
	}

	// Profit is derived only when no column resolves to the profit role. A
	// resolved column without numbers still holds the role; margin is skipped.
	roles := ResolveAll(out.Columns())
	sales, hasSales := roles.Get(RoleSales)
	cost, hasCost := roles.Get(RoleCost)
	if profit, hasProfit := roles.Get(RoleProfit); hasProfit && !out.IsNumeric(profit) {
		sink.Diagnostic(StepProfit, fmt.Sprintf("%s matches the profit role but holds no numbers; Profit and margin not derived", profit))
	} else if hasSales && hasCost && !hasProfit {
		add(ColProfit, mapRows(out, func(i int) dataset.Value {
			s, ok1 := out.Value(i, sales).Float()
			c, ok2 := out.Value(i, cost).Float()
			if !ok1 || !ok2 {
				return dataset.Null()
			}
			return dataset.Number(s - c)
		}))
		sink.Record(StepProfit, fmt.Sprintf("Profit = %s - %s", sales, cost))
	}

	roles = ResolveAll(out.Columns())
	if profit, ok := roles.Get(RoleProfit); hasSales && ok && out.IsNumeric(profit) {
		add(ColProfitMargin, ratioColumn(out, profit, sales, hundred))
		sink.Record(StepMargin, fmt.Sprintf("Profit_Margin_Percentage = %s / %s * 100", profit, sales))
	}

	roles = ResolveAll(out.Columns())
	if qty, ok := roles.Get(RoleQuantity); hasSales && ok {
		add(ColUnitPrice, ratioColumn(out, sales, qty, decimal.NewFromInt(1)))
		sink.Record(StepUnitPrice, fmt.Sprintf("Average_Unit_Price = %s / %s", sales, qty))
	}

	roles = ResolveAll(out.Columns())
	if dateCol, ok := roles.Get(RoleDate); ok {
		dates, parsed, failed := parseDates(out.Column(dateCol))
		summary.DatesParsed, summary.DatesFailed = parsed, failed
		if parsed == 0 {
			sink.Diagnostic(StepDates, fmt.Sprintf("no values in %s could be parsed as dates; calendar fields skipped", dateCol))
			return out, summary
		}
		next, err := out.WithColumn(dateCol, dates)
		if err == nil {
			out = next
		}
		add(ColYear, calendar(dates, func(d time.Time) dataset.Value { return dataset.Number(float64(d.Year())) }))
		add(ColMonth, calendar(dates, func(d time.Time) dataset.Value { return dataset.Number(float64(d.Month())) }))
		add(ColMonthName, calendar(dates, func(d time.Time) dataset.Value { return dataset.String(d.Month().String()) }))
		add(ColQuarter, calendar(dates, func(d time.Time) dataset.Value {
			return dataset.Number(float64((int(d.Month())-1)/3 + 1))
		}))
		details := fmt.Sprintf("parsed %d dates from %s", parsed, dateCol)
		if failed > 0 {
			details += fmt.Sprintf(", %d unparseable values set to null", failed)
		}
		sink.Record(StepDates, details)
	}

	return out, summary
}

func mapRows(t *dataset.Table, fn func(i int) dataset.Value) []dataset.Value {
	out := make([]dataset.Value, t.Len())
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

// ratioColumn computes round(num/den*scale, 2); a zero or missing
// denominator yields null
func ratioColumn(t *dataset.Table, num, den string, scale decimal.Decimal) []dataset.Value {
	return mapRows(t, func(i int) dataset.Value {
		n, ok1 := t.Value(i, num).Float()
		d, ok2 := t.Value(i, den).Float()
		if !ok1 || !ok2 || d == 0 {
			return dataset.Null()
		}
		r := decimal.NewFromFloat(n).Mul(scale).Div(decimal.NewFromFloat(d))
		return dataset.Number(round2(r).InexactFloat64())
	})
}

// parseDates converts every value to a date. Values that are already dates
// pass through; strings go through dateparse; anything else is null.
func parseDates(values []dataset.Value) ([]dataset.Value, int, int) {
	out := make([]dataset.Value, len(values))
	parsed, failed := 0, 0
	for i, v := range values {
		if d, ok := v.Time(); ok {
			out[i] = dataset.Date(d)
			parsed++
			continue
		}
		if v.IsNull() {
			failed++
			continue
		}
		d, err := dateparse.ParseIn(v.Text(), time.UTC)
		if err != nil {
			failed++
			continue
		}
		out[i] = dataset.Date(d)
		parsed++
	}
	return out, parsed, failed
}

func calendar(dates []dataset.Value, fn func(time.Time) dataset.Value) []dataset.Value {
	out := make([]dataset.Value, len(dates))
	for i, v := range dates {
		if d, ok := v.Time(); ok {
			out[i] = fn(d)
		}
	}
	return out
}

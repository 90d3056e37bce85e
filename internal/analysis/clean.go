package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"salesinsight/internal/dataset"
)

// Analysis log step names used by the cleaner
const (
	StepMissingValues = "Missing Values"
	StepDuplicates    = "Duplicate Removal"
	StepImputation    = "Imputation"
	StepInvalidRows   = "Invalid Value Filter"
	StepCleaning      = "Data Cleaning"
)

// positiveKeywords name the numeric columns that must be strictly positive
var positiveKeywords = []string{"quantity", "sales", "price"}

// ImputeMethod is how missing values of a column were filled
type ImputeMethod string

const (
	ImputeMedian ImputeMethod = "median"
	ImputeMode   ImputeMethod = "mode"
)

// Imputation records one filled column
type Imputation struct {
	Column string        `json:"column"`
	Method ImputeMethod  `json:"method"`
	Filled int           `json:"filled"`
	Value  dataset.Value `json:"-"`
}

// CleaningSummary describes what the cleaner did
type CleaningSummary struct {
	OriginalRows       int            `json:"original_rows"`
	FinalRows          int            `json:"final_rows"`
	RowsRemoved        int            `json:"rows_removed"`
	DuplicatesRemoved  int            `json:"duplicates_removed"`
	InvalidRowsRemoved map[string]int `json:"invalid_rows_removed"`
	MissingValues      map[string]int `json:"missing_values"`
	ImputedColumns     []Imputation   `json:"imputed_columns"`
	UnresolvedColumns  []string       `json:"unresolved_columns"`
}

// Clean removes duplicate rows, imputes missing values and drops rows with
// non-positive quantities, sales or prices. It never fails; problems are
// reported to sink.
func Clean(t *dataset.Table, sink LogSink) (*dataset.Table, CleaningSummary) {
	sink = sinkOrDiscard(sink)
	summary := CleaningSummary{
		OriginalRows:       t.Len(),
		InvalidRowsRemoved: make(map[string]int),
		MissingValues:      make(map[string]int),
	}

	// 1. missing value census
	var withMissing []string
	for _, col := range t.Columns() {
		n := t.NullCount(col)
		summary.MissingValues[col] = n
		if n > 0 {
			withMissing = append(withMissing, fmt.Sprintf("%s=%d", col, n))
		}
	}
	if len(withMissing) == 0 {
		sink.Record(StepMissingValues, "no missing values found")
	} else {
		sink.Record(StepMissingValues, "missing values per column: "+strings.Join(withMissing, ", "))
	}

	// 2. duplicates
	out, removed := dropDuplicates(t)
	summary.DuplicatesRemoved = removed
	sink.Record(StepDuplicates, fmt.Sprintf("removed %d duplicate rows", removed))

	// 3. imputation
	for _, col := range out.Columns() {
		if out.NullCount(col) == 0 {
			continue
		}
		var imp Imputation
		var ok bool
		out, imp, ok = impute(out, col)
		if !ok {
			summary.UnresolvedColumns = append(summary.UnresolvedColumns, col)
			sink.Diagnostic(StepImputation, fmt.Sprintf("column %s has no non-null values; missing values left unresolved", col))
			continue
		}
		summary.ImputedColumns = append(summary.ImputedColumns, imp)
		sink.Record(StepImputation, fmt.Sprintf("filled %d missing values in %s with %s %s", imp.Filled, col, imp.Method, imp.Value))
	}

	// 4. non-positive filter
	for _, col := range out.Columns() {
		if !needsPositive(col) || !out.IsNumeric(col) {
			continue
		}
		before := out.Len()
		c := col
		src := out
		out = src.Filter(func(i int) bool {
			f, ok := src.Value(i, c).Float()
			return !ok || f > 0
		})
		if n := before - out.Len(); n > 0 {
			summary.InvalidRowsRemoved[col] = n
			sink.Record(StepInvalidRows, fmt.Sprintf("removed %d rows with non-positive %s", n, col))
		}
	}

	summary.FinalRows = out.Len()
	summary.RowsRemoved = summary.OriginalRows - summary.FinalRows
	sink.Record(StepCleaning, fmt.Sprintf("cleaned %d rows to %d (%d removed)",
		summary.OriginalRows, summary.FinalRows, summary.RowsRemoved))
	return out, summary
}

func needsPositive(column string) bool {
	name := strings.ToLower(column)
	for _, kw := range positiveKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// dropDuplicates keeps the first occurrence of every distinct row
func dropDuplicates(t *dataset.Table) (*dataset.Table, int) {
	seen := make(map[string]struct{}, t.Len())
	out := t.Filter(func(i int) bool {
		k := dataset.Key(t.Row(i)...)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
	return out, t.Len() - out.Len()
}

// impute fills the nulls of one column. It reports false when the column has
// no non-null value to derive a fill from.
func impute(t *dataset.Table, column string) (*dataset.Table, Imputation, bool) {
	values := t.Column(column)
	var fill dataset.Value
	var method ImputeMethod
	if t.IsNumeric(column) {
		fill, method = median(values), ImputeMedian
	} else {
		var ok bool
		fill, ok = mode(values)
		if !ok {
			return t, Imputation{}, false
		}
		method = ImputeMode
	}

	filled := 0
	for i, v := range values {
		if v.IsNull() {
			values[i] = fill
			filled++
		}
	}
	out, err := t.WithColumn(column, values)
	if err != nil {
		return t, Imputation{}, false
	}
	return out, Imputation{Column: column, Method: method, Filled: filled, Value: fill}, true
}

// median of the non-null numbers, averaged over the middle pair for an even
// count
func median(values []dataset.Value) dataset.Value {
	var nums []decimal.Decimal
	for _, v := range values {
		if f, ok := v.Float(); ok {
			nums = append(nums, decimal.NewFromFloat(f))
		}
	}
	if len(nums) == 0 {
		return dataset.Null()
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i].LessThan(nums[j]) })
	mid := len(nums) / 2
	m := nums[mid]
	if len(nums)%2 == 0 {
		m = nums[mid-1].Add(nums[mid]).Div(decimal.NewFromInt(2))
	}
	return dataset.Number(m.InexactFloat64())
}

// mode returns the most frequent non-null value. Ties go to the smallest
// value in Value.Compare order.
func mode(values []dataset.Value) (dataset.Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]dataset.Value)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		k := dataset.Key(v)
		if _, ok := first[k]; !ok {
			first[k] = v
		}
		counts[k]++
	}
	if len(counts) == 0 {
		return dataset.Null(), false
	}

	var best dataset.Value
	bestN := 0
	for k, n := range counts {
		v := first[k]
		if n > bestN || (n == bestN && v.Compare(best) < 0) {
			best, bestN = v, n
		}
	}
	return best, true
}

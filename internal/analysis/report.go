package analysis

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"salesinsight/internal/dataset"
)

// ColumnKind controls how a report column is stored and rendered
type ColumnKind int

const (
	// ColumnKey holds grouping keys exactly as they appear in the table
	ColumnKey ColumnKind = iota
	// ColumnAmount holds a value rounded to two decimals at construction
	ColumnAmount
	// ColumnCount holds an unrounded integer count
	ColumnCount
	// ColumnText holds preformatted display text
	ColumnText
)

// ColumnSpec names a report column and its kind
type ColumnSpec struct {
	Name string
	Kind ColumnKind
}

// KeyColumn declares a grouping key column
func KeyColumn(name string) ColumnSpec { return ColumnSpec{Name: name, Kind: ColumnKey} }

// AmountColumn declares a 2-decimal numeric column
func AmountColumn(name string) ColumnSpec { return ColumnSpec{Name: name, Kind: ColumnAmount} }

// CountColumn declares an integer count column
func CountColumn(name string) ColumnSpec { return ColumnSpec{Name: name, Kind: ColumnCount} }

// TextColumn declares a display text column
func TextColumn(name string) ColumnSpec { return ColumnSpec{Name: name, Kind: ColumnText} }

// Cell is one report value
type Cell struct {
	kind   ColumnKind
	null   bool
	key    dataset.Value
	amount decimal.Decimal
	count  int64
	text   string
}

// IsNull reports whether the cell is missing
func (c Cell) IsNull() bool {
	if c.kind == ColumnKey {
		return c.key.IsNull()
	}
	return c.null
}

// Decimal returns the amount of an amount or count cell
func (c Cell) Decimal() (decimal.Decimal, bool) {
	if c.null {
		return decimal.Zero, false
	}
	switch c.kind {
	case ColumnAmount:
		return c.amount, true
	case ColumnCount:
		return decimal.NewFromInt(c.count), true
	case ColumnKey:
		if f, ok := c.key.Float(); ok {
			return decimal.NewFromFloat(f), true
		}
	}
	return decimal.Zero, false
}

// Float returns the numeric payload as a float
func (c Cell) Float() (float64, bool) {
	d, ok := c.Decimal()
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// Count returns the payload of a count cell
func (c Cell) Count() (int64, bool) {
	if c.kind != ColumnCount || c.null {
		return 0, false
	}
	return c.count, true
}

// Key returns the payload of a key cell
func (c Cell) Key() dataset.Value { return c.key }

// String renders the cell. Amounts always carry exactly two decimals.
func (c Cell) String() string {
	switch c.kind {
	case ColumnKey:
		return c.key.String()
	case ColumnText:
		return c.text
	}
	if c.null {
		return ""
	}
	if c.kind == ColumnCount {
		return strconv.FormatInt(c.count, 10)
	}
	return c.amount.StringFixed(2)
}

// Report is one aggregation result table
type Report struct {
	name    string
	columns []ColumnSpec
	rows    [][]Cell
}

// NewReport creates an empty report
func NewReport(name string, columns ...ColumnSpec) *Report {
	cols := make([]ColumnSpec, len(columns))
	copy(cols, columns)
	return &Report{name: name, columns: cols}
}

// Name is the report identifier, also used as the output file stem
func (r *Report) Name() string { return r.name }

// Columns returns the column names in order
func (r *Report) Columns() []string {
	out := make([]string, len(r.columns))
	for i, c := range r.columns {
		out[i] = c.Name
	}
	return out
}

// Specs returns the column specs in order
func (r *Report) Specs() []ColumnSpec {
	out := make([]ColumnSpec, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of rows
func (r *Report) Len() int { return len(r.rows) }

// AddRow appends a row. Amount values may be decimal.Decimal, float64 or
// nil; NaN and nil become null. Amounts are rounded half away from zero to
// two decimals.
func (r *Report) AddRow(values ...any) {
	if len(values) != len(r.columns) {
		panic(fmt.Sprintf("report %s: row has %d values, want %d", r.name, len(values), len(r.columns)))
	}
	row := make([]Cell, len(values))
	for i, v := range values {
		row[i] = makeCell(r.columns[i].Kind, v)
	}
	r.rows = append(r.rows, row)
}

// Cell returns the cell at row i of the named column
func (r *Report) Cell(i int, column string) Cell {
	for j, c := range r.columns {
		if c.Name == column {
			return r.rows[i][j]
		}
	}
	return Cell{null: true, kind: ColumnText}
}

// Column returns all cells of the named column
func (r *Report) Column(name string) []Cell {
	for j, c := range r.columns {
		if c.Name != name {
			continue
		}
		out := make([]Cell, len(r.rows))
		for i, row := range r.rows {
			out[i] = row[j]
		}
		return out
	}
	return nil
}

// Records renders the report as string records, header first
func (r *Report) Records() [][]string {
	out := make([][]string, 0, len(r.rows)+1)
	out = append(out, r.Columns())
	for _, row := range r.rows {
		rec := make([]string, len(row))
		for j, c := range row {
			rec[j] = c.String()
		}
		out = append(out, rec)
	}
	return out
}

// TableReport wraps a dataset table so it can be exported like a report
func TableReport(name string, t *dataset.Table) *Report {
	cols := t.Columns()
	specs := make([]ColumnSpec, len(cols))
	for i, c := range cols {
		specs[i] = KeyColumn(c)
	}
	r := NewReport(name, specs...)
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = Cell{kind: ColumnKey, key: v}
		}
		r.rows = append(r.rows, cells)
	}
	return r
}

func makeCell(kind ColumnKind, v any) Cell {
	c := Cell{kind: kind}
	switch kind {
	case ColumnKey:
		c.key = toValue(v)
	case ColumnText:
		if v == nil {
			c.null = true
		} else {
			c.text = fmt.Sprint(v)
		}
	case ColumnCount:
		switch n := v.(type) {
		case int:
			c.count = int64(n)
		case int64:
			c.count = n
		default:
			c.null = true
		}
	case ColumnAmount:
		d, ok := toDecimal(v)
		if !ok {
			c.null = true
		} else {
			c.amount = round2(d)
		}
	}
	return c
}

func toValue(v any) dataset.Value {
	switch x := v.(type) {
	case dataset.Value:
		return x
	case string:
		return dataset.String(x)
	case int:
		return dataset.Number(float64(x))
	case float64:
		return dataset.Number(x)
	default:
		return dataset.Null()
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case decimal.NullDecimal:
		return x.Decimal, x.Valid
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	default:
		return decimal.Zero, false
	}
}

// round2 rounds half away from zero to two decimal places
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

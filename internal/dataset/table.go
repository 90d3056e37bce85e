package dataset

import (
	"fmt"
	"strings"
)

// Table is an in-memory, column-named sequence of rows. Column names are
// unique. Tables are treated as immutable values: every transformation
// returns a new Table and leaves the receiver untouched.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewTable creates an empty table with the given columns
func NewTable(columns []string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		index[name] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, index: index}, nil
}

// MustNewTable is NewTable for fixtures with known-good column lists
func MustNewTable(columns []string, rows ...[]Value) *Table {
	t, err := NewTable(columns)
	if err != nil {
		panic(err)
	}
	for _, r := range rows {
		if err := t.AppendRow(r); err != nil {
			panic(err)
		}
	}
	return t
}

// AppendRow appends a row. It is only meant for building a table before it
// is handed to the pipeline.
func (t *Table) AppendRow(row []Value) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.columns))
	}
	r := make([]Value, len(row))
	copy(r, row)
	t.rows = append(t.rows, r)
	return nil
}

// Columns returns a copy of the column names in table order
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Len returns the number of rows
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether a column with exactly this name exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of a column
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Row returns a copy of row i
func (t *Table) Row(i int) []Value {
	r := make([]Value, len(t.rows[i]))
	copy(r, t.rows[i])
	return r
}

// Value returns the cell at row i of the named column. Unknown columns
// yield null.
func (t *Table) Value(i int, column string) Value {
	c, ok := t.index[column]
	if !ok {
		return Null()
	}
	return t.rows[i][c]
}

// Column returns a copy of every value in the named column
func (t *Table) Column(name string) []Value {
	c, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[c]
	}
	return out
}

// IsNumeric reports whether every non-null value in the column is a number.
// An entirely null column is not numeric.
func (t *Table) IsNumeric(name string) bool {
	c, ok := t.index[name]
	if !ok {
		return false
	}
	seen := false
	for _, r := range t.rows {
		switch r[c].Kind() {
		case KindNull:
			continue
		case KindNumber:
			seen = true
		default:
			return false
		}
	}
	return seen
}

// NullCount returns the number of null cells in a column
func (t *Table) NullCount(name string) int {
	c, ok := t.index[name]
	if !ok {
		return 0
	}
	n := 0
	for _, r := range t.rows {
		if r[c].IsNull() {
			n++
		}
	}
	return n
}

// WithColumn returns a new table where the named column holds values. An
// existing column is replaced in place; a new one is appended at the end.
func (t *Table) WithColumn(name string, values []Value) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.rows))
	}
	out := t.clone()
	c, exists := out.index[name]
	if !exists {
		c = len(out.columns)
		out.columns = append(out.columns, name)
		out.index[name] = c
		for i := range out.rows {
			out.rows[i] = append(out.rows[i], values[i])
		}
		return out, nil
	}
	for i := range out.rows {
		out.rows[i][c] = values[i]
	}
	return out, nil
}

// Filter returns a new table holding the rows for which keep returns true,
// in their original order.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := &Table{columns: t.Columns(), index: copyIndex(t.index)}
	for i, r := range t.rows {
		if keep(i) {
			row := make([]Value, len(r))
			copy(row, r)
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// Records renders the table as string records, header first. It is what the
// CSV writer consumes.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Columns())
	for _, r := range t.rows {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = v.String()
		}
		out = append(out, rec)
	}
	return out
}

// String gives a short description used in log lines
func (t *Table) String() string {
	return fmt.Sprintf("Table[%d rows x %d cols: %s]", len(t.rows), len(t.columns), strings.Join(t.columns, ","))
}

func (t *Table) clone() *Table {
	out := &Table{columns: t.Columns(), index: copyIndex(t.index), rows: make([][]Value, len(t.rows))}
	for i, r := range t.rows {
		row := make([]Value, len(r), len(r)+1)
		copy(row, r)
		out.rows[i] = row
	}
	return out
}

func copyIndex(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

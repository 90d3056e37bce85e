package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"salesinsight/internal/dataset"
)

// group is the set of row indices sharing one key tuple
type group struct {
	keys []dataset.Value
	rows []int
}

// groupRows partitions rows by the given key columns, in order of first
// appearance. Rows with a null in any key column are skipped.
func groupRows(t *dataset.Table, keyCols ...string) []*group {
	var groups []*group
	index := make(map[string]*group)
	keys := make([]dataset.Value, len(keyCols))
	for i := 0; i < t.Len(); i++ {
		skip := false
		for k, col := range keyCols {
			keys[k] = t.Value(i, col)
			if keys[k].IsNull() {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		id := dataset.Key(keys...)
		g, ok := index[id]
		if !ok {
			g = &group{keys: append([]dataset.Value(nil), keys...)}
			index[id] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, i)
	}
	return groups
}

// stats accumulates numeric statistics in decimal arithmetic
type stats struct {
	sum decimal.Decimal
	n   int64
	min decimal.Decimal
	max decimal.Decimal
}

func (s *stats) add(d decimal.Decimal) {
	if s.n == 0 {
		s.min, s.max = d, d
	} else {
		s.min = decimal.Min(s.min, d)
		s.max = decimal.Max(s.max, d)
	}
	s.sum = s.sum.Add(d)
	s.n++
}

func (s stats) mean() decimal.NullDecimal {
	if s.n == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(s.sum.Div(decimal.NewFromInt(s.n)))
}

// columnStats gathers the non-null numeric values of column over rows
func columnStats(t *dataset.Table, column string, rows []int) stats {
	var s stats
	for _, i := range rows {
		if f, ok := t.Value(i, column).Float(); ok {
			s.add(decimal.NewFromFloat(f))
		}
	}
	return s
}

// allRows returns the indices of every row in t
func allRows(t *dataset.Table) []int {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// sortStableBy sorts items stably; equal items keep their input order
func sortStableBy[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

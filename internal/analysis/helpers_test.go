package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"salesinsight/internal/dataset"
	"salesinsight/internal/shared/testutil"
)

// table builds a fixture table. Strings go through dataset.ParseCell, nil is
// null and ints/floats are numbers.
func table(t *testing.T, columns []string, rows ...[]any) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(columns)
	require.NoError(t, err)
	for _, r := range rows {
		values := make([]dataset.Value, len(r))
		for i, v := range r {
			switch x := v.(type) {
			case nil:
				values[i] = dataset.Null()
			case string:
				values[i] = dataset.ParseCell(x)
			case int:
				values[i] = dataset.Number(float64(x))
			case float64:
				values[i] = dataset.Number(x)
			case dataset.Value:
				values[i] = x
			default:
				t.Fatalf("unsupported fixture value %T", v)
			}
		}
		require.NoError(t, tbl.AppendRow(values))
	}
	return tbl
}

func newLog(t *testing.T) (*AnalysisLog, *testutil.CaptureHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	return NewAnalysisLog(context.Background(), logger), handler
}

var retailColumns = []string{"Date", "Product", "Category", "Region", "Customer", "Sales", "Cost", "Quantity"}

// retailTable is a small dataset with hand-checked aggregates
func retailTable(t *testing.T) *dataset.Table {
	return table(t, retailColumns,
		[]any{"2024-01-10", "A", "X", "North", "c1", 100, 60, 2},
		[]any{"2024-01-20", "B", "Y", "South", "c2", 300, 200, 1},
		[]any{"2024-02-05", "A", "X", "North", "c1", 50, 20, 1},
		[]any{"2024-02-15", "C", "Y", "North", "c3", 300, 150, 3},
		[]any{"2024-03-01", "B", "X", "South", "c2", 25, 30, 5},
	)
}

// enriched runs the retail table through the cleaner and derivation engine
func enriched(t *testing.T) *dataset.Table {
	t.Helper()
	cleaned, _ := Clean(retailTable(t), nil)
	out, _ := Derive(cleaned, nil)
	return out
}

func strs(cells []Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.String()
	}
	return out
}

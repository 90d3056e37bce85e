package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesinsight/internal/analysis"
	"salesinsight/internal/dataset"
	"salesinsight/internal/shared/testutil"
)

func readCSV(t *testing.T, path string) (bool, [][]string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	hasBOM := bytes.HasPrefix(data, utf8BOM)
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	return hasBOM, records
}

func sampleReport() *analysis.Report {
	r := analysis.NewReport("top_products",
		analysis.KeyColumn("Product"),
		analysis.AmountColumn("Total_Sales"),
		analysis.CountColumn("Transaction_Count"))
	r.AddRow("Widget", 1234.5, 3)
	r.AddRow("Gadget", 99.999, 1)
	return r
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	dir := t.TempDir()
	logger, _ := testutil.NewTestLogger(t)
	w := NewCSVWriter(dir, logger)

	tests := []struct {
		name    string
		opts    WriteOptions
		wantBOM bool
		want    [][]string
	}{
		{
			name:    "with BOM",
			opts:    WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}}, BOMPrefix: true},
			wantBOM: true,
			want:    [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name: "without BOM",
			opts: WriteOptions{Headers: []string{"x"}, Records: [][]string{{"needs,quoting"}}},
			want: [][]string{{"x"}, {"needs,quoting"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := w.WriteCSV(filepath.Join("nested", tt.name+".csv"), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "nested", tt.name+".csv"), path)

			hasBOM, records := readCSV(t, path)
			assert.Equal(t, tt.wantBOM, hasBOM)
			assert.Equal(t, tt.want, records)
		})
	}
}

func TestCSVWriter_Append(t *testing.T) {
	w := NewCSVWriter(t.TempDir(), nil)
	path, err := w.WriteCSV("log.csv", WriteOptions{Headers: []string{"h"}, Records: [][]string{{"1"}}, BOMPrefix: true})
	require.NoError(t, err)
	_, err = w.WriteCSV("log.csv", WriteOptions{Records: [][]string{{"2"}}, Append: true, BOMPrefix: true})
	require.NoError(t, err)

	hasBOM, records := readCSV(t, path)
	assert.True(t, hasBOM)
	assert.Equal(t, [][]string{{"h"}, {"1"}, {"2"}}, records)
}

func TestCSVWriter_WriteReportRoundsAmounts(t *testing.T) {
	w := NewCSVWriter(t.TempDir(), nil)
	path, err := w.WriteReport(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "top_products.csv", filepath.Base(path))

	_, records := readCSV(t, path)
	assert.Equal(t, [][]string{
		{"Product", "Total_Sales", "Transaction_Count"},
		{"Widget", "1234.50", "3"},
		{"Gadget", "100.00", "1"},
	}, records)
}

func TestCSVWriter_WriteTable(t *testing.T) {
	table := dataset.MustNewTable([]string{"Product", "Sales"},
		[]dataset.Value{dataset.String("A"), dataset.Number(10)},
		[]dataset.Value{dataset.String("B"), dataset.Null()},
	)
	w := NewCSVWriter(t.TempDir(), nil)
	path, err := w.WriteTable(CleanedDataFile, table)
	require.NoError(t, err)

	hasBOM, records := readCSV(t, path)
	assert.True(t, hasBOM)
	assert.Equal(t, [][]string{{"Product", "Sales"}, {"A", "10"}, {"B", ""}}, records)
}

func TestCSVWriter_AbsolutePathIgnoresDir(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.csv")
	w := NewCSVWriter("relative-dir-not-used", nil)
	path, err := w.WriteCSV(abs, WriteOptions{Headers: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "top_products", sheetName("top_products", used))
	assert.Equal(t, "Top_Products_2", sheetName("Top_Products", used))
	assert.Equal(t, "TOP_PRODUCTS_3", sheetName("TOP_PRODUCTS", used))
	assert.Equal(t, "a_b_c", sheetName("a/b?c", used))

	long := sheetName("this_is_a_really_long_report_name_for_excel", used)
	assert.Len(t, long, maxSheetName)
	again := sheetName("this_is_a_really_long_report_name_for_excel", used)
	assert.Len(t, again, maxSheetName)
	assert.NotEqual(t, long, again)
}

func TestSheetName_TruncatesByCharacter(t *testing.T) {
	used := map[string]bool{}
	name := strings.Repeat("é", 40)

	first := sheetName(name, used)
	assert.True(t, utf8.ValidString(first))
	assert.Equal(t, maxSheetName, utf8.RuneCountInString(first))
	assert.Equal(t, strings.Repeat("é", maxSheetName), first)

	second := sheetName(name, used)
	assert.True(t, utf8.ValidString(second))
	assert.Equal(t, maxSheetName, utf8.RuneCountInString(second))
	assert.Equal(t, strings.Repeat("é", maxSheetName-2)+"_2", second)
}

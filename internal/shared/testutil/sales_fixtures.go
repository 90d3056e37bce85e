package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// Shape of the standard sales fixture
const (
	FixtureRows         = 100
	FixtureDuplicates   = 5
	FixtureNullSales    = 3
	FixtureZeroQuantity = 2
	FixtureExpectedRows = FixtureRows - FixtureDuplicates - FixtureZeroQuantity
	fixtureUniqueRows   = FixtureExpectedRows
)

// FixtureColumns is the header of the standard sales fixture
var FixtureColumns = []string{"Date", "Product", "Category", "Region", "Customer", "Sales", "Cost", "Quantity"}

var (
	fixtureProducts   = []string{"Laptop", "Phone", "Tablet", "Monitor", "Keyboard", "Mouse", "Headset"}
	fixtureCategories = []string{"Electronics", "Accessories", "Office", "Gaming"}
	fixtureRegions    = []string{"North", "South", "West"}
	fixtureNullSales  = map[int]bool{10: true, 20: true, 30: true}
)

// SalesFixtureRecords builds the standard 100-row sales dataset: 93 unique
// rows (three with a blank Sales cell), exact copies of the first five rows
// and two extra rows with Quantity 0. Cleaning it must leave 93 rows.
func SalesFixtureRecords() [][]string {
	records := [][]string{append([]string(nil), FixtureColumns...)}
	for i := 0; i < fixtureUniqueRows; i++ {
		records = append(records, fixtureRow(i, i%5+1, fixtureNullSales[i]))
	}
	for i := 0; i < FixtureDuplicates; i++ {
		records = append(records, append([]string(nil), records[i+1]...))
	}
	for i := 0; i < FixtureZeroQuantity; i++ {
		records = append(records, fixtureRow(fixtureUniqueRows+i, 0, false))
	}
	return records
}

func fixtureRow(i, quantity int, nullSales bool) []string {
	sales := strconv.FormatFloat(100+float64(i)*3.5, 'f', 2, 64)
	if nullSales {
		sales = ""
	}
	return []string{
		fmt.Sprintf("2024-%02d-%02d", i%12+1, i%28+1),
		fixtureProducts[i%len(fixtureProducts)],
		fixtureCategories[i%len(fixtureCategories)],
		fixtureRegions[i%len(fixtureRegions)],
		fmt.Sprintf("C%03d", i%25),
		sales,
		strconv.Itoa(50 + i*2),
		strconv.Itoa(quantity),
	}
}

// SalesFixtureCSV renders the standard fixture as CSV
func SalesFixtureCSV(t testing.TB) []byte {
	t.Helper()
	return RecordsCSV(t, SalesFixtureRecords())
}

// RecordsCSV renders records as CSV
func RecordsCSV(t testing.TB, records [][]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(records))
	return buf.Bytes()
}

// WriteSalesFixture writes the standard fixture into dir and returns its path
func WriteSalesFixture(t testing.TB, dir string) string {
	t.Helper()
	return WriteCSV(t, dir, "sales.csv", SalesFixtureRecords())
}

// WriteCSV writes records to dir/name and returns the path
func WriteCSV(t testing.TB, dir, name string, records [][]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, RecordsCSV(t, records), 0o644))
	return path
}

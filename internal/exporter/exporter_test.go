package exporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesinsight/internal/analysis"
	"salesinsight/internal/config"
	"salesinsight/internal/dataset"
)

func exportInput(t *testing.T) Input {
	t.Helper()
	log := analysis.NewAnalysisLog(context.Background(), nil)
	log.Record("Data Loading", "Loaded 2 rows")

	summary := analysis.NewReport("summary_report", analysis.KeyColumn("Metric"), analysis.TextColumn("Value"))
	summary.AddRow("Total Transactions", "2")

	return Input{
		RunID:   "run-1",
		Source:  "sales.csv",
		Reports: []*analysis.Report{sampleReport(), summary},
		Cleaned: dataset.MustNewTable([]string{"Product", "Sales"},
			[]dataset.Value{dataset.String("Widget"), dataset.Number(1234.5)},
			[]dataset.Value{dataset.String("Gadget"), dataset.Number(100)},
		),
		Log: log,
	}
}

func TestExporter_WritesEverything(t *testing.T) {
	dir := t.TempDir()
	opts := OptionsFrom(config.Default().Output)
	opts.Dir = dir

	in := exportInput(t)
	files, err := New(opts, nil).Export(context.Background(), in)
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
		assert.FileExists(t, f.Path)
		assert.NotEmpty(t, f.Size)
	}
	assert.Equal(t, []string{
		"top_products.csv",
		"summary_report.csv",
		CleanedDataFile,
		config.DefaultWorkbookName,
		AnalysisLogFile,
		ManifestFile,
	}, names)

	_, logRecords := readCSV(t, filepath.Join(dir, AnalysisLogFile))
	require.Len(t, logRecords, 3)
	assert.Equal(t, []string{"Step", "Details"}, logRecords[0])
	assert.Equal(t, StepExport, logRecords[2][0])
	assert.Empty(t, in.Log.Diagnostics())

	m, err := ReadManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, "run-1", m.RunID)
	assert.Len(t, m.Files, 5)
	assert.Equal(t, 2, m.Files[0].Rows)
}

func TestExporter_Workbook(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Dir: dir, Workbook: true, WorkbookName: "book.xlsx"}
	_, err := New(opts, nil).Export(context.Background(), exportInput(t))
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(dir, "book.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"top_products", "summary_report", "cleaned_data"}, f.GetSheetList())

	rows, err := f.GetRows("top_products")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Product", "Total_Sales", "Transaction_Count"}, rows[0])
	assert.Equal(t, "Widget", rows[1][0])
	assert.Equal(t, "1234.5", rows[1][1])
	assert.Equal(t, "3", rows[1][2])
}

func TestExporter_OptionalOutputsDisabled(t *testing.T) {
	dir := t.TempDir()
	files, err := New(Options{Dir: dir}, nil).Export(context.Background(), exportInput(t))
	require.NoError(t, err)

	assert.Len(t, files, 3)
	assert.NoFileExists(t, filepath.Join(dir, CleanedDataFile))
	assert.NoFileExists(t, filepath.Join(dir, ManifestFile))
}

func TestExporter_WriteFailureIsDiagnostic(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	in := exportInput(t)
	files, err := New(Options{Dir: blocker, Manifest: true}, nil).Export(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, files)

	diags := in.Log.Diagnostics()
	require.NotEmpty(t, diags)
	assert.Equal(t, StepExport, diags[0].Step)
	assert.Contains(t, diags[0].Details, "failed to write top_products.csv")
}

func TestExporter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files, err := New(Options{Dir: t.TempDir()}, nil).Export(ctx, exportInput(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, files)
}

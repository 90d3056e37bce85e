package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesinsight/internal/exporter"
	"salesinsight/internal/shared/testutil"
	"salesinsight/pkg/contracts"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_GeneratesReports(t *testing.T) {
	source := testutil.WriteSalesFixture(t, t.TempDir())
	out := t.TempDir()

	code, stdout, stderr := runCLI(t, "-out", out, "-top-n", "3", "-quiet", source)
	require.Equal(t, exitOK, code, stderr)

	assert.Contains(t, stdout, "--- summary_report ---")
	assert.Contains(t, stdout, "--- top_products ---")
	assert.Contains(t, stdout, "=== ANALYSIS LOG ===")
	assert.Contains(t, stdout, "Data Cleaning")

	for _, name := range []string{"top_products.csv", exporter.CleanedDataFile, exporter.AnalysisLogFile, exporter.ManifestFile} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	manifest, err := exporter.ReadManifest(filepath.Join(out, exporter.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, source, manifest.Source)
}

func TestRun_NoExport(t *testing.T) {
	source := testutil.WriteSalesFixture(t, t.TempDir())
	out := filepath.Join(t.TempDir(), "never")

	code, stdout, _ := runCLI(t, "-file", source, "-out", out, "-no-export", "-parallel", "-quiet")
	require.Equal(t, exitOK, code)
	assert.NotContains(t, stdout, "=== OUTPUTS ===")

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_BatchDirectory(t *testing.T) {
	in := t.TempDir()
	testutil.WriteSalesFixture(t, in)
	testutil.WriteCSV(t, in, "regions.csv", [][]string{{"Region"}, {"North"}})
	testutil.WriteCSV(t, in, "empty.csv", [][]string{{"Region", "Sales"}})
	testutil.WriteCSV(t, in, "notes.txt", [][]string{{"ignored"}})
	out := t.TempDir()

	code, stdout, stderr := runCLI(t, "-dir", in, "-out", out, "-quiet")

	assert.Equal(t, exitBadInput, code)
	assert.Contains(t, stdout, "=== SALES ANALYSIS empty.csv (failed)")
	assert.Contains(t, stdout, "=== SALES ANALYSIS regions.csv (completed)")
	assert.Contains(t, stdout, "required columns not found")
	assert.Contains(t, stderr, "dataset has no rows")

	_, err := os.Stat(filepath.Join(out, "sales", "summary_report.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "regions", exporter.CleanedDataFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "regions", "summary_report.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "empty"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_MissingRolesStillSucceeds(t *testing.T) {
	source := testutil.WriteCSV(t, t.TempDir(), "regions.csv", [][]string{{"Region"}, {"North"}})

	code, stdout, stderr := runCLI(t, "-no-export", "-quiet", source)
	require.Equal(t, exitOK, code, stderr)
	assert.NotContains(t, stdout, "--- top_products ---")
	assert.Contains(t, stdout, "Top Products")
	assert.Contains(t, stdout, "required columns not found")
}

func TestRun_Errors(t *testing.T) {
	empty := testutil.WriteCSV(t, t.TempDir(), "empty.csv", [][]string{{"Region", "Sales"}})

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStderr string
	}{
		{name: "no file", args: nil, wantCode: exitUsage, wantStderr: "a dataset file is required"},
		{name: "unknown flag", args: []string{"-bogus"}, wantCode: exitUsage},
		{name: "file and dir", args: []string{"-dir", t.TempDir(), "x.csv"}, wantCode: exitUsage, wantStderr: "not both"},
		{name: "empty dir", args: []string{"-no-export", "-dir", t.TempDir()}, wantCode: exitBadInput, wantStderr: "no datasets found"},
		{name: "negative top-n", args: []string{"-top-n", "-1", "x.csv"}, wantCode: exitUsage, wantStderr: "top-n must be positive"},
		{name: "missing file", args: []string{"-no-export", "-quiet", filepath.Join(t.TempDir(), "missing.csv")}, wantCode: exitBadInput},
		{name: "no rows", args: []string{"-no-export", "-quiet", empty}, wantCode: exitBadInput, wantStderr: "dataset has no rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantStderr != "" {
				assert.Contains(t, stderr, tt.wantStderr)
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, contracts.GetVersionString())
}

package operations_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"salesinsight/internal/analysis"
	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/exporter"
	"salesinsight/internal/infrastructure"
	"salesinsight/internal/operations"
	sharedtestutil "salesinsight/internal/shared/testutil"
)

var expectedReports = []string{
	"top_products",
	"top_customers",
	"profitability_trend",
	"category_performance",
	"regional_monthly_sales",
	"regional_summary",
	"monthly_summary",
	"summary_report",
}

func pipelineConfig(t *testing.T) *operations.Config {
	t.Helper()
	cfg := operations.NewConfig()
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func reportNames(reports []*analysis.Report) []string {
	names := make([]string, len(reports))
	for i, r := range reports {
		names[i] = r.Name()
	}
	return names
}

func TestPipeline_EndToEnd(t *testing.T) {
	logger, _ := sharedtestutil.NewTestLogger(t)
	cfg := pipelineConfig(t)
	source := sharedtestutil.WriteSalesFixture(t, t.TempDir())

	result, err := operations.NewPipeline(cfg, logger).Execute(context.Background(), operations.Request{Source: source})
	require.NoError(t, err)

	assert.Equal(t, operations.OperationStatusCompleted, result.Status)
	assert.Equal(t, sharedtestutil.FixtureRows, result.InputRows)
	assert.Equal(t, sharedtestutil.FixtureExpectedRows, result.CleanedRows)
	assert.Equal(t, sharedtestutil.FixtureDuplicates, result.Cleaning.DuplicatesRemoved)
	assert.Contains(t, result.Columns, analysis.ColProfit)
	assert.Contains(t, result.Columns, analysis.ColProfitMargin)
	assert.Equal(t, expectedReports, reportNames(result.Reports))
	assert.LessOrEqual(t, result.Report("top_products").Len(), 10)

	for _, id := range []string{
		operations.StageIDLoad, operations.StageIDClean, operations.StageIDDerive,
		operations.StageIDAggregate, operations.StageIDExport,
	} {
		assert.Equal(t, operations.StepStatusCompleted, result.Steps[id].Status, id)
	}

	assert.Equal(t, operations.StageNameLoad, result.Log[0].Step)
	for _, name := range append(expectedReports, exporter.CleanedDataFile, exporter.AnalysisLogFile, exporter.ManifestFile) {
		if filepath.Ext(name) == "" {
			name += ".csv"
		}
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, cfg.Output.WorkbookName))
}

func TestPipeline_ParallelMatchesSequential(t *testing.T) {
	data := sharedtestutil.SalesFixtureCSV(t)

	run := func(parallel bool) *operations.Result {
		cfg := operations.NewConfig()
		cfg.ExportEnabled = false
		cfg.ParallelAggregators = parallel
		result, err := operations.NewPipeline(cfg, nil).Execute(context.Background(), operations.Request{
			Input:  bytes.NewReader(data),
			Format: operations.FormatCSV,
		})
		require.NoError(t, err)
		return result
	}

	seq, par := run(false), run(true)
	require.Equal(t, reportNames(seq.Reports), reportNames(par.Reports))
	for i := range seq.Reports {
		assert.Equal(t, seq.Reports[i].Records(), par.Reports[i].Records(), seq.Reports[i].Name())
	}
	assert.Empty(t, par.Outputs)
	_, hasExport := par.Steps[operations.StageIDExport]
	assert.False(t, hasExport)
}

func TestPipeline_RequestTopN(t *testing.T) {
	cfg := operations.NewConfig()
	cfg.ExportEnabled = false

	result, err := operations.NewPipeline(cfg, nil).Execute(context.Background(), operations.Request{
		Input: bytes.NewReader(sharedtestutil.SalesFixtureCSV(t)),
		TopN:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Report("top_products").Len())
	assert.Equal(t, 3, result.Report("top_customers").Len())
}

func TestPipeline_FatalInputErrors(t *testing.T) {
	dir := t.TempDir()
	headerOnly := sharedtestutil.WriteCSV(t, dir, "header.csv", [][]string{{"Sales", "Product"}})

	tests := []struct {
		name     string
		req      operations.Request
		wantType apperrors.ErrorType
	}{
		{
			name:     "missing file",
			req:      operations.Request{Source: filepath.Join(dir, "nope.csv")},
			wantType: apperrors.ErrTypeNotFound,
		},
		{
			name:     "no rows",
			req:      operations.Request{Source: headerOnly},
			wantType: apperrors.ErrTypeInput,
		},
		{
			name:     "no source",
			req:      operations.Request{},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "unknown format",
			req:      operations.Request{Input: bytes.NewReader(nil), Format: "json"},
			wantType: apperrors.ErrTypeInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pipelineConfig(t)
			result, err := operations.NewPipeline(cfg, nil).Execute(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
			assert.Equal(t, operations.StageIDLoad, operations.FailedStep(err))

			require.NotNil(t, result)
			assert.Empty(t, result.Reports)
			assert.Equal(t, operations.StepStatusSkipped, result.Steps[operations.StageIDAggregate].Status)

			entries, _ := os.ReadDir(cfg.Output.Dir)
			assert.Empty(t, entries)
		})
	}
}

func TestPipeline_MissingRolesOnlySkipAggregators(t *testing.T) {
	source := sharedtestutil.WriteCSV(t, t.TempDir(), "costs.csv", [][]string{
		{"Date", "Customer", "Cost"},
		{"2024-01-05", "C001", "10"},
		{"2024-02-11", "C002", "12.5"},
		{"2024-02-20", "C001", "8"},
	})

	for _, parallel := range []bool{false, true} {
		cfg := pipelineConfig(t)
		cfg.ParallelAggregators = parallel

		result, err := operations.NewPipeline(cfg, nil).Execute(context.Background(), operations.Request{Source: source})
		require.NoError(t, err)
		assert.Equal(t, operations.OperationStatusCompleted, result.Status)
		assert.Equal(t, 3, result.CleanedRows)

		assert.Nil(t, result.Report("top_products"))
		assert.Nil(t, result.Report("summary_report"))
		assert.Empty(t, result.Reports)

		var topProducts []string
		for _, e := range result.Diagnostics() {
			if e.Step == analysis.StepTopProducts {
				topProducts = append(topProducts, e.Details)
			}
		}
		require.Len(t, topProducts, 1)
		assert.Contains(t, topProducts[0], "required columns not found")
		assert.Contains(t, topProducts[0], "Product")
		assert.Contains(t, topProducts[0], "Sales")

		_, err = os.Stat(filepath.Join(cfg.Output.Dir, exporter.CleanedDataFile))
		assert.NoError(t, err)
	}
}

func TestPipeline_ExportFailureKeepsResults(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := operations.NewConfig()
	result, err := operations.NewPipeline(cfg, nil).Execute(context.Background(), operations.Request{
		Input:     bytes.NewReader(sharedtestutil.SalesFixtureCSV(t)),
		OutputDir: blocker,
	})
	require.NoError(t, err)

	assert.Len(t, result.Reports, len(expectedReports))
	assert.Empty(t, result.Outputs)

	var exportDiags int
	for _, d := range result.Diagnostics() {
		if d.Step == exporter.StepExport {
			exportDiags++
		}
	}
	assert.Greater(t, exportDiags, 0)
}

func TestPipeline_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tracer, err := operations.NewOperationTracer(&infrastructure.OTelProviders{Meter: provider.Meter("test")})
	require.NoError(t, err)

	cfg := operations.NewConfig()
	cfg.ExportEnabled = false
	_, err = operations.NewPipeline(cfg, nil, operations.WithTracer(tracer)).Execute(context.Background(), operations.Request{
		Input: bytes.NewReader(sharedtestutil.SalesFixtureCSV(t)),
	})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	rows := map[string]int64{}
	var runs int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch m.Name {
				case "analysis_rows_processed_total":
					stage, _ := dp.Attributes.Value("stage")
					rows[stage.AsString()] += dp.Value
				case "analysis_runs_total":
					runs += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), runs)
	assert.Equal(t, int64(sharedtestutil.FixtureRows), rows["input"])
	assert.Equal(t, int64(sharedtestutil.FixtureExpectedRows), rows["cleaned"])
}

package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"salesinsight/internal/analysis"
	"salesinsight/internal/config"
	"salesinsight/internal/dataset"
	apperrors "salesinsight/internal/errors"
)

// Output file names
const (
	CleanedDataFile = "cleaned_data.csv"
	AnalysisLogFile = "analysis_log.csv"
	ManifestFile    = "manifest.json"
)

// StepExport is the analysis log step for output writing
const StepExport = "Export"

// Options selects what Export writes
type Options struct {
	Dir          string
	Workbook     bool
	WorkbookName string
	CleanedData  bool
	Manifest     bool
}

// OptionsFrom maps the output section of the app config
func OptionsFrom(cfg config.OutputConfig) Options {
	return Options{
		Dir:          cfg.Dir,
		Workbook:     cfg.Workbook,
		WorkbookName: cfg.WorkbookName,
		CleanedData:  cfg.CleanedData,
		Manifest:     cfg.Manifest,
	}
}

// Input is everything a finished run hands to the exporter
type Input struct {
	RunID   string
	Source  string
	Reports []*analysis.Report
	Cleaned *dataset.Table
	Log     *analysis.AnalysisLog
}

// Exporter writes run results to a directory
type Exporter struct {
	opts     Options
	csv      *CSVWriter
	workbook *WorkbookWriter
	logger   *slog.Logger
}

// New creates an exporter
func New(opts Options, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		opts:     opts,
		csv:      NewCSVWriter(opts.Dir, logger),
		workbook: NewWorkbookWriter(logger),
		logger:   logger,
	}
}

// Export writes every report, then the optional cleaned table and workbook,
// then the analysis log and manifest. A failed write is recorded as a
// diagnostic and the remaining files are still attempted. The only error
// returned is context cancellation.
func (e *Exporter) Export(ctx context.Context, in Input) ([]OutputFile, error) {
	var sink analysis.LogSink = in.Log
	if in.Log == nil {
		sink = analysis.NewAnalysisLog(ctx, e.logger)
	}

	var files []OutputFile
	failures := 0
	fail := func(name string, err error) {
		failures++
		storageErr := apperrors.NewStorageError(fmt.Sprintf("failed to write %s", name), err).
			WithContext("dir", e.opts.Dir)
		sink.Diagnostic(StepExport, storageErr.Error())
		e.logger.ErrorContext(ctx, "export failed",
			slog.String("file", name),
			slog.String("error", err.Error()))
	}

	for _, r := range in.Reports {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		path, err := e.csv.WriteReport(r)
		if err != nil {
			fail(r.Name()+".csv", err)
			continue
		}
		files = append(files, newOutputFile(r.Name()+".csv", path, KindReport, r.Len()))
	}

	if e.opts.CleanedData && in.Cleaned != nil {
		path, err := e.csv.WriteTable(CleanedDataFile, in.Cleaned)
		if err != nil {
			fail(CleanedDataFile, err)
		} else {
			files = append(files, newOutputFile(CleanedDataFile, path, KindTable, in.Cleaned.Len()))
		}
	}

	if e.opts.Workbook && e.opts.WorkbookName != "" {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		sheets := append([]*analysis.Report{}, in.Reports...)
		if in.Cleaned != nil {
			sheets = append(sheets, analysis.TableReport("cleaned_data", in.Cleaned))
		}
		path := e.csv.resolvePath(e.opts.WorkbookName)
		if err := e.workbook.WriteWorkbook(path, sheets); err != nil {
			fail(e.opts.WorkbookName, err)
		} else {
			files = append(files, newOutputFile(e.opts.WorkbookName, path, KindWorkbook, len(sheets)))
		}
	}

	summary := fmt.Sprintf("Saved %d files to %s", len(files), e.opts.Dir)
	if failures > 0 {
		summary += fmt.Sprintf(", %d failed", failures)
	}
	sink.Record(StepExport, summary)

	if in.Log != nil {
		logReport := in.Log.Report()
		path, err := e.csv.WriteReport(logReport)
		if err != nil {
			fail(AnalysisLogFile, err)
		} else {
			files = append(files, newOutputFile(AnalysisLogFile, path, KindLog, logReport.Len()))
		}
	}

	if e.opts.Manifest {
		path := e.csv.resolvePath(ManifestFile)
		m := Manifest{
			RunID:       in.RunID,
			Source:      in.Source,
			GeneratedAt: time.Now().UTC(),
			Files:       files,
		}
		if err := WriteManifest(path, m); err != nil {
			fail(ManifestFile, err)
		} else {
			files = append(files, newOutputFile(ManifestFile, path, KindManifest, len(m.Files)))
		}
	}

	e.logger.InfoContext(ctx, "results exported",
		slog.String("dir", filepath.Clean(e.opts.Dir)),
		slog.Int("files", len(files)),
		slog.Int("failures", failures))
	return files, nil
}

// Package exporter persists analysis results.
//
// CSVWriter writes one UTF-8 CSV per table with a BOM so spreadsheet tools
// pick the right encoding. WorkbookWriter writes the same tables as sheets of
// a single XLSX file. Exporter ties both together for a finished run and
// records a JSON manifest of everything it wrote.
//
// Example usage:
//
//	exp := exporter.New(exporter.OptionsFrom(cfg.Output), logger)
//	files, err := exp.Export(ctx, exporter.Input{
//		RunID:   runID,
//		Reports: reports,
//		Cleaned: enriched,
//		Log:     analysisLog,
//	})
package exporter

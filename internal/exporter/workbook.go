package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"salesinsight/internal/analysis"
)

const defaultSheet = "Sheet1"

// WorkbookWriter writes reports as sheets of one XLSX file
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger}
}

// WriteWorkbook writes one sheet per report, in order, to path
func (w *WorkbookWriter) WriteWorkbook(path string, reports []*analysis.Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("no reports to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	used := make(map[string]bool, len(reports))
	for i, r := range reports {
		name := sheetName(r.Name(), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, r); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", name, err)
		}
		if err := f.SetRowStyle(name, 1, 1, header); err != nil {
			return fmt.Errorf("failed to style sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Debug("workbook written",
		slog.String("path", path),
		slog.Int("sheets", len(reports)))
	return nil
}

func writeSheet(f *excelize.File, sheet string, r *analysis.Report) error {
	specs := r.Specs()

	headers := make([]interface{}, len(specs))
	for j, s := range specs {
		headers[j] = s.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}

	for i := 0; i < r.Len(); i++ {
		row := make([]interface{}, len(specs))
		for j, s := range specs {
			row[j] = cellValue(r.Cell(i, s.Name), s.Kind)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(specs) > 0 {
		last, err := excelize.ColumnNumberToName(len(specs))
		if err != nil {
			return err
		}
		return f.SetColWidth(sheet, "A", last, 18)
	}
	return nil
}

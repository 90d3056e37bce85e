package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "salesinsight/internal/errors"
)

// utf8BOM is stripped from the first header cell; the exporter writes it for
// Excel compatibility so round-tripped files carry it.
const utf8BOM = "\uFEFF"

// LoadOptions configures file loading
type LoadOptions struct {
	// Sheet selects the worksheet of an .xlsx file. Empty means the first sheet.
	Sheet string
	// Logger receives load diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// LoadFile reads a .csv or .xlsx file into a Table. A missing file is
// reported as a not-found AppError carrying the path.
func LoadFile(path string, opts LoadOptions) (*Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, apperrors.NewNotFoundError("input file").WithContext("path", path)
	}
	if err != nil {
		return nil, apperrors.NewInputError("failed to stat input file", err).WithContext("path", path)
	}
	if info.IsDir() {
		return nil, apperrors.NewInputError("input path is a directory", nil).WithContext("path", path)
	}

	var table *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = loadWorkbook(path, opts.Sheet, logger)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, apperrors.NewInputError("failed to open input file", err).WithContext("path", path)
		}
		defer f.Close()
		table, err = ReadCSV(f)
	}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr.WithContext("path", path)
		}
		return nil, apperrors.NewParsingError("failed to read input file", err).WithContext("path", path)
	}

	logger.Info("dataset loaded",
		slog.String("path", path),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())))
	return table, nil
}

// ReadCSV parses CSV data with a header row. Short rows are padded with
// nulls; cells are typed with ParseCell.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewInputError("dataset is empty", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return buildTable(header, records)
}

// ReadCSVBytes is ReadCSV over an in-memory buffer
func ReadCSVBytes(data []byte) (*Table, error) {
	return ReadCSV(bytes.NewReader(data))
}

// ReadWorkbook parses an .xlsx stream, e.g. an upload
func ReadWorkbook(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return tableFromWorkbook(f, sheet, slog.Default())
}

func loadWorkbook(path, sheet string, logger *slog.Logger) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return tableFromWorkbook(f, sheet, logger)
}

func tableFromWorkbook(f *excelize.File, sheet string, logger *slog.Logger) (*Table, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewInputError("workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewInputError("dataset is empty", nil).WithContext("sheet", sheet)
	}

	logger.Debug("workbook sheet selected",
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	// excelize trims trailing empty rows but may return blank ones in between
	body := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if isBlank(r) {
			continue
		}
		body = append(body, r)
	}
	return buildTable(rows[0], body)
}

func buildTable(header []string, records [][]string) (*Table, error) {
	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		columns[i] = strings.TrimSpace(h)
	}

	table, err := NewTable(columns)
	if err != nil {
		return nil, apperrors.NewInputError("invalid header row", err)
	}

	for _, rec := range records {
		row := make([]Value, len(columns))
		for j := range columns {
			if j < len(rec) {
				row[j] = ParseCell(rec[j])
			}
		}
		if err := table.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

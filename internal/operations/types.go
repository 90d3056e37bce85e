package operations

import (
	"io"
	"time"

	"salesinsight/internal/analysis"
	"salesinsight/internal/exporter"
)

// Step identifiers
const (
	StageIDLoad      = "load"
	StageIDClean     = "clean"
	StageIDDerive    = "derive"
	StageIDAggregate = "aggregate"
	StageIDExport    = "export"
)

// Step names, also used as analysis log step names
const (
	StageNameLoad      = "Data Loading"
	StageNameClean     = "Data Cleaning"
	StageNameDerive    = "Feature Engineering"
	StageNameAggregate = "Aggregation"
	StageNameExport    = "Export"
)

// Default timeouts
const (
	DefaultStageTimeout     = 5 * time.Minute
	DefaultLoadTimeout      = 2 * time.Minute
	DefaultAggregateTimeout = 5 * time.Minute
)

// Request describes one analysis run. Either Source names a file to load or
// Input supplies the data directly, in which case Format picks the parser
// and Source is only used as a label.
type Request struct {
	ID     string
	Source string
	Input  io.Reader
	Format string // "csv" or "xlsx", used with Input
	Sheet  string
	TopN   int

	// OutputDir overrides the configured export directory
	OutputDir string
}

// Input formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Result is what a finished run returns. Reports are in aggregator order and
// are returned even when export fails.
type Result struct {
	ID          string                     `json:"id"`
	Status      OperationStatusValue       `json:"status"`
	Duration    time.Duration              `json:"duration"`
	InputRows   int                        `json:"input_rows"`
	CleanedRows int                        `json:"cleaned_rows"`
	Columns     []string                   `json:"columns"`
	Cleaning    analysis.CleaningSummary   `json:"cleaning"`
	Derivation  analysis.DerivationSummary `json:"derivation"`
	Reports     []*analysis.Report         `json:"-"`
	Log         []analysis.Entry           `json:"log"`
	Outputs     []exporter.OutputFile      `json:"outputs,omitempty"`
	Steps       map[string]*StepState      `json:"steps"`
}

// Report returns the named report, or nil
func (r *Result) Report(name string) *analysis.Report {
	for _, rep := range r.Reports {
		if rep.Name() == name {
			return rep
		}
	}
	return nil
}

// Diagnostics returns the diagnostic log entries
func (r *Result) Diagnostics() []analysis.Entry {
	var out []analysis.Entry
	for _, e := range r.Log {
		if e.Diagnostic {
			out = append(out, e)
		}
	}
	return out
}

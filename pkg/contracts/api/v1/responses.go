package api

import "time"

// AnalysisResponse is returned by POST /api/v1/analyses
type AnalysisResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Source      string          `json:"source"`
	DurationMS  int64           `json:"duration_ms"`
	InputRows   int             `json:"input_rows"`
	CleanedRows int             `json:"cleaned_rows"`
	Columns     []string        `json:"columns"`
	Reports     []Report        `json:"reports"`
	Log         []LogEntry      `json:"log"`
	Diagnostics int             `json:"diagnostics"`
	Outputs     []OutputFile    `json:"outputs,omitempty"`
	Steps       []StepSummary   `json:"steps"`
	CreatedAt   time.Time       `json:"created_at"`
	Cleaning    CleaningSummary `json:"cleaning"`
}

// Report is one result table rendered as strings. Null cells are empty and
// amounts carry two decimals.
type Report struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// LogEntry is one analysis log line
type LogEntry struct {
	Step       string `json:"step"`
	Details    string `json:"details"`
	Diagnostic bool   `json:"diagnostic,omitempty"`
}

// OutputFile describes a file written by the exporter
type OutputFile struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Rows int    `json:"rows"`
	Size string `json:"size"`
}

// StepSummary reports the outcome of one pipeline step
type StepSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// CleaningSummary mirrors what the cleaner removed and filled in
type CleaningSummary struct {
	RowsRemoved        int            `json:"rows_removed"`
	DuplicatesRemoved  int            `json:"duplicates_removed"`
	InvalidRowsRemoved map[string]int `json:"invalid_rows_removed,omitempty"`
	ImputedColumns     []string       `json:"imputed_columns,omitempty"`
}

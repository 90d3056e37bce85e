package operations

import (
	"sync"
	"time"

	"salesinsight/internal/analysis"
	"salesinsight/internal/dataset"
	"salesinsight/internal/exporter"
)

// OperationStatusValue represents the overall run status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState is the shared state of one run. Tables stored here are
// never mutated; a step that transforms a table stores a new one.
type OperationState struct {
	mu sync.RWMutex

	ID        string
	Status    OperationStatusValue
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	Request Request
	Log     *analysis.AnalysisLog
	Steps   map[string]*StepState

	raw        *dataset.Table
	cleaned    *dataset.Table
	enriched   *dataset.Table
	cleaning   analysis.CleaningSummary
	derivation analysis.DerivationSummary
	reports    []*analysis.Report
	outputs    []exporter.OutputFile
}

// NewOperationState creates a new run state
func NewOperationState(req Request, log *analysis.AnalysisLog) *OperationState {
	return &OperationState{
		ID:        req.ID,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Request:   req,
		Log:       log,
		Steps:     make(map[string]*StepState),
	}
}

// Start marks the run as running
func (s *OperationState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = OperationStatusRunning
	s.StartTime = time.Now()
}

// Complete marks the run as completed
func (s *OperationState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = OperationStatusCompleted
}

// Fail marks the run as failed
func (s *OperationState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = OperationStatusFailed
	s.Error = err
}

// Cancel marks the run as cancelled
func (s *OperationState) Cancel(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = OperationStatusCancelled
	s.Error = err
}

// GetStatus returns the run status
func (s *OperationState) GetStatus() OperationStatusValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// GetStage returns the state of a step
func (s *OperationState) GetStage(id string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Steps[id]
}

// SetStage records the state of a step
func (s *OperationState) SetStage(id string, state *StepState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Steps[id] = state
}

// Duration returns how long the run took so far
func (s *OperationState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// RawTable returns the loaded table
func (s *OperationState) RawTable() *dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// SetRawTable stores the loaded table
func (s *OperationState) SetRawTable(t *dataset.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = t
}

// CleanedTable returns the cleaner output
func (s *OperationState) CleanedTable() *dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cleaned
}

// SetCleaned stores the cleaner output
func (s *OperationState) SetCleaned(t *dataset.Table, summary analysis.CleaningSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaned = t
	s.cleaning = summary
}

// EnrichedTable returns the derivation output
func (s *OperationState) EnrichedTable() *dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enriched
}

// SetEnriched stores the derivation output
func (s *OperationState) SetEnriched(t *dataset.Table, summary analysis.DerivationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enriched = t
	s.derivation = summary
}

// Reports returns the aggregation output
func (s *OperationState) Reports() []*analysis.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports
}

// SetReports stores the aggregation output
func (s *OperationState) SetReports(reports []*analysis.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = reports
}

// Outputs returns the files written by export
func (s *OperationState) Outputs() []exporter.OutputFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outputs
}

// SetOutputs stores the files written by export
func (s *OperationState) SetOutputs(files []exporter.OutputFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = files
}

// Result snapshots the state for callers
func (s *OperationState) Result() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := &Result{
		ID:         s.ID,
		Status:     s.Status,
		Cleaning:   s.cleaning,
		Derivation: s.derivation,
		Reports:    s.reports,
		Outputs:    s.outputs,
		Steps:      make(map[string]*StepState, len(s.Steps)),
	}
	if s.EndTime != nil {
		r.Duration = s.EndTime.Sub(s.StartTime)
	}
	if s.raw != nil {
		r.InputRows = s.raw.Len()
	}
	if s.enriched != nil {
		r.CleanedRows = s.enriched.Len()
		r.Columns = s.enriched.Columns()
	} else if s.cleaned != nil {
		r.CleanedRows = s.cleaned.Len()
		r.Columns = s.cleaned.Columns()
	}
	if s.Log != nil {
		r.Log = s.Log.Entries()
	}
	for id, st := range s.Steps {
		r.Steps[id] = st
	}
	return r
}

package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one analysis log line
type Entry struct {
	Step       string    `json:"step"`
	Details    string    `json:"details"`
	Diagnostic bool      `json:"diagnostic"`
	Time       time.Time `json:"time"`
}

// LogSink receives stage outcomes. Stages append; they never read back.
type LogSink interface {
	Record(step, details string)
	Diagnostic(step, details string)
}

// AnalysisLog is the append-only log of a run. It is safe for concurrent
// use and mirrors every entry to slog.
type AnalysisLog struct {
	mu      sync.Mutex
	entries []Entry
	logger  *slog.Logger
	ctx     context.Context
	now     func() time.Time
}

// NewAnalysisLog creates a log mirroring to logger. The context supplies the
// trace id for the mirrored records.
func NewAnalysisLog(ctx context.Context, logger *slog.Logger) *AnalysisLog {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &AnalysisLog{
		logger: logger.With(slog.String("component", "analysis_log")),
		ctx:    ctx,
		now:    time.Now,
	}
}

// Record appends a success entry
func (l *AnalysisLog) Record(step, details string) {
	l.append(step, details, false)
	l.logger.InfoContext(l.ctx, details, slog.String("step", step))
}

// Diagnostic appends a non-fatal problem
func (l *AnalysisLog) Diagnostic(step, details string) {
	l.append(step, details, true)
	l.logger.WarnContext(l.ctx, details, slog.String("step", step))
}

func (l *AnalysisLog) append(step, details string, diagnostic bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		Step:       step,
		Details:    details,
		Diagnostic: diagnostic,
		Time:       l.now(),
	})
}

// Entries returns a copy of the entries in append order
func (l *AnalysisLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Diagnostics returns only the diagnostic entries
func (l *AnalysisLog) Diagnostics() []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Diagnostic {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries
func (l *AnalysisLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Report renders the log as a (Step, Details) report table
func (l *AnalysisLog) Report() *Report {
	r := NewReport("analysis_log", KeyColumn("Step"), KeyColumn("Details"))
	for _, e := range l.Entries() {
		r.AddRow(e.Step, e.Details)
	}
	return r
}

// discardSink drops everything. Used when callers pass a nil sink.
type discardSink struct{}

func (discardSink) Record(string, string)     {}
func (discardSink) Diagnostic(string, string) {}

func sinkOrDiscard(s LogSink) LogSink {
	if s == nil {
		return discardSink{}
	}
	return s
}

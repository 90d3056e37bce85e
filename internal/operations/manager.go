package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"salesinsight/internal/analysis"
	"salesinsight/internal/infrastructure"
)

// Manager orchestrates pipeline execution
type Manager struct {
	registry *Registry
	config   *Config
	logger   *slog.Logger
	tracer   *OperationTracer

	mu     sync.RWMutex
	active map[string]*OperationState
}

// ManagerOption customises a Manager
type ManagerOption func(*Manager)

// WithTracer attaches tracing and metrics
func WithTracer(t *OperationTracer) ManagerOption {
	return func(m *Manager) { m.tracer = t }
}

// NewManager creates a manager over an existing registry
func NewManager(registry *Registry, cfg *Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	m := &Manager{
		registry: registry,
		config:   cfg,
		logger:   infrastructure.WithComponent(logger, "operations"),
		active:   make(map[string]*OperationState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewPipeline creates a manager with the standard steps registered
func NewPipeline(cfg *Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := NewManager(nil, cfg, logger, opts...)
	steps := []Step{
		NewLoadStage(m.config, m.logger),
		NewCleanStage(),
		NewDeriveStage(),
		NewAggregateStage(m.config),
	}
	if m.config.ExportEnabled {
		steps = append(steps, NewExportStage(m.config, m.logger))
	}
	for _, s := range steps {
		// IDs are distinct constants, registration cannot fail
		_ = m.registry.Register(s)
	}
	return m
}

// RegisterStage registers a step with the pipeline
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Config returns the pipeline configuration
func (m *Manager) Config() *Config {
	return m.config
}

// ActiveCount returns the number of runs in progress
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Execute runs every registered step in dependency order. The returned
// result is never nil: a failed run still reports what it computed before
// the failure.
func (m *Manager) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.ID == "" {
		req.ID = "run-" + infrastructure.GenerateTraceID()
	}
	if infrastructure.GetTraceID(ctx) == "" {
		ctx = infrastructure.WithTraceID(ctx, req.ID)
	}

	state := NewOperationState(req, analysis.NewAnalysisLog(ctx, m.logger))
	m.storeOperation(state)
	defer m.removeOperation(req.ID)

	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID, req)

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		err = NewFatalError("failed to order steps", err)
		state.Fail(err)
		result := state.Result()
		m.tracer.RecordOperationCompletion(ctx, span, result, err)
		return result, err
	}
	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	state.Start()
	m.logger.InfoContext(ctx, "operation started",
		slog.String("operation_id", req.ID),
		slog.String("source", req.Source),
		slog.Int("step_count", len(steps)))

	err = m.executeSequential(ctx, state, steps)
	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	result := state.Result()
	m.tracer.RecordOperationCompletion(ctx, span, result, err)

	if err != nil {
		m.logger.ErrorContext(ctx, "operation failed",
			slog.String("operation_id", req.ID),
			slog.String("step", FailedStep(err)),
			slog.String("error", err.Error()))
		return result, err
	}
	m.logger.InfoContext(ctx, "operation completed",
		slog.String("operation_id", req.ID),
		slog.Duration("duration", result.Duration),
		slog.Int("reports", len(result.Reports)),
		slog.Int("diagnostics", len(result.Diagnostics())))
	return result, nil
}

// executeSequential runs steps one by one. The first failure skips the rest.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID(), err)
		}

		if err := m.executeStage(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("previous step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStage validates and runs one step under its timeout
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())

	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		return NewValidationError(step.ID(), err)
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stageCtx, span := m.tracer.TraceStageExecution(stageCtx, state.ID, step.ID())
	stepState.Start()
	m.logger.DebugContext(ctx, "executing step",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()))

	start := time.Now()
	err := step.Execute(stageCtx, state)
	duration := time.Since(start)
	m.tracer.RecordStageCompletion(stageCtx, span, step.ID(), duration, err)

	if err != nil {
		stepState.Fail(err)
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return NewTimeoutError(step.ID(), timeout.String(), err)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return NewCancellationError(step.ID(), err)
		default:
			return NewExecutionError(step.ID(), err)
		}
	}

	m.recordStageOutput(ctx, state, step.ID(), stepState)
	stepState.Complete(fmt.Sprintf("completed in %s", duration.Round(time.Millisecond)))
	return nil
}

// recordStageOutput attaches row counts to the step state and metrics
func (m *Manager) recordStageOutput(ctx context.Context, state *OperationState, stageID string, stepState *StepState) {
	switch stageID {
	case StageIDLoad:
		if t := state.RawTable(); t != nil {
			stepState.SetMetadata("rows", t.Len())
			m.tracer.RecordRows(ctx, "input", t.Len())
		}
	case StageIDClean:
		if t := state.CleanedTable(); t != nil {
			stepState.SetMetadata("rows", t.Len())
			m.tracer.RecordRows(ctx, "cleaned", t.Len())
		}
	case StageIDAggregate:
		stepState.SetMetadata("reports", len(state.Reports()))
	case StageIDExport:
		stepState.SetMetadata("files", len(state.Outputs()))
	}
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if st := state.GetStage(step.ID()); st != nil && st.GetStatus() == StepStatusPending {
			st.Skip(reason)
		}
	}
}

func (m *Manager) storeOperation(state *OperationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[state.ID] = state
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, id)
}

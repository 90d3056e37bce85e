package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"salesinsight/internal/analysis"
	"salesinsight/internal/dataset"
	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/exporter"
)

// LoadStage reads the request source into a table and checks that the
// dataset can be analysed at all
type LoadStage struct {
	BaseStage
	config *Config
	logger *slog.Logger
}

// NewLoadStage creates the load step
func NewLoadStage(cfg *Config, logger *slog.Logger) *LoadStage {
	return &LoadStage{
		BaseStage: NewBaseStage(StageIDLoad, StageNameLoad, nil),
		config:    cfg,
		logger:    logger,
	}
}

// Validate requires a source
func (s *LoadStage) Validate(state *OperationState) error {
	if state.Request.Input == nil && strings.TrimSpace(state.Request.Source) == "" {
		return apperrors.NewAppValidationError("no input file given")
	}
	return nil
}

// Execute loads the table
func (s *LoadStage) Execute(ctx context.Context, state *OperationState) error {
	req := state.Request
	sheet := req.Sheet
	if sheet == "" {
		sheet = s.config.Sheet
	}

	var (
		table *dataset.Table
		err   error
	)
	if req.Input != nil {
		switch strings.ToLower(req.Format) {
		case FormatXLSX:
			table, err = dataset.ReadWorkbook(req.Input, sheet)
		case FormatCSV, "":
			table, err = dataset.ReadCSV(req.Input)
		default:
			return apperrors.NewInputError(fmt.Sprintf("unsupported input format %q", req.Format), nil)
		}
		if err != nil && apperrors.TypeOf(err) == "" {
			err = apperrors.NewParsingError("failed to read input", err)
		}
	} else {
		table, err = dataset.LoadFile(req.Source, dataset.LoadOptions{Sheet: sheet, Logger: s.logger})
	}
	if err != nil {
		return err
	}

	if table.Len() == 0 {
		return apperrors.NewInputError("dataset has no rows", nil).WithContext("path", req.Source)
	}

	state.SetRawTable(table)
	state.Log.Record(StageNameLoad, fmt.Sprintf("Loaded dataset with %d rows and %d columns", table.Len(), len(table.Columns())))
	return nil
}

// CleanStage runs the cleaner
type CleanStage struct {
	BaseStage
}

// NewCleanStage creates the clean step
func NewCleanStage() *CleanStage {
	return &CleanStage{BaseStage: NewBaseStage(StageIDClean, StageNameClean, []string{StageIDLoad})}
}

// Validate requires a loaded table
func (s *CleanStage) Validate(state *OperationState) error {
	if state.RawTable() == nil {
		return errors.New("no table loaded")
	}
	return nil
}

// Execute cleans the loaded table
func (s *CleanStage) Execute(ctx context.Context, state *OperationState) error {
	cleaned, summary := analysis.Clean(state.RawTable(), state.Log)
	state.SetCleaned(cleaned, summary)
	return nil
}

// DeriveStage runs the derivation engine
type DeriveStage struct {
	BaseStage
}

// NewDeriveStage creates the derive step
func NewDeriveStage() *DeriveStage {
	return &DeriveStage{BaseStage: NewBaseStage(StageIDDerive, StageNameDerive, []string{StageIDClean})}
}

// Validate requires a cleaned table
func (s *DeriveStage) Validate(state *OperationState) error {
	if state.CleanedTable() == nil {
		return errors.New("no cleaned table")
	}
	return nil
}

// Execute enriches the cleaned table
func (s *DeriveStage) Execute(ctx context.Context, state *OperationState) error {
	enriched, summary := analysis.Derive(state.CleanedTable(), state.Log)
	state.SetEnriched(enriched, summary)
	if len(summary.Added) > 0 {
		state.Log.Record(StageNameDerive, fmt.Sprintf("Added columns: %s", strings.Join(summary.Added, ", ")))
	}
	return nil
}

// AggregateStage runs every aggregator over the enriched table. With
// parallel execution enabled the aggregators run concurrently; reports are
// still collected in aggregator order.
type AggregateStage struct {
	BaseStage
	config      *Config
	aggregators func(topN int) []analysis.Aggregator
}

// NewAggregateStage creates the aggregate step with the default aggregators
func NewAggregateStage(cfg *Config) *AggregateStage {
	return &AggregateStage{
		BaseStage:   NewBaseStage(StageIDAggregate, StageNameAggregate, []string{StageIDDerive}),
		config:      cfg,
		aggregators: analysis.DefaultAggregators,
	}
}

// Validate requires an enriched table
func (s *AggregateStage) Validate(state *OperationState) error {
	if state.EnrichedTable() == nil {
		return errors.New("no enriched table")
	}
	return nil
}

// Execute runs the aggregators
func (s *AggregateStage) Execute(ctx context.Context, state *OperationState) error {
	table := state.EnrichedTable()
	aggs := s.aggregators(s.config.topN(state.Request))
	results := make([][]*analysis.Report, len(aggs))

	if s.config.ParallelAggregators {
		g, gctx := errgroup.WithContext(ctx)
		for i, agg := range aggs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = agg.Aggregate(table, state.Log)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i, agg := range aggs {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = agg.Aggregate(table, state.Log)
		}
	}

	var reports []*analysis.Report
	for _, rs := range results {
		reports = append(reports, rs...)
	}
	state.SetReports(reports)
	state.Log.Record(StageNameAggregate, fmt.Sprintf("Produced %d reports from %d aggregators", len(reports), len(aggs)))
	return nil
}

// ExportStage persists the run. Write failures become diagnostics, so this
// step only fails on cancellation.
type ExportStage struct {
	BaseStage
	config *Config
	logger *slog.Logger
}

// NewExportStage creates the export step
func NewExportStage(cfg *Config, logger *slog.Logger) *ExportStage {
	return &ExportStage{
		BaseStage: NewBaseStage(StageIDExport, StageNameExport, []string{StageIDAggregate}),
		config:    cfg,
		logger:    logger,
	}
}

// Execute writes the outputs
func (s *ExportStage) Execute(ctx context.Context, state *OperationState) error {
	opts := s.config.Output
	if state.Request.OutputDir != "" {
		opts.Dir = state.Request.OutputDir
	}

	files, err := exporter.New(opts, s.logger).Export(ctx, exporter.Input{
		RunID:   state.ID,
		Source:  state.Request.Source,
		Reports: state.Reports(),
		Cleaned: state.EnrichedTable(),
		Log:     state.Log,
	})
	state.SetOutputs(files)
	return err
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/operations"
)

// Runner executes a pipeline request
type Runner interface {
	Execute(ctx context.Context, req operations.Request) (*operations.Result, error)
}

// AnalysisInput is one dataset to analyze
type AnalysisInput struct {
	FileName string
	Body     io.Reader
	TopN     int
	Sheet    string
}

// AnalysisService runs uploaded datasets through the pipeline. Every run
// exports into its own directory under outputDir.
type AnalysisService struct {
	runner    Runner
	outputDir string
	logger    *slog.Logger
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(runner Runner, outputDir string, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		runner:    runner,
		outputDir: outputDir,
		logger:    logger.With(slog.String("service", "analysis")),
	}
}

// Analyze runs the pipeline on an in-memory dataset. A non-nil result is
// returned alongside pipeline errors so callers can show the log.
func (s *AnalysisService) Analyze(ctx context.Context, in AnalysisInput) (*operations.Result, error) {
	format, err := FormatFromName(in.FileName)
	if err != nil {
		return nil, apperrors.NewInputError(err.Error(), err).WithContext("file", in.FileName)
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, apperrors.NewInputError("failed to read upload", err).WithContext("file", in.FileName)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperrors.NewInputError(ErrEmptyUpload.Error(), ErrEmptyUpload).WithContext("file", in.FileName)
	}

	id := "run-" + uuid.New().String()
	req := operations.Request{
		ID:     id,
		Source: filepath.Base(in.FileName),
		Input:  bytes.NewReader(body),
		Format: format,
		Sheet:  in.Sheet,
		TopN:   in.TopN,
	}
	if s.outputDir != "" {
		req.OutputDir = filepath.Join(s.outputDir, id)
	}

	s.logger.InfoContext(ctx, "analysis requested",
		slog.String("run_id", id),
		slog.String("file", req.Source),
		slog.String("format", format),
		slog.Int("bytes", len(body)),
		slog.Int("top_n", in.TopN),
	)

	return s.run(ctx, req)
}

// AnalyzeFile runs the pipeline on a dataset on disk, exporting to outDir
// when it is set and to the configured directory otherwise.
func (s *AnalysisService) AnalyzeFile(ctx context.Context, path string, topN int, outDir string) (*operations.Result, error) {
	s.logger.InfoContext(ctx, "analysis requested",
		slog.String("file", path),
		slog.Int("top_n", topN),
	)
	return s.run(ctx, operations.Request{
		Source:    path,
		TopN:      topN,
		OutputDir: outDir,
	})
}

func (s *AnalysisService) run(ctx context.Context, req operations.Request) (*operations.Result, error) {
	result, err := s.runner.Execute(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "analysis failed",
			slog.String("run_id", req.ID),
			slog.String("step", operations.FailedStep(err)),
			slog.String("error", err.Error()),
		)
		return result, err
	}

	s.logger.InfoContext(ctx, "analysis completed",
		slog.String("run_id", result.ID),
		slog.Int("reports", len(result.Reports)),
		slog.Int("diagnostics", len(result.Diagnostics())),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// FormatFromName picks the loader format from a file extension
func FormatFromName(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return operations.FormatCSV, nil
	case ".xlsx":
		return operations.FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/middleware"
	"salesinsight/internal/operations"
	"salesinsight/internal/services"
	api "salesinsight/pkg/contracts/api/v1"
)

// Query and form field names
const (
	FieldFile  = "file"
	ParamTopN  = "top_n"
	ParamSheet = "sheet"

	maxTopN = 1000
)

// AnalysisHandlerOptions configures the analysis handler
type AnalysisHandlerOptions struct {
	MaxUploadBytes int64
	Timeout        time.Duration
}

// AnalysisHandler handles dataset uploads
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	errorHandler *apperrors.ErrorHandler
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	opts         AnalysisHandlerOptions
	logger       *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, errorHandler *apperrors.ErrorHandler, opts AnalysisHandlerOptions, logger *slog.Logger) *AnalysisHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}

	return &AnalysisHandler{
		service:      service,
		errorHandler: errorHandler,
		validator:    middleware.NewValidator(),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		opts:         opts,
		logger:       logger.With(slog.String("handler", "analysis")),
	}
}

// Routes sets up the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateAnalysis)
	return r
}

// CreateAnalysis handles POST /api/v1/analyses
func (h *AnalysisHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("analysis-handler").Start(r.Context(), "analysis_handler.create",
		trace.WithAttributes(
			attribute.String("http.route", "/api/v1/analyses"),
			attribute.String("request_id", middleware.GetRequestID(r.Context())),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	topN, ok := h.query.ValidateInt(w, r, ParamTopN, 1, maxTopN, 0)
	if !ok {
		span.SetStatus(codes.Error, "invalid top_n")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		h.fail(w, r, span, uploadError(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(FieldFile)
	if err != nil {
		h.fail(w, r, span, apperrors.ErrValidation(FieldFile, "file is required"))
		return
	}
	defer file.Close()

	params := api.AnalysisRequest{
		FileName: header.Filename,
		TopN:     topN,
		Sheet:    r.URL.Query().Get(ParamSheet),
	}
	if err := h.validator.ValidateStruct(params); err != nil {
		h.fail(w, r, span, err)
		return
	}

	span.SetAttributes(
		attribute.String("analysis.file", params.FileName),
		attribute.Int64("analysis.bytes", header.Size),
	)

	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	result, err := h.service.Analyze(ctx, services.AnalysisInput{
		FileName: params.FileName,
		Body:     file,
		TopN:     params.TopN,
		Sheet:    params.Sheet,
	})
	if err != nil {
		h.fail(w, r, span, err)
		return
	}

	h.logger.InfoContext(ctx, "analysis served",
		slog.String("run_id", result.ID),
		slog.String("file", params.FileName),
		slog.Int("reports", len(result.Reports)),
	)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, NewAnalysisResponse(result, params.FileName))
}

func (h *AnalysisHandler) fail(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	h.errorHandler.HandleError(w, r, err)
}

// uploadError maps a multipart parse failure onto an API error
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return apperrors.ErrPayloadTooLarge
	}
	return apperrors.InvalidRequestWithError(err)
}

// stepOrder lists pipeline steps in execution order
var stepOrder = []string{
	operations.StageIDLoad,
	operations.StageIDClean,
	operations.StageIDDerive,
	operations.StageIDAggregate,
	operations.StageIDExport,
}

// NewAnalysisResponse converts a pipeline result into its API shape
func NewAnalysisResponse(result *operations.Result, source string) api.AnalysisResponse {
	resp := api.AnalysisResponse{
		ID:          result.ID,
		Status:      string(result.Status),
		Source:      source,
		DurationMS:  result.Duration.Milliseconds(),
		InputRows:   result.InputRows,
		CleanedRows: result.CleanedRows,
		Columns:     result.Columns,
		Reports:     make([]api.Report, 0, len(result.Reports)),
		Log:         make([]api.LogEntry, 0, len(result.Log)),
		Diagnostics: len(result.Diagnostics()),
		CreatedAt:   time.Now().UTC(),
		Cleaning: api.CleaningSummary{
			RowsRemoved:        result.Cleaning.RowsRemoved,
			DuplicatesRemoved:  result.Cleaning.DuplicatesRemoved,
			InvalidRowsRemoved: result.Cleaning.InvalidRowsRemoved,
		},
	}

	for _, imp := range result.Cleaning.ImputedColumns {
		resp.Cleaning.ImputedColumns = append(resp.Cleaning.ImputedColumns, imp.Column)
	}

	for _, rep := range result.Reports {
		records := rep.Records()
		resp.Reports = append(resp.Reports, api.Report{
			Name:    rep.Name(),
			Columns: records[0],
			Rows:    records[1:],
		})
	}

	for _, e := range result.Log {
		resp.Log = append(resp.Log, api.LogEntry{Step: e.Step, Details: e.Details, Diagnostic: e.Diagnostic})
	}

	for _, f := range result.Outputs {
		resp.Outputs = append(resp.Outputs, api.OutputFile{Name: f.Name, Kind: string(f.Kind), Rows: f.Rows, Size: f.Size})
	}

	for _, id := range stepOrder {
		st, ok := result.Steps[id]
		if !ok {
			continue
		}
		resp.Steps = append(resp.Steps, api.StepSummary{
			ID:         st.ID,
			Name:       st.Name,
			Status:     string(st.GetStatus()),
			DurationMS: st.Duration().Milliseconds(),
			Error:      st.Error,
		})
	}
	return resp
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/operations"
	"salesinsight/internal/services"
	"salesinsight/internal/shared/testutil"
	api "salesinsight/pkg/contracts/api/v1"
)

type stubAnalysisService struct {
	inputs []services.AnalysisInput
	body   string
	result *operations.Result
	err    error
}

func (s *stubAnalysisService) Analyze(_ context.Context, in services.AnalysisInput) (*operations.Result, error) {
	b, _ := io.ReadAll(in.Body)
	s.body = string(b)
	s.inputs = append(s.inputs, in)
	if s.result == nil {
		s.result = &operations.Result{ID: "run-1", Status: operations.OperationStatusCompleted}
	}
	return s.result, s.err
}

func uploadRequest(t *testing.T, target, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestAnalysisHandler(t *testing.T, svc AnalysisServiceInterface, opts AnalysisHandlerOptions) *AnalysisHandler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewAnalysisHandler(svc, apperrors.NewErrorHandler(logger, false), opts, logger)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAnalysisHandler_PassesUploadToService(t *testing.T) {
	svc := &stubAnalysisService{}
	h := newTestAnalysisHandler(t, svc, AnalysisHandlerOptions{})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, uploadRequest(t, "/?top_n=4&sheet=Data", FieldFile, "sales.csv", []byte("Sales\n10\n")))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, svc.inputs, 1)
	assert.Equal(t, "sales.csv", svc.inputs[0].FileName)
	assert.Equal(t, 4, svc.inputs[0].TopN)
	assert.Equal(t, "Data", svc.inputs[0].Sheet)
	assert.Equal(t, "Sales\n10\n", svc.body)

	var resp api.AnalysisResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "run-1", resp.ID)
	assert.Equal(t, "sales.csv", resp.Source)
}

func TestAnalysisHandler_RequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		opts       AnalysisHandlerOptions
		wantStatus int
		wantType   string
	}{
		{
			name: "top_n not a number",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/?top_n=ten", FieldFile, "sales.csv", []byte("Sales\n1\n"))
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name: "top_n out of range",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/?top_n=0", FieldFile, "sales.csv", []byte("Sales\n1\n"))
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name: "missing file field",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/", "", "", nil)
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name: "unsupported extension",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/", FieldFile, "sales.json", []byte("{}"))
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", strings.NewReader("Sales\n1\n"))
			},
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name: "upload too large",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/", FieldFile, "sales.csv", bytes.Repeat([]byte("1\n"), 4096))
			},
			opts:       AnalysisHandlerOptions{MaxUploadBytes: 1024},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   apperrors.TypePayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAnalysisService{}
			h := newTestAnalysisHandler(t, svc, tt.opts)

			rec := httptest.NewRecorder()
			h.CreateAnalysis(rec, tt.req(t))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var problem map[string]any
			decodeJSON(t, rec, &problem)
			assert.Equal(t, tt.wantType, problem["type"])
			assert.Empty(t, svc.inputs)
		})
	}
}

func TestAnalysisHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing sales column",
			err:        operations.NewFatalError("cannot analyze", apperrors.NewMissingColumnsError("analysis", []string{"Sales"})),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apperrors.TypeMissingColumns,
		},
		{
			name:       "unreadable dataset",
			err:        apperrors.NewParsingError("failed to read input", io.ErrUnexpectedEOF),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apperrors.TypeDataCorrupted,
		},
		{
			name:       "deadline",
			err:        operations.NewTimeoutError(operations.StageIDAggregate, "1s", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   apperrors.TypeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestAnalysisHandler(t, &stubAnalysisService{err: tt.err}, AnalysisHandlerOptions{})

			rec := httptest.NewRecorder()
			h.CreateAnalysis(rec, uploadRequest(t, "/", FieldFile, "sales.csv", []byte("Region\nNorth\n")))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var problem map[string]any
			decodeJSON(t, rec, &problem)
			assert.Equal(t, tt.wantType, problem["type"])
		})
	}
}

func TestAnalysisHandler_EndToEnd(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := operations.NewConfig()
	cfg.Output.Dir = t.TempDir()
	svc := services.NewAnalysisService(operations.NewPipeline(cfg, logger), cfg.Output.Dir, logger)
	h := newTestAnalysisHandler(t, svc, AnalysisHandlerOptions{Timeout: time.Minute})

	rec := httptest.NewRecorder()
	h.CreateAnalysis(rec, uploadRequest(t, "/?top_n=5", FieldFile, "sales.csv", testutil.SalesFixtureCSV(t)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.AnalysisResponse
	decodeJSON(t, rec, &resp)

	assert.Equal(t, string(operations.OperationStatusCompleted), resp.Status)
	assert.Equal(t, testutil.FixtureRows, resp.InputRows)
	assert.Equal(t, testutil.FixtureExpectedRows, resp.CleanedRows)
	assert.Contains(t, resp.Columns, "Profit")
	assert.Len(t, resp.Reports, 8)
	assert.NotEmpty(t, resp.Outputs)
	require.Len(t, resp.Steps, 5)
	assert.Equal(t, operations.StageIDLoad, resp.Steps[0].ID)

	var top api.Report
	for _, r := range resp.Reports {
		if r.Name == "top_products" {
			top = r
		}
	}
	assert.LessOrEqual(t, len(top.Rows), 5)
	assert.NotEmpty(t, top.Columns)
}

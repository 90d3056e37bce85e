package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesinsight/internal/config"
	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/shared/testutil"
	api "salesinsight/pkg/contracts/api/v1"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "output")
	cfg.Telemetry.TracingEnabled = false
	cfg.Server.Port = 0
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.OTelProviders.Shutdown(context.Background()) })
	return a
}

func upload(t *testing.T, target string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	_, err := NewApplication(nil, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
}

func TestNewApplication_CreatesOutputDir(t *testing.T) {
	cfg := testConfig(t)
	newTestApp(t, cfg)

	info, err := os.Stat(cfg.Output.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/health/ready", http.StatusOK},
		{http.MethodGet, "/api/health/live", http.StatusOK},
		{http.MethodGet, "/api/version", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodGet, "/api/v1/analyses", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_AnalysisRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, upload(t, "/api/v1/analyses?top_n=5", testutil.SalesFixtureCSV(t)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testutil.FixtureExpectedRows, resp.CleanedRows)
	assert.Len(t, resp.Reports, 8)

	_, err := os.Stat(filepath.Join(cfg.Output.Dir, resp.ID, "top_products.csv"))
	assert.NoError(t, err)

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "analysis_runs_total")
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestApplication_MissingSalesStillAnalyzes(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, upload(t, "/api/v1/analyses", []byte("Region,Units\nNorth,3\nSouth,4\n")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Empty(t, resp.Reports)
	assert.Positive(t, resp.Diagnostics)

	var notFound int
	for _, e := range resp.Log {
		if e.Diagnostic && strings.Contains(e.Details, "required columns not found") {
			notFound++
		}
	}
	assert.Equal(t, 6, notFound)
}

func TestApplication_EmptyDatasetIsUnprocessable(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, upload(t, "/api/v1/analyses", []byte("Region,Sales\n")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, apperrors.TypeInputInvalid, problem["type"])
}

func TestApplication_RateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RateLimit.RPS = 0.001
	cfg.Server.RateLimit.Burst = 1
	a := newTestApp(t, cfg)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, upload(t, "/api/v1/analyses", []byte("Region\nNorth\n")))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestApplication_ServeAndShutdown(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, l) }()

	url := fmt.Sprintf("http://%s/api/health", l.Addr().String())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/services"
	"salesinsight/internal/shared/testutil"
	"salesinsight/pkg/contracts"
)

type idlePipeline struct{}

func (idlePipeline) ActiveCount() int { return 0 }

func TestHealthHandler_Routes(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewHealthHandler(services.NewHealthService("1.0.0", t.TempDir(), idlePipeline{}, logger), logger)
	routes := h.Routes()

	for _, path := range []string{"/", "/ready", "/live"} {
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHealthHandler_NotReady(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	blocker := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	h := NewHealthHandler(services.NewHealthService("1.0.0", blocker, idlePipeline{}, logger), logger)

	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status services.HealthStatus
	decodeJSON(t, rec, &status)
	assert.Equal(t, "not_ready", status.Status)
}

func TestHealthHandler_Version(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewHealthHandler(services.NewHealthService("1.0.0", "", nil, logger), logger)

	rec := httptest.NewRecorder()
	h.Version(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	var info contracts.VersionInfo
	decodeJSON(t, rec, &info)
	assert.Equal(t, contracts.Version, info.Version)
}

func TestMetricsHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apperrors.NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	NewMetricsHandler(nil, errorHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	exposition := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("analysis_runs_total 1\n"))
	})
	NewMetricsHandler(exposition, errorHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "analysis_runs_total")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "salesinsight/internal/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultTopN, cfg.Analysis.TopN)
	assert.False(t, cfg.Analysis.ParallelAggregators)
	assert.Equal(t, DefaultOutputDir, cfg.Output.Dir)
	assert.True(t, cfg.Output.Workbook)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, AppName, cfg.Telemetry.ServiceName)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
analysis:
  top_n: 25
  parallel_aggregators: true
output:
  dir: /tmp/reports
server:
  read_timeout: 5s
`)

	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t), ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Analysis.TopN)
	assert.True(t, cfg.Analysis.ParallelAggregators)
	assert.Equal(t, "/tmp/reports", cfg.Output.Dir)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Output.Manifest)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "analysis:\n  top_n: 25\n")
	t.Setenv("SALES_ANALYSIS_TOP_N", "3")
	t.Setenv("SALES_SERVER_RATE_LIMIT_RPS", "0.5")
	t.Setenv("SALES_LOGGING_LEVEL", "debug")

	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t), ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Analysis.TopN)
	assert.Equal(t, 0.5, cfg.Server.RateLimit.RPS)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DotEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "SALES_OUTPUT_DIR=from-dotenv\nSALES_ANALYSIS_TOP_N=7\n")
	t.Setenv("SALES_ANALYSIS_TOP_N", "4")
	t.Cleanup(func() { os.Unsetenv("SALES_OUTPUT_DIR") })

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Output.Dir)
	assert.Equal(t, 4, cfg.Analysis.TopN, "real env vars win over .env")
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantField string
	}{
		{
			name:      "top n zero",
			env:       map[string]string{"SALES_ANALYSIS_TOP_N": "0"},
			wantField: "Config.Analysis.TopN",
		},
		{
			name:      "bad log level",
			env:       map[string]string{"SALES_LOGGING_LEVEL": "loud"},
			wantField: "Config.Logging.Level",
		},
		{
			name:      "port out of range",
			env:       map[string]string{"SALES_SERVER_PORT": "70000"},
			wantField: "Config.Server.Port",
		},
		{
			name:      "empty output dir",
			env:       map[string]string{"SALES_OUTPUT_DIR": ""},
			wantField: "Config.Output.Dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(LoadOptions{EnvFile: noEnvFile(t)})

			require.Error(t, err)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTypeConfig, appErr.Type)
			assert.Equal(t, tt.wantField, appErr.Context["field"])
		})
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("SALES_ANALYSIS_TOP_N", "many")

	_, err := Load(LoadOptions{EnvFile: noEnvFile(t)})

	assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "analysis: [unclosed")

	_, err := Load(LoadOptions{EnvFile: noEnvFile(t), ConfigFile: path})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, path, appErr.Context["path"])
}

package operations

import (
	"time"

	"salesinsight/internal/analysis"
	"salesinsight/internal/config"
	"salesinsight/internal/exporter"
)

// Config represents the pipeline execution configuration
type Config struct {
	// Rows kept by the ranking reports
	TopN int `json:"top_n"`

	// Run aggregators concurrently
	ParallelAggregators bool `json:"parallel_aggregators"`

	// Worksheet read from XLSX input, empty for the first one
	Sheet string `json:"sheet"`

	// Step-specific timeouts
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// Whether the export step writes files
	ExportEnabled bool `json:"export_enabled"`

	// What the export step writes
	Output exporter.Options `json:"output"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		TopN: analysis.DefaultTopN,
		StageTimeouts: map[string]time.Duration{
			StageIDLoad:      DefaultLoadTimeout,
			StageIDAggregate: DefaultAggregateTimeout,
		},
		ExportEnabled: true,
		Output:        exporter.OptionsFrom(config.Default().Output),
	}
}

// ConfigFrom maps the application config onto the pipeline config
func ConfigFrom(cfg *config.Config) *Config {
	c := NewConfig()
	if cfg == nil {
		return c
	}
	c.TopN = cfg.Analysis.TopN
	c.ParallelAggregators = cfg.Analysis.ParallelAggregators
	c.Sheet = cfg.Analysis.Sheet
	c.Output = exporter.OptionsFrom(cfg.Output)
	return c
}

// GetStageTimeout returns the timeout for a specific step
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok {
		return timeout
	}
	return DefaultStageTimeout
}

// SetStageTimeout sets the timeout for a specific step
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stageID] = timeout
}

// topN resolves the row limit for a request
func (c *Config) topN(req Request) int {
	if req.TopN > 0 {
		return req.TopN
	}
	if c.TopN > 0 {
		return c.TopN
	}
	return analysis.DefaultTopN
}

package config

import "time"

// Application constants
const (
	AppName    = "sales-insight"
	AppVersion = "1.0.0"

	DefaultTopN            = 10
	DefaultOutputDir       = "output"
	DefaultWorkbookName    = "sales_analysis.xlsx"
	DefaultLogFile         = "logs/sales-insight.log"
	DefaultAnalysisTimeout = 2 * time.Minute
	DefaultMaxUploadBytes  = 32 << 20

	DefaultRateLimit = 5 // analyses per second
	DefaultBurstSize = 10
)

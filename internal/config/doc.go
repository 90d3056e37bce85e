// Package config loads the configuration of the sales analysis tools.
//
// # Configuration Sources
//
// Values are layered, lowest precedence first:
//
//	1. Default()
//	2. config.yaml (or configs/config.yaml, or LoadOptions.ConfigFile)
//	3. Environment variables, optionally seeded from a .env file
//
// # Environment Variables
//
// Variables use the SALES_ prefix followed by the section name:
//
//	SALES_ANALYSIS_TOP_N=20
//	SALES_ANALYSIS_PARALLEL_AGGREGATORS=true
//	SALES_OUTPUT_DIR=/var/reports
//	SALES_LOGGING_LEVEL=debug
//	SALES_SERVER_PORT=9090
//	SALES_SERVER_RATE_LIMIT_RPS=2
//
// # Validation
//
// Load validates the merged result with go-playground/validator and reports
// failures as CONFIG errors naming the offending field.
package config

// Package app wires the sales analysis server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Initialize OpenTelemetry from the telemetry config
//	2. Build the pipeline, the analysis and health services
//	3. Set up the chi router with middleware and handlers
//	4. Configure the HTTP server
//
// Configuration and the logger are created by the caller so that commands
// and tests control where settings come from.
//
// # Graceful Shutdown
//
// Run blocks until its context is cancelled or the server fails, then
// shuts the server down within the configured timeout and flushes
// telemetry. The package never calls os.Exit.
package app

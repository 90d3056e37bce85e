// Package http implements the HTTP handlers of the sales analysis server.
// Handlers only deal with HTTP concerns: they parse and validate the request,
// delegate to a service, and render the result with chi/render. Every error
// goes through errors.ErrorHandler so clients always receive RFC 7807 problem
// details.
//
// # Endpoints
//
//	POST /api/v1/analyses      multipart upload ("file"), query top_n and sheet
//	GET  /api/health           liveness summary
//	GET  /api/health/ready     readiness, including the output directory
//	GET  /api/health/live      process liveness
//	GET  /api/version          build information
//	GET  /metrics              prometheus exposition
package http

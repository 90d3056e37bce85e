// Package services sits between the HTTP handlers and the analysis pipeline.
// AnalysisService turns an uploaded dataset into a pipeline request and runs
// it; HealthService reports liveness, readiness and version information.
//
// Services take their collaborators and a *slog.Logger through their
// constructors and return internal/errors types that the transport layer
// renders as problem details.
package services

package http

import (
	"context"

	"salesinsight/internal/operations"
	"salesinsight/internal/services"
)

// AnalysisServiceInterface is what the analysis handler needs from the
// service layer
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, in services.AnalysisInput) (*operations.Result, error)
}

package ai

import (
	"context"

	"github.com/contract_approval/backend/internal/models"
	"github.com/contract_approval/backend/internal/policy"
)

// AnalysisRequest carries everything the analysis step sees about one contract.
type AnalysisRequest struct {
	Title          string
	Text           string
	PolicyPrompt   string
	Rules          []policy.Rule
	History        models.CustomerHistory
	HistoryContext string
}

// Analyzer returns the raw analysis text. Callers turn it into a
// models.Analysis with ParseAnalysis.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)
}

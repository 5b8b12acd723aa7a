package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/contract_approval/backend/internal/models"
)

const excerptLen = 200

// MalformedAnalysisError reports analysis output that is not the expected
// JSON document.
type MalformedAnalysisError struct {
	Excerpt string
	Err     error
}

func (e *MalformedAnalysisError) Error() string {
	return fmt.Sprintf("malformed analysis: %v", e.Err)
}

func (e *MalformedAnalysisError) Unwrap() error {
	return e.Err
}

// ParseAnalysis extracts the analysis document from raw model output. A
// fenced code block is unwrapped first, ```json fences taking precedence.
func ParseAnalysis(raw string) (models.Analysis, error) {
	body := stripFences(raw)
	if body == "" {
		return models.Analysis{}, &MalformedAnalysisError{Excerpt: excerpt(raw), Err: fmt.Errorf("empty analysis")}
	}

	var a models.Analysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return models.Analysis{}, &MalformedAnalysisError{Excerpt: excerpt(raw), Err: err}
	}

	if a.Violations == nil {
		a.Violations = []models.Violation{}
	}
	if a.HighestEscalation.Rank() == 0 {
		a.HighestEscalation = HighestLevel(a.Violations)
	}
	if !a.Recommendation.Action.Valid() {
		a.Recommendation.Action = models.ActionCautious
	}
	return a, nil
}

func stripFences(raw string) string {
	s := raw
	if _, after, ok := strings.Cut(s, "```json"); ok {
		s, _, _ = strings.Cut(after, "```")
	} else if _, after, ok := strings.Cut(s, "```"); ok {
		s, _, _ = strings.Cut(after, "```")
	}
	return strings.TrimSpace(s)
}

func excerpt(raw string) string {
	r := []rune(strings.TrimSpace(raw))
	if len(r) <= excerptLen {
		return string(r)
	}
	return string(r[:excerptLen]) + "..."
}

// HighestLevel returns the most senior escalation level among violations,
// or "" when none carries a known level.
func HighestLevel(violations []models.Violation) models.EscalationLevel {
	var best models.EscalationLevel
	for _, v := range violations {
		if v.EscalationLevel.Rank() > best.Rank() {
			best = v.EscalationLevel
		}
	}
	return best
}

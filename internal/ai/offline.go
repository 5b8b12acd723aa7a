package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/contract_approval/backend/internal/models"
	"github.com/contract_approval/backend/internal/policy"
)

// OfflineAnalyzer screens contracts against the catalog by comparing the
// numeric threshold of each rule with the figures quoted in the text. It is
// used when no model endpoint is configured and always answers the same way
// for the same input.
type OfflineAnalyzer struct{}

type unit int

const (
	unitNone unit = iota
	unitPercent
	unitDays
	unitMonths
)

var (
	numberRe   = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	percentRe  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:%|per\s*cent|percent)`)
	daysRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:calendar\s+|business\s+|working\s+)?days?\b`)
	monthsRe   = regexp.MustCompile(`(?i)(\d+)\s*months?\b`)
	clauseStop = regexp.MustCompile(`[.;](?:\s|$)|\n`)

	lessWords = []string{"below", "less than", "shorter than", "under", "lower than", "fewer than"}
)

type screen struct {
	rule      policy.Rule
	threshold float64
	unit      unit
	less      bool
	keywords  []string
}

func (OfflineAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clauses := splitClauses(req.Text)
	violations := []models.Violation{}
	conditions := []string{}
	for _, rule := range req.Rules {
		s, ok := newScreen(rule)
		if !ok {
			continue
		}
		for _, clause := range clauses {
			value, hit := s.match(clause)
			if !hit {
				continue
			}
			level := approvingLevel(rule.ApprovalMatrix)
			violations = append(violations, models.Violation{
				ClauseText:      clause,
				PolicyViolated:  rule.Condition,
				Category:        rule.Category,
				Severity:        severityFor(level),
				EscalationLevel: level,
				Comment: fmt.Sprintf("The clause sets %s, which meets the condition %q. %s approval is required before signing.",
					value, rule.Condition, level),
			})
			conditions = append(conditions, rule.Condition)
			break
		}
	}

	highest := HighestLevel(violations)
	analysis := models.Analysis{
		Summary: fmt.Sprintf("Offline screening of %q against %d approval rules found %d clause(s) outside policy. %s",
			req.Title, len(req.Rules), len(violations), historySentence(req.History)),
		Violations:        violations,
		HighestEscalation: highest,
		Recommendation:    Recommend(req.History, highest, conditions),
	}
	b, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", err
	}
	return "```json\n" + string(b) + "\n```", nil
}

func newScreen(rule policy.Rule) (screen, bool) {
	cond := strings.ToLower(rule.Condition)
	num := numberRe.FindString(cond)
	if num == "" {
		return screen{}, false
	}
	threshold, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", "."), 64)
	if err != nil {
		return screen{}, false
	}

	s := screen{rule: rule, threshold: threshold}
	switch {
	case strings.Contains(cond, "%") || strings.Contains(cond, "percent") || strings.Contains(cond, "per cent"):
		s.unit = unitPercent
	case strings.Contains(cond, "day"):
		s.unit = unitDays
	case strings.Contains(cond, "month"):
		s.unit = unitMonths
	default:
		return screen{}, false
	}
	for _, w := range lessWords {
		if strings.Contains(cond, w) {
			s.less = true
			break
		}
	}

	for _, w := range strings.Fields(strings.ToLower(rule.Category)) {
		w = strings.Trim(w, "()/,-")
		if len(w) >= 4 {
			s.keywords = append(s.keywords, w)
		}
	}
	return s, len(s.keywords) > 0
}

// match reports whether clause mentions the rule's subject with a figure on
// the wrong side of the threshold, and returns that figure as written.
func (s screen) match(clause string) (string, bool) {
	lower := strings.ToLower(clause)
	mentioned := false
	for _, k := range s.keywords {
		if strings.Contains(lower, k) {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return "", false
	}

	var re *regexp.Regexp
	switch s.unit {
	case unitPercent:
		re = percentRe
	case unitDays:
		re = daysRe
	case unitMonths:
		re = monthsRe
	}
	for _, m := range re.FindAllStringSubmatch(clause, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		if (s.less && v < s.threshold) || (!s.less && v > s.threshold) {
			return m[0], true
		}
	}
	return "", false
}

// splitClauses cuts text at sentence ends and line breaks. Every returned
// clause is a verbatim substring of text.
func splitClauses(text string) []string {
	var out []string
	start := 0
	for _, loc := range clauseStop.FindAllStringIndex(text, -1) {
		if c := strings.TrimSpace(text[start:loc[0]]); c != "" {
			out = append(out, c)
		}
		start = loc[1]
	}
	if c := strings.TrimSpace(text[start:]); c != "" {
		out = append(out, c)
	}
	return out
}

func approvingLevel(m policy.ApprovalMatrix) models.EscalationLevel {
	var best models.EscalationLevel
	for _, a := range m {
		level := models.EscalationLevel(a.Role)
		if level.Rank() == 0 || !strings.Contains(strings.ToLower(a.Involvement), "approve") {
			continue
		}
		if level.Rank() > best.Rank() {
			best = level
		}
	}
	if best == "" {
		return models.LevelHeadOfBU
	}
	return best
}

func severityFor(level models.EscalationLevel) models.Severity {
	switch level {
	case models.LevelCEO:
		return models.SeverityHigh
	case models.LevelBAPresident:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func historySentence(h models.CustomerHistory) string {
	switch {
	case h.CustomerName == "":
		return "The customer could not be identified."
	case !h.HasHistory:
		return fmt.Sprintf("%s has no previous contracts on record.", h.CustomerName)
	default:
		return fmt.Sprintf("%s has %d previous contract(s) with %d accepted deviation(s).",
			h.CustomerName, h.TotalContracts, h.TotalAcceptedDeviations)
	}
}

package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/contract_approval/backend/internal/ai"
	"github.com/contract_approval/backend/internal/gdocs"
	"github.com/contract_approval/backend/internal/googleauth"
	"github.com/contract_approval/backend/internal/models"
	"github.com/contract_approval/backend/internal/policy"
)

const (
	msgNoDocument = "I couldn't find a Google Docs URL in your message. " +
		"Please provide a Google Docs contract URL to evaluate.\n\n" +
		"Example: Please evaluate this contract: https://docs.google.com/document/d/YOUR_DOC_ID/edit"

	msgNoPending = "There is no pending evaluation to escalate. " +
		"An escalation email is only offered after an evaluation recommends escalating directly (escalate-directly). " +
		"Share a Google Docs contract link to start a new evaluation.\n"

	msgColorGuide = "🎨 **Color Guide:**\n" +
		"- 🟡 Yellow = Head of BU approval\n" +
		"- 🟠 Orange = BA President approval\n" +
		"- 🔴 Red = CEO approval\n\n"
)

type stage string

const (
	stageFetch    stage = "fetch"
	stagePolicy   stage = "policy"
	stageAnalysis stage = "analysis"
	stageParse    stage = "parse"
	stageMail     stage = "mail"
)

func checklist(s stage) string {
	if s == stageMail {
		return "Please check:\n" +
			"- Gmail credentials are valid and allow sending mail\n" +
			"- An escalation recipient (ESCALATION_EMAIL) is configured\n" +
			"- The mail service is reachable\n"
	}
	return "Please check:\n" +
		"- The Google Docs URL is correct and accessible\n" +
		"- You have edit/comment permissions on the document\n" +
		"- Google credentials (credentials.json and token.json) are valid\n" +
		"- The analysis service endpoint and API key are configured\n"
}

// describe turns a turn failure into one readable sentence.
func describe(s stage, err error) string {
	var malformed *ai.MalformedAnalysisError
	var rateLimited ai.RateLimitError
	switch {
	case errors.Is(err, googleauth.ErrNotConfigured):
		return "Google credentials are not configured for this service."
	case errors.Is(err, gdocs.ErrInvalidReference):
		return "the document link is malformed."
	case errors.Is(err, policy.ErrCatalogUnavailable):
		return "the approval matrix could not be loaded."
	case errors.As(err, &malformed):
		return "the analysis returned a result that could not be read."
	case errors.As(err, &rateLimited):
		if rateLimited.RetryAfter > 0 {
			return fmt.Sprintf("the analysis service is busy, retry in %s.", rateLimited.RetryAfter)
		}
		return "the analysis service is busy, retry shortly."
	}
	switch s {
	case stageFetch:
		return "the contract could not be read from Google Docs."
	case stageAnalysis:
		return "the contract analysis request failed."
	case stageMail:
		return "the escalation email could not be sent."
	default:
		return "an unexpected problem occurred."
	}
}

// ViolationsSummary lists violations one per line for the escalation email.
func ViolationsSummary(violations []models.Violation) string {
	lines := make([]string, 0, len(violations))
	for _, v := range violations {
		level := v.EscalationLevel
		if level == "" {
			level = models.LevelHeadOfBU
		}
		line := fmt.Sprintf("- %s (%s approval)", v.PolicyViolated, level)
		if v.Category != "" {
			line = fmt.Sprintf("- [%s] %s (%s approval)", v.Category, v.PolicyViolated, level)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func customerLine(h models.CustomerHistory) string {
	switch {
	case h.CustomerName == "":
		return "👤 Customer could not be identified from the contract text\n\n"
	case !h.HasHistory:
		return fmt.Sprintf("👤 Customer: %s (no previous contracts)\n\n", h.CustomerName)
	default:
		return fmt.Sprintf("👤 Customer: %s (%d previous contracts, %d accepted deviations, %.1f average negotiation rounds)\n\n",
			h.CustomerName, h.TotalContracts, h.TotalAcceptedDeviations, h.AvgNegotiationRounds)
	}
}

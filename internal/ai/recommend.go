package ai

import (
	"fmt"
	"strings"

	"github.com/contract_approval/backend/internal/models"
)

const (
	lowAcceptanceShare  = 0.3
	highAcceptanceShare = 0.5
	maxSmoothRounds     = 3.0
	maxToleratedRounds  = 4.0
)

// Recommend classifies how a contract should be escalated given the
// customer's history and the most senior level the violations require.
// violated lists the policy conditions triggered by the contract.
func Recommend(h models.CustomerHistory, level models.EscalationLevel, violated []string) models.EscalationRecommendation {
	share := h.AcceptanceShare()

	if level.Rank() >= models.LevelBAPresident.Rank() {
		switch {
		case h.TotalAcceptedDeviations == 0 || share < lowAcceptanceShare:
			return models.EscalationRecommendation{
				Action: models.ActionRenegotiate,
				Reasoning: fmt.Sprintf("%s approval is required and %s has rarely had deviations accepted (%d accepted across %d contracts). Negotiate the terms back to policy first.",
					level, customerLabel(h), h.TotalAcceptedDeviations, h.TotalContracts),
			}
		case h.AvgNegotiationRounds > maxToleratedRounds:
			return models.EscalationRecommendation{
				Action: models.ActionRenegotiate,
				Reasoning: fmt.Sprintf("%s approval is required and %s averages %.1f negotiation rounds, so there is room to push back before escalating.",
					level, customerLabel(h), h.AvgNegotiationRounds),
			}
		}
	}

	if h.HasHistory &&
		(share > highAcceptanceShare || h.TotalAcceptedDeviations > 1) &&
		h.AvgNegotiationRounds < maxSmoothRounds &&
		previouslyAccepted(h.AcceptedDeviationTypes, violated) {
		return models.EscalationRecommendation{
			Action: models.ActionEscalateDirectly,
			Reasoning: fmt.Sprintf("%s has had similar deviations accepted before (%.0f%% of contracts) and negotiations are usually short (%.1f rounds). Escalating directly should be uncontroversial.",
				customerLabel(h), share*100, h.AvgNegotiationRounds),
		}
	}

	return models.EscalationRecommendation{
		Action:    models.ActionCautious,
		Reasoning: fmt.Sprintf("The history of %s gives no clear signal. Review the flagged clauses with the account team before escalating.", customerLabel(h)),
	}
}

func customerLabel(h models.CustomerHistory) string {
	if h.CustomerName == "" {
		return "the customer"
	}
	return h.CustomerName
}

func previouslyAccepted(accepted, violated []string) bool {
	for _, a := range accepted {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		for _, v := range violated {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			if a == v || strings.Contains(a, v) || strings.Contains(v, a) {
				return true
			}
		}
	}
	return false
}

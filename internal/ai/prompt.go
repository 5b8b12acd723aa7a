package ai

import (
	"fmt"
	"strings"
)

const recommendationGuide = `ESCALATION RECOMMENDATION RULES:
- "re-negotiate": the highest required level is BA President or CEO AND the customer rarely had deviations accepted (fewer than 30% of past contracts, or none at all) OR the customer averages more than 4 negotiation rounds.
- "escalate-directly": the customer had deviations accepted in more than 50% of past contracts (or more than once) AND averages fewer than 3 negotiation rounds AND a deviation of the same type was accepted before.
- "cautious-approach": every other case, including customers without history at Head of BU level.`

// SystemPrompt is the instruction block sent ahead of the contract text.
func SystemPrompt(req AnalysisRequest) string {
	var b strings.Builder
	b.WriteString(`You are a contract reviewer for a supplier company. Your ONLY job is to identify contract terms that trigger the specific approval matrix rules provided below.

CRITICAL INSTRUCTIONS:
1. ONLY flag violations that EXACTLY match the approval matrix conditions below
2. DO NOT use your general knowledge about contracts or business practices
3. DO NOT flag issues that are not explicitly defined in the approval matrix
4. If a term doesn't match any approval matrix condition, ignore it completely

`)
	b.WriteString(req.PolicyPrompt)
	b.WriteString(`

ESCALATION HIERARCHY (lowest to highest):
- Head of BU (Business Unit)
- BA President (Business Area President)
- CEO (Chief Executive Officer)

`)
	if req.HistoryContext != "" {
		b.WriteString(req.HistoryContext)
		b.WriteString("\n\n")
	}
	b.WriteString(recommendationGuide)
	b.WriteString(`

CRITICAL: For "clause_text", extract the EXACT text containing the violating term:
- Find the SPECIFIC phrase that contains the violating number/percentage (e.g., "500%", "120 days", "20%")
- Extract the MINIMAL complete sentence or clause containing that number
- If the sentence is long (>150 chars), extract ONLY the relevant clause/phrase with the violation
- DO NOT include introductory or conditional clauses before the violation
- The text MUST be copied verbatim so it can be found and highlighted in the document

Your analysis must be returned as valid JSON with this structure:
{
  "summary": "2-sentence high-level summary of the contract and violations found",
  "violations": [
    {
      "clause_text": "EXACT text containing the violating term/number",
      "policy_violated": "EXACT condition text from approval matrix that is triggered",
      "category": "EXACT category from approval matrix",
      "severity": "high|medium|low",
      "escalation_level": "role that has 'Approves/Decides' for this condition",
      "comment": "explanation of how this clause triggers the policy and recommendation"
    }
  ],
  "highest_escalation": "CEO|BA President|Head of BU",
  "recommendation": {
    "action": "re-negotiate|escalate-directly|cautious-approach",
    "reasoning": "one or two sentences referring to the customer history"
  }
}

REMEMBER: Only include violations that EXACTLY match an approval matrix rule. Do not invent or infer policies.`)
	return b.String()
}

func UserMessage(req AnalysisRequest) string {
	return fmt.Sprintf(`Please analyze this contract and identify all terms that trigger the approval matrix rules:

CONTRACT TITLE: %s

CONTRACT TEXT:
%s

Return your analysis as valid JSON.`, req.Title, req.Text)
}

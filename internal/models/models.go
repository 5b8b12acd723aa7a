package models

import "time"

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// EscalationLevel is the role whose approval a violation requires.
type EscalationLevel string

const (
	LevelHeadOfBU    EscalationLevel = "Head of BU"
	LevelBAPresident EscalationLevel = "BA President"
	LevelCEO         EscalationLevel = "CEO"
)

// Rank orders levels by authority. Unknown levels rank zero.
func (l EscalationLevel) Rank() int {
	switch l {
	case LevelHeadOfBU:
		return 1
	case LevelBAPresident:
		return 2
	case LevelCEO:
		return 3
	default:
		return 0
	}
}

type RecommendationAction string

const (
	ActionRenegotiate      RecommendationAction = "re-negotiate"
	ActionEscalateDirectly RecommendationAction = "escalate-directly"
	ActionCautious         RecommendationAction = "cautious-approach"
)

func (a RecommendationAction) Valid() bool {
	switch a {
	case ActionRenegotiate, ActionEscalateDirectly, ActionCautious:
		return true
	}
	return false
}

type DocumentSegment struct {
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

type Document struct {
	ID       string            `json:"id"`
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	FullText string            `json:"full_text"`
	Segments []DocumentSegment `json:"segments"`
}

type Violation struct {
	ClauseText      string          `json:"clause_text"`
	PolicyViolated  string          `json:"policy_violated"`
	Category        string          `json:"category"`
	Severity        Severity        `json:"severity"`
	EscalationLevel EscalationLevel `json:"escalation_level"`
	Comment         string          `json:"comment"`
}

type EscalationRecommendation struct {
	Action    RecommendationAction `json:"action"`
	Reasoning string               `json:"reasoning"`
}

// Analysis is the structured result of the contract analysis step.
type Analysis struct {
	Summary           string                   `json:"summary"`
	Violations        []Violation              `json:"violations"`
	HighestEscalation EscalationLevel          `json:"highest_escalation"`
	Recommendation    EscalationRecommendation `json:"recommendation"`
}

type AnnotationResult struct {
	Success     bool   `json:"success"`
	CommentID   string `json:"comment_id,omitempty"`
	Highlighted bool   `json:"highlighted,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Policy      string `json:"policy"`
}

type RGBColor struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

type AnnotationRequest struct {
	StartOffset int      `json:"start_offset"`
	Length      int      `json:"length"`
	Color       RGBColor `json:"color"`
	Comment     string   `json:"comment"`
	QuotedText  string   `json:"quoted_text"`
}

type AnnotationReceipt struct {
	CommentID   string `json:"comment_id"`
	Highlighted bool   `json:"highlighted"`
}

type AcceptedDeviation struct {
	Condition string `json:"condition"`
	Category  string `json:"category,omitempty"`
	Details   string `json:"details,omitempty"`
}

// PastContract is one row of the historical contract ledger.
type PastContract struct {
	ContractID                string              `json:"contract_id,omitempty"`
	Purchaser                 string              `json:"purchaser"`
	AcceptedDeviations        []AcceptedDeviation `json:"accepted_deviations"`
	CustomerNegotiationRounds int                 `json:"customer_negotiation_rounds"`
	Outcome                   string              `json:"outcome,omitempty"`
	SignedAt                  string              `json:"signed_at,omitempty"`
}

type CustomerHistory struct {
	CustomerName            string   `json:"customer_name"`
	HasHistory              bool     `json:"has_history"`
	TotalContracts          int      `json:"total_contracts"`
	TotalAcceptedDeviations int      `json:"total_accepted_deviations"`
	ContractsWithDeviations int      `json:"contracts_with_deviations"`
	AvgNegotiationRounds    float64  `json:"avg_negotiation_rounds"`
	AcceptedDeviationTypes  []string `json:"accepted_deviation_types"`
}

// AcceptanceShare is the fraction of past contracts in which at least one
// deviation was accepted.
func (h CustomerHistory) AcceptanceShare() float64 {
	if h.TotalContracts == 0 {
		return 0
	}
	return float64(h.ContractsWithDeviations) / float64(h.TotalContracts)
}

type PendingEvaluation struct {
	DocumentURL            string          `json:"document_url"`
	DocumentTitle          string          `json:"document_title"`
	ViolationsSummary      string          `json:"violations_summary"`
	HighestEscalationLevel EscalationLevel `json:"highest_escalation_level"`
}

// ConversationContext is the only state carried between turns of one session.
type ConversationContext struct {
	Pending   *PendingEvaluation `json:"pending,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (c ConversationContext) HasPending() bool {
	return c.Pending != nil
}

type EscalationNotice struct {
	To                string          `json:"to"`
	RecipientName     string          `json:"recipient_name"`
	ContractTitle     string          `json:"contract_title"`
	ContractURL       string          `json:"contract_url"`
	ViolationsSummary string          `json:"violations_summary"`
	EscalationLevel   EscalationLevel `json:"escalation_level"`
}

type DispatchResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EvaluationRecord is the audit row written after every completed evaluation.
type EvaluationRecord struct {
	ID                string               `json:"id"`
	SessionID         string               `json:"session_id"`
	DocumentURL       string               `json:"document_url"`
	DocumentTitle     string               `json:"document_title"`
	CustomerName      string               `json:"customer_name"`
	ViolationCount    int                  `json:"violation_count"`
	AnnotatedCount    int                  `json:"annotated_count"`
	HighestEscalation EscalationLevel      `json:"highest_escalation"`
	Action            RecommendationAction `json:"action"`
	EmailSent         bool                 `json:"email_sent"`
	Summary           string               `json:"summary"`
	CreatedAt         time.Time            `json:"created_at"`
	Annotations       []AnnotationResult   `json:"annotations,omitempty"`
}

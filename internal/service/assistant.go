package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/contract_approval/backend/internal/ai"
	"github.com/contract_approval/backend/internal/annotate"
	"github.com/contract_approval/backend/internal/history"
	"github.com/contract_approval/backend/internal/mail"
	"github.com/contract_approval/backend/internal/metrics"
	"github.com/contract_approval/backend/internal/models"
	"github.com/contract_approval/backend/internal/policy"
	"github.com/contract_approval/backend/internal/textindex"
)

// Documents reads contracts and annotates them. *gdocs.Client satisfies it.
type Documents interface {
	Fetch(ctx context.Context, ref string) (models.Document, error)
	annotate.Documents
}

// Recorder keeps the audit trail of completed evaluations. *db.Store
// satisfies it.
type Recorder interface {
	RecordEvaluation(ctx context.Context, rec models.EvaluationRecord) (string, error)
	MarkEmailSent(ctx context.Context, sessionID, documentURL string) error
}

// Recipient is the approver who receives escalation emails.
type Recipient struct {
	Email string
	Name  string
}

// Assistant runs one conversation turn at a time. The caller owns the
// ConversationContext and must serialise turns of the same session.
type Assistant struct {
	Docs       Documents
	Annotator  *annotate.Annotator
	Analyzer   ai.Analyzer
	Mail       mail.Sender
	Recorder   Recorder
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
	PolicyPath string
	LedgerPath string
	Recipient  Recipient
	Now        func() time.Time
}

func (a *Assistant) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

// Turn handles one user message and returns the state for the next turn.
// Every fragment of the reply goes through emit, which receives a done
// event last.
func (a *Assistant) Turn(ctx context.Context, sessionID, message string, state models.ConversationContext, emit models.Emitter) models.ConversationContext {
	defer emit.Done()
	log := a.Logger.With().Str("session_id", sessionID).Logger()

	if IsAffirmation(message) {
		if !state.HasPending() {
			emit.Progress(msgNoPending)
			return state
		}
		log.Info().Str("document", state.Pending.DocumentURL).Msg("confirmation received, sending escalation")
		return a.sendPending(ctx, log, sessionID, state, state, emit)
	}

	url := ExtractDocumentURL(message)
	if url == "" {
		emit.Progress(msgNoDocument)
		if !state.HasPending() {
			return state
		}
		emit.Progress(fmt.Sprintf("\n\nThe escalation email for **%s** was not sent and has been discarded.", state.Pending.DocumentTitle))
		log.Info().Str("document", state.Pending.DocumentURL).Msg("pending escalation discarded")
		next := state
		next.Pending = nil
		next.UpdatedAt = a.now()
		return next
	}

	emit.Progress("📄 Found Google Docs URL\n")
	emit.Progress("🔍 Starting contract evaluation...\n\n")
	return a.evaluate(ctx, log, sessionID, url, WantsImmediateSend(message), state, emit)
}

func (a *Assistant) evaluate(ctx context.Context, log zerolog.Logger, sessionID, url string, sendNow bool, state models.ConversationContext, emit models.Emitter) models.ConversationContext {
	emit.Progress("Reading contract from Google Docs...\n")
	doc, err := a.Docs.Fetch(ctx, url)
	if err != nil {
		return a.fail(log, stageFetch, err, state, emit)
	}
	if doc.URL == "" {
		doc.URL = url
	}
	emit.Progress(fmt.Sprintf("Contract: %s (%d characters)\n", doc.Title, utf8.RuneCountInString(doc.FullText)))

	catalog, err := policy.Load(a.PolicyPath)
	if err != nil {
		return a.fail(log, stagePolicy, err, state, emit)
	}
	rendered, err := catalog.Render(policy.FormatStructured)
	if err != nil {
		return a.fail(log, stagePolicy, err, state, emit)
	}

	name, _ := history.ExtractCustomerName(doc.FullText)
	h := history.Summarize(name, history.LoadLedger(a.LedgerPath, log))
	emit.Progress(customerLine(h))

	emit.Progress("Analyzing contract against the approval matrix...\n")
	started := time.Now()
	raw, err := a.Analyzer.Analyze(ctx, ai.AnalysisRequest{
		Title:          doc.Title,
		Text:           doc.FullText,
		PolicyPrompt:   rendered,
		Rules:          catalog.Rules,
		History:        h,
		HistoryContext: history.ContextBlock(h),
	})
	a.Metrics.ObserveAnalysis(time.Since(started))
	if err != nil {
		return a.fail(log, stageAnalysis, err, state, emit)
	}
	analysis, err := ai.ParseAnalysis(raw)
	if err != nil {
		return a.fail(log, stageParse, err, state, emit)
	}
	log.Info().
		Str("document", doc.URL).
		Str("customer", h.CustomerName).
		Int("violations", len(analysis.Violations)).
		Str("highest", string(analysis.HighestEscalation)).
		Str("action", string(analysis.Recommendation.Action)).
		Msg("contract analysed")

	emit.Progress("✅ Analysis complete\n\n")
	emit.Progress("📊 **Summary**\n" + analysis.Summary + "\n\n")

	var results []models.AnnotationResult
	if n := len(analysis.Violations); n > 0 {
		highest := analysis.HighestEscalation
		if highest == "" {
			highest = models.LevelHeadOfBU
		}
		emit.Progress("⚠️ **Contract Terms Deviations from Policies**\n\n")
		emit.Progress(fmt.Sprintf("Found **%d** violation(s) that require escalation.\n\n", n))
		emit.Progress(fmt.Sprintf("**Highest Approval Level Required:** %s\n\n", highest))

		emit.Progress("💬 Adding comments and highlights to document...\n")
		results = a.Annotator.Annotate(ctx, doc.URL, textindex.Build(doc.Segments), analysis.Violations, emit)
		emit.Progress(fmt.Sprintf("\n✅ Added %d/%d comments to the document\n\n", annotate.Succeeded(results), n))
		emit.Progress(msgColorGuide)
	} else {
		emit.Progress("✅ No policy violations found. The contract can follow the standard approval path.\n\n")
	}

	rec := analysis.Recommendation
	emit.Progress(fmt.Sprintf("🧭 **Recommendation:** %s\n%s\n\n", rec.Action, rec.Reasoning))
	emit.Progress(fmt.Sprintf("📋 **Review the contract:** [Open in Google Docs](%s)\n\n", doc.URL))

	next := state
	next.Pending = nil

	if rec.Action == models.ActionEscalateDirectly {
		pending := &models.PendingEvaluation{
			DocumentURL:            doc.URL,
			DocumentTitle:          doc.Title,
			ViolationsSummary:      ViolationsSummary(analysis.Violations),
			HighestEscalationLevel: analysis.HighestEscalation,
		}
		if pending.HighestEscalationLevel == "" {
			pending.HighestEscalationLevel = models.LevelHeadOfBU
		}
		next.Pending = pending

		if sendNow {
			a.record(ctx, log, sessionID, doc, h, analysis, results)
			a.Metrics.Evaluation(string(rec.Action))
			return a.sendPending(ctx, log, sessionID, next, state, emit)
		}
		emit.Progress(fmt.Sprintf("📧 Would you like me to send an escalation email to %s for %s approval? Reply \"yes\" to send it.\n",
			a.recipientLabel(), pending.HighestEscalationLevel))
	}

	a.record(ctx, log, sessionID, doc, h, analysis, results)
	a.Metrics.Evaluation(string(rec.Action))
	next.UpdatedAt = a.now()
	return next
}

// sendPending dispatches the escalation stored in state. On failure it
// returns fallback, the state the turn started from.
func (a *Assistant) sendPending(ctx context.Context, log zerolog.Logger, sessionID string, state, fallback models.ConversationContext, emit models.Emitter) models.ConversationContext {
	p := *state.Pending
	emit.Progress(fmt.Sprintf("📧 Sending escalation email for **%s** (%s approval)...\n", p.DocumentTitle, p.HighestEscalationLevel))

	res := a.Mail.Send(ctx, mail.ComposeNotice(p, a.Recipient.Email, a.Recipient.Name))
	a.Metrics.Email(res.Success)
	if !res.Success {
		return a.fail(log, stageMail, fmt.Errorf("send escalation: %s", res.Error), fallback, emit)
	}
	log.Info().Str("message_id", res.MessageID).Str("document", p.DocumentURL).Msg("escalation email sent")
	emit.Progress(fmt.Sprintf("✅ Escalation email sent to %s.\n", a.recipientLabel()))

	if a.Recorder != nil {
		if err := a.Recorder.MarkEmailSent(ctx, sessionID, p.DocumentURL); err != nil {
			log.Warn().Err(err).Msg("could not mark evaluation as escalated")
		}
	}

	next := state
	next.Pending = nil
	next.UpdatedAt = a.now()
	return next
}

func (a *Assistant) record(ctx context.Context, log zerolog.Logger, sessionID string, doc models.Document, h models.CustomerHistory, analysis models.Analysis, results []models.AnnotationResult) {
	if a.Recorder == nil {
		return
	}
	id, err := a.Recorder.RecordEvaluation(ctx, models.EvaluationRecord{
		SessionID:         sessionID,
		DocumentURL:       doc.URL,
		DocumentTitle:     doc.Title,
		CustomerName:      h.CustomerName,
		ViolationCount:    len(analysis.Violations),
		AnnotatedCount:    annotate.Succeeded(results),
		HighestEscalation: analysis.HighestEscalation,
		Action:            analysis.Recommendation.Action,
		Summary:           analysis.Summary,
		CreatedAt:         a.now(),
		Annotations:       results,
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not record evaluation")
		return
	}
	log.Debug().Str("evaluation_id", id).Msg("evaluation recorded")
}

func (a *Assistant) fail(log zerolog.Logger, s stage, err error, state models.ConversationContext, emit models.Emitter) models.ConversationContext {
	log.Error().Err(err).Str("stage", string(s)).Msg("turn failed")
	a.Metrics.TurnError(string(s))
	emit.Progress(fmt.Sprintf("\n❌ Error during evaluation: %s\n\n%s", describe(s, err), checklist(s)))
	return state
}

func (a *Assistant) recipientLabel() string {
	switch {
	case a.Recipient.Name != "" && a.Recipient.Email != "":
		return fmt.Sprintf("%s (%s)", a.Recipient.Name, a.Recipient.Email)
	case a.Recipient.Email != "":
		return a.Recipient.Email
	case a.Recipient.Name != "":
		return a.Recipient.Name
	default:
		return "the approver"
	}
}

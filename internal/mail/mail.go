package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/contract_approval/backend/internal/googleauth"
	"github.com/contract_approval/backend/internal/models"
)

// Sender delivers escalation notices. Failures are reported in the result,
// never as a Go error.
type Sender interface {
	Send(ctx context.Context, n models.EscalationNotice) models.DispatchResult
}

// ComposeNotice fills a notice from a pending evaluation.
func ComposeNotice(p models.PendingEvaluation, to, recipientName string) models.EscalationNotice {
	return models.EscalationNotice{
		To:                to,
		RecipientName:     recipientName,
		ContractTitle:     p.DocumentTitle,
		ContractURL:       p.DocumentURL,
		ViolationsSummary: p.ViolationsSummary,
		EscalationLevel:   p.HighestEscalationLevel,
	}
}

func Subject(n models.EscalationNotice) string {
	return "Contract Approval Required: " + n.ContractTitle
}

func Body(n models.EscalationNotice) string {
	return fmt.Sprintf(`Dear %s,

Approval is required for the following contract that has been evaluated and requires escalation to %s.

Contract: %s
Review here: %s

Summary of Policy Violations:
%s

Please review the contract at your earliest convenience. The violations have been highlighted in the document with color-coded backgrounds and detailed comments.

Color Guide:
- Yellow = Head of BU approval
- Orange = BA President approval
- Red = CEO approval

Best regards,
Contract Approval System
`, n.RecipientName, n.EscalationLevel, n.ContractTitle, n.ContractURL, n.ViolationsSummary)
}

// RFC822 renders a plain text message with an encoded subject.
func RFC822(n models.EscalationNotice) []byte {
	var b strings.Builder
	b.WriteString("To: " + n.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", Subject(n)) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(Body(n), "\n", "\r\n"))
	return []byte(b.String())
}

// GmailSender sends through the Gmail API as the authorised user.
type GmailSender struct {
	svc    *gmail.Service
	logger zerolog.Logger
}

func NewGmailSender(ctx context.Context, logger zerolog.Logger, opts ...option.ClientOption) (*GmailSender, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &GmailSender{svc: svc, logger: logger}, nil
}

func NewGmailSenderFromFiles(ctx context.Context, credentialsFile, tokenFile string, logger zerolog.Logger) (*GmailSender, error) {
	ts, err := googleauth.TokenSource(ctx, credentialsFile, tokenFile, logger)
	if err != nil {
		return nil, err
	}
	return NewGmailSender(ctx, logger, option.WithTokenSource(ts))
}

func (g *GmailSender) Send(ctx context.Context, n models.EscalationNotice) models.DispatchResult {
	if strings.TrimSpace(n.To) == "" {
		return models.DispatchResult{Success: false, Error: "no escalation recipient configured"}
	}
	raw := base64.URLEncoding.EncodeToString(RFC822(n))
	msg, err := g.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		g.logger.Error().Err(err).Str("to", n.To).Msg("escalation email failed")
		return models.DispatchResult{Success: false, Error: err.Error()}
	}
	g.logger.Info().Str("to", n.To).Str("message_id", msg.Id).Str("level", string(n.EscalationLevel)).Msg("escalation email sent")
	return models.DispatchResult{Success: true, MessageID: msg.Id}
}

// LogSender records notices in the log instead of delivering them. It is
// used when Gmail is not configured.
type LogSender struct {
	Logger zerolog.Logger
}

func (l LogSender) Send(_ context.Context, n models.EscalationNotice) models.DispatchResult {
	id := "log-" + uuid.NewString()
	l.Logger.Info().
		Str("message_id", id).
		Str("to", n.To).
		Str("subject", Subject(n)).
		Str("level", string(n.EscalationLevel)).
		Str("contract_url", n.ContractURL).
		Msg("escalation email (not delivered, mail transport not configured)")
	return models.DispatchResult{Success: true, MessageID: id}
}

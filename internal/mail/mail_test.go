package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/contract_approval/backend/internal/models"
)

func sampleNotice() models.EscalationNotice {
	return ComposeNotice(models.PendingEvaluation{
		DocumentURL:            "https://docs.google.com/document/d/ABC/edit",
		DocumentTitle:          "Acme Supply Contract",
		ViolationsSummary:      "- Payment term longer than 90 days net (CEO)",
		HighestEscalationLevel: models.LevelCEO,
	}, "antti@example.com", "Antti")
}

func TestComposeNoticeAndBody(t *testing.T) {
	n := sampleNotice()
	assert.Equal(t, "Acme Supply Contract", n.ContractTitle)
	assert.Equal(t, models.LevelCEO, n.EscalationLevel)

	body := Body(n)
	assert.True(t, strings.HasPrefix(body, "Dear Antti,\n\nApproval is required"))
	assert.Contains(t, body, "requires escalation to CEO.")
	assert.Contains(t, body, "Review here: https://docs.google.com/document/d/ABC/edit")
	assert.Contains(t, body, "- Red = CEO approval")
	assert.Equal(t, "Contract Approval Required: Acme Supply Contract", Subject(n))
}

func TestRFC822Headers(t *testing.T) {
	msg := string(RFC822(sampleNotice()))
	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, head, "To: antti@example.com")
	assert.Contains(t, head, "Subject: Contract Approval Required: Acme Supply Contract")
	assert.Contains(t, body, "Dear Antti,\r\n")
}

func TestGmailSenderSendsRawMessage(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/send"), r.URL.Path)
		var body struct {
			Raw string `json:"raw"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw = body.Raw
		_, _ = w.Write([]byte(`{"id": "msg-1"}`))
	}))
	defer srv.Close()

	s, err := NewGmailSender(context.Background(), zerolog.Nop(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	res := s.Send(context.Background(), sampleNotice())
	assert.Equal(t, models.DispatchResult{Success: true, MessageID: "msg-1"}, res)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "To: antti@example.com")
}

func TestGmailSenderReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "insufficient scope"}}`))
	}))
	defer srv.Close()

	s, err := NewGmailSender(context.Background(), zerolog.Nop(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	res := s.Send(context.Background(), sampleNotice())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "insufficient scope")

	res = s.Send(context.Background(), models.EscalationNotice{})
	assert.False(t, res.Success)
}

func TestLogSender(t *testing.T) {
	res := LogSender{Logger: zerolog.Nop()}.Send(context.Background(), sampleNotice())
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.MessageID, "log-"))
}

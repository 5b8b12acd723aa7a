package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/contract_approval/backend/internal/db"
	"github.com/contract_approval/backend/internal/models"
	"github.com/contract_approval/backend/internal/policy"
	"github.com/contract_approval/backend/internal/session"
)

const SessionHeader = "X-Session-Id"

// Turner runs one conversation turn. *service.Assistant satisfies it.
type Turner interface {
	Turn(ctx context.Context, sessionID, message string, state models.ConversationContext, emit models.Emitter) models.ConversationContext
}

// EvaluationStore is the read side of the audit log. *db.Store satisfies it.
type EvaluationStore interface {
	Ping(ctx context.Context) error
	ListEvaluations(ctx context.Context, limit, offset int) ([]models.EvaluationRecord, error)
	GetEvaluation(ctx context.Context, id string) (models.EvaluationRecord, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Assistant   Turner
	Sessions    session.Store
	Locker      *session.Locker
	Evaluations EvaluationStore
	PolicyPath  string
	TurnTimeout time.Duration
	Validator   *validator.Validate
	Logger      zerolog.Logger
}

type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=20000"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type ChatResponse struct {
	Response    string                    `json:"response"`
	SessionID   string                    `json:"session_id"`
	Pending     *models.PendingEvaluation `json:"pending,omitempty"`
	Annotations []models.AnnotationResult `json:"annotations"`
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "Contract Approval Assistant", "status": "running"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Healthz checks the optional backing stores.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if h.Evaluations != nil {
		if err := h.Evaluations.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	if p, ok := h.Sessions.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "SESSIONS_UNAVAILABLE", "Session store unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Chat turn
// @Description Runs one conversation turn and returns the whole reply
// @Tags chat
// @Accept json
// @Produce json
// @Param body body ChatRequest true "message"
// @Success 200 {object} ChatResponse
// @Failure 400 {object} map[string]any
// @Router /chat [post]
func (h *Handler) Chat(c *gin.Context) {
	id, message, ok := h.begin(c)
	if !ok {
		return
	}
	defer h.Locker.Lock(id)()

	var b strings.Builder
	results := []models.AnnotationResult{}
	next := h.run(c, id, message, func(e models.Event) {
		switch e.Type {
		case models.EventProgress:
			b.WriteString(e.Text)
		case models.EventResult:
			results = append(results, *e.Result)
		}
	})
	c.JSON(http.StatusOK, ChatResponse{Response: b.String(), SessionID: id, Pending: next.Pending, Annotations: results})
}

// @Summary Streaming chat turn
// @Description Streams the reply as plain text fragments
// @Tags chat
// @Accept json
// @Produce plain
// @Param body body ChatRequest true "message"
// @Success 200 {string} string
// @Router /chat/stream [post]
func (h *Handler) ChatStream(c *gin.Context) {
	id, message, ok := h.begin(c)
	if !ok {
		return
	}
	defer h.Locker.Lock(id)()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	gone := false
	h.run(c, id, message, func(e models.Event) {
		if gone || e.Type != models.EventProgress {
			return
		}
		if _, err := c.Writer.WriteString(e.Text); err != nil {
			gone = true
			return
		}
		c.Writer.Flush()
	})
}

// @Summary Chat turn as server-sent events
// @Description Streams progress, result and done events
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Param body body ChatRequest true "message"
// @Router /chat/events [post]
func (h *Handler) ChatEvents(c *gin.Context) {
	id, message, ok := h.begin(c)
	if !ok {
		return
	}
	defer h.Locker.Lock(id)()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	h.run(c, id, message, func(e models.Event) {
		if c.Request.Context().Err() != nil {
			return
		}
		c.SSEvent(string(e.Type), e)
		c.Writer.Flush()
	})
}

// @Summary Forget a session
// @Tags chat
// @Param id path string true "Session ID"
// @Success 204
// @Router /chat/{id} [delete]
func (h *Handler) ResetSession(c *gin.Context) {
	id := c.Param("id")
	defer h.Locker.Lock(id)()
	if err := h.Sessions.Delete(c.Request.Context(), id); err != nil {
		writeError(c, http.StatusServiceUnavailable, "SESSIONS_UNAVAILABLE", "Failed to reset session", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// begin validates the request and resolves the session id. It writes the
// error response itself when it returns false.
func (h *Handler) begin(c *gin.Context) (string, string, bool) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return "", "", false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return "", "", false
	}
	if req.SessionID == "" {
		req.SessionID = c.GetHeader(SessionHeader)
	}
	id := session.EnsureID(req.SessionID)
	c.Header(SessionHeader, id)
	return id, req.Message, true
}

const (
	msgSessionUnavailable = "\n❌ Your conversation could not be loaded, so nothing was done. Please try again in a moment.\n"
	msgSessionNotSaved    = "\n⚠️ The conversation could not be updated. Reset the session before replying \"yes\" again.\n"
)

// run loads the state under the session lock held by the caller, runs the
// turn and saves the result. The turn outlives a dropped client so that
// collaborator calls finish and the state stays consistent. A state that
// cannot be loaded is never replaced, and the done event is held back
// until the save has been attempted.
func (h *Handler) run(c *gin.Context, id, message string, emit models.Emitter) models.ConversationContext {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.turnTimeout())
	defer cancel()
	defer emit.Done()

	log := h.Logger.With().Str("session_id", id).Logger()
	state, err := h.Sessions.Load(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("session load failed, turn skipped")
		emit.Progress(msgSessionUnavailable)
		return models.ConversationContext{}
	}

	next := h.Assistant.Turn(ctx, id, message, state, func(e models.Event) {
		if e.Type != models.EventDone {
			emit(e)
		}
	})
	if err := h.save(ctx, id, next); err != nil {
		log.Error().Err(err).Msg("session save failed")
		emit.Progress(msgSessionNotSaved)
	}
	return next
}

// save retries a failed write once.
func (h *Handler) save(ctx context.Context, id string, next models.ConversationContext) error {
	err := h.Sessions.Save(ctx, id, next)
	if err == nil {
		return nil
	}
	h.Logger.Warn().Err(err).Str("session_id", id).Msg("session save failed, retrying")
	return h.Sessions.Save(ctx, id, next)
}

func (h *Handler) turnTimeout() time.Duration {
	if h.TurnTimeout > 0 {
		return h.TurnTimeout
	}
	return 5 * time.Minute
}

// @Summary Approval matrix
// @Tags policy
// @Produce json
// @Param format query string false "markdown, structured or compact"
// @Success 200 {object} map[string]any
// @Router /api/policy [get]
func (h *Handler) Policy(c *gin.Context) {
	format, err := policy.ParseFormat(c.DefaultQuery("format", string(policy.FormatMarkdown)))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown format", err.Error())
		return
	}
	catalog, err := policy.Load(h.PolicyPath)
	if err != nil {
		h.Logger.Error().Err(err).Msg("approval matrix unavailable")
		writeError(c, http.StatusServiceUnavailable, "POLICY_UNAVAILABLE", "Approval matrix unavailable", nil)
		return
	}
	rendered, err := catalog.Render(format)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "RENDER_ERROR", "Failed to render approval matrix", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"format": format, "rules": catalog.Rules, "rendered": rendered})
}

// @Summary Recorded evaluations
// @Tags evaluations
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} map[string]any
// @Router /api/evaluations [get]
func (h *Handler) EvaluationsList(c *gin.Context) {
	if h.Evaluations == nil {
		writeError(c, http.StatusServiceUnavailable, "AUDIT_DISABLED", "Evaluation log is not configured", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items, err := h.Evaluations.ListEvaluations(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list evaluations", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

// @Summary Recorded evaluation
// @Tags evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} models.EvaluationRecord
// @Router /api/evaluations/{id} [get]
func (h *Handler) EvaluationDetails(c *gin.Context) {
	if h.Evaluations == nil {
		writeError(c, http.StatusServiceUnavailable, "AUDIT_DISABLED", "Evaluation log is not configured", nil)
		return
	}
	rec, err := h.Evaluations.GetEvaluation(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Evaluation not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get evaluation", err.Error())
		return
	}
	c.JSON(http.StatusOK, rec)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

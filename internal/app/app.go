package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/contract_approval/backend/internal/ai"
	"github.com/contract_approval/backend/internal/annotate"
	"github.com/contract_approval/backend/internal/config"
	"github.com/contract_approval/backend/internal/db"
	"github.com/contract_approval/backend/internal/gdocs"
	"github.com/contract_approval/backend/internal/mail"
	"github.com/contract_approval/backend/internal/metrics"
	"github.com/contract_approval/backend/internal/service"
	"github.com/contract_approval/backend/internal/session"
)

// App holds the collaborators shared by the server and the CLI.
type App struct {
	Config    config.Config
	Assistant *service.Assistant
	Sessions  session.Store
	Locker    *session.Locker
	// Store is nil when DATABASE_URL is empty.
	Store   *db.Store
	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	closers []func()
}

// Build wires every collaborator from cfg. Missing Google credentials,
// model endpoint, database or Redis degrade to local fallbacks; a configured
// backend that cannot be reached is an error.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Locker:  session.NewLocker(),
		Metrics: metrics.New(),
		Logger:  logger,
	}

	docs := Documents(ctx, cfg, logger)
	sender := Mailer(ctx, cfg, logger)

	if cfg.RedisAddr != "" {
		rs := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Sessions = rs
		a.closers = append(a.closers, func() { _ = rs.Close() })
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis session store")
	} else {
		a.Sessions = session.NewMemoryStore(cfg.SessionTTL)
		logger.Info().Msg("using in-memory session store")
	}

	var recorder service.Recorder
	if cfg.DatabaseURL != "" {
		if err := db.Migrate(cfg.DatabaseURL, "up", 0); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
		recorder = store
	} else {
		logger.Info().Msg("DATABASE_URL not set, evaluation log disabled")
	}

	a.Assistant = &service.Assistant{
		Docs:       docs,
		Annotator:  &annotate.Annotator{Docs: docs, Logger: logger, Metrics: a.Metrics},
		Analyzer:   Analyzer(cfg, logger),
		Mail:       sender,
		Recorder:   recorder,
		Metrics:    a.Metrics,
		Logger:     logger,
		PolicyPath: cfg.PolicyFile,
		LedgerPath: cfg.LedgerFile,
		Recipient:  service.Recipient{Email: cfg.EscalationEmail, Name: cfg.EscalationRecipientName},
	}
	return a, nil
}

// Close releases backends in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Analyzer picks the model endpoint when one is configured and the offline
// screen otherwise.
func Analyzer(cfg config.Config, logger zerolog.Logger) ai.Analyzer {
	if cfg.AIBaseURL == "" {
		logger.Info().Msg("AI_BASE_URL not set, using offline analyzer")
		return ai.OfflineAnalyzer{}
	}
	return ai.OpenAICompatAnalyzer{
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		APIKey:      cfg.AIAPIKey,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
		Client:      &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Documents returns the Google Docs client, or a stand-in that fails every
// call with the reason the client could not be built.
func Documents(ctx context.Context, cfg config.Config, logger zerolog.Logger) service.Documents {
	client, err := gdocs.NewFromFiles(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("google docs not configured, evaluations will fail until credentials are provided")
		return gdocs.Unconfigured{Cause: err}
	}
	return client
}

// Mailer returns the Gmail sender, or a LogSender when no recipient or no
// Gmail access is configured.
func Mailer(ctx context.Context, cfg config.Config, logger zerolog.Logger) mail.Sender {
	if cfg.EscalationEmail == "" {
		logger.Info().Msg("ESCALATION_EMAIL not set, escalation emails are only logged")
		return mail.LogSender{Logger: logger}
	}
	sender, err := mail.NewGmailSenderFromFiles(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("gmail not configured, escalation emails are only logged")
		return mail.LogSender{Logger: logger}
	}
	return sender
}

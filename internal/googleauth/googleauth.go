package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
)

// ErrNotConfigured means no usable Google credentials were provided.
var ErrNotConfigured = errors.New("google credentials not configured")

// Scopes cover reading and styling documents, commenting through Drive and
// sending escalation mail.
var Scopes = []string{
	docs.DocumentsScope,
	drive.DriveFileScope,
	gmail.GmailSendScope,
}

// Config loads the OAuth client description downloaded from the Google
// Cloud console.
func Config(credentialsFile string) (*oauth2.Config, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CREDENTIALS_FILE is not set", ErrNotConfigured)
	}
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return cfg, nil
}

// TokenSource returns a refreshing token source seeded from tokenFile.
// Refreshed tokens are written back to the same file.
func TokenSource(ctx context.Context, credentialsFile, tokenFile string, logger zerolog.Logger) (oauth2.TokenSource, error) {
	cfg, err := Config(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := ReadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (run `contractctl auth` first)", ErrNotConfigured, err)
	}
	base := cfg.TokenSource(ctx, tok)
	return &savingSource{base: oauth2.ReuseTokenSource(tok, base), path: tokenFile, last: tok.AccessToken, logger: logger}, nil
}

func ReadToken(path string) (*oauth2.Token, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("GOOGLE_TOKEN_FILE is not set")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

func SaveToken(path string, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

type savingSource struct {
	base   oauth2.TokenSource
	path   string
	last   string
	logger zerolog.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.path, tok); err != nil {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("failed to persist refreshed google token")
		}
	}
	return tok, nil
}

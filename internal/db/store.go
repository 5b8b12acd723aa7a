package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contract_approval/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RecordEvaluation stores one completed evaluation and its per-clause
// annotation outcomes in a single transaction.
func (s *Store) RecordEvaluation(ctx context.Context, rec models.EvaluationRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	evalID, err := uuid.Parse(rec.ID)
	if err != nil {
		return "", fmt.Errorf("evaluation id: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err = s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO evaluations (id, session_id, document_url, document_title, customer_name,
				violation_count, annotated_count, highest_escalation, action, email_sent, summary, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			evalID, rec.SessionID, rec.DocumentURL, rec.DocumentTitle, rec.CustomerName,
			rec.ViolationCount, rec.AnnotatedCount, string(rec.HighestEscalation), string(rec.Action),
			rec.EmailSent, rec.Summary, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}
		if len(rec.Annotations) == 0 {
			return nil
		}
		rows := make([][]any, 0, len(rec.Annotations))
		for i, a := range rec.Annotations {
			rows = append(rows, []any{evalID, i + 1, a.Policy, a.Success, a.CommentID, a.Highlighted, a.Reason})
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"evaluation_annotations"},
			[]string{"evaluation_id", "position", "policy", "success", "comment_id", "highlighted", "reason"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("insert annotations: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// MarkEmailSent flags the latest evaluation of documentURL in the session
// as escalated.
func (s *Store) MarkEmailSent(ctx context.Context, sessionID, documentURL string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE evaluations SET email_sent = TRUE
		WHERE id = (
			SELECT id FROM evaluations
			WHERE session_id = $1 AND document_url = $2
			ORDER BY created_at DESC LIMIT 1
		)`, sessionID, documentURL)
	return err
}

const evaluationColumns = `id, session_id, document_url, document_title, customer_name, violation_count,
	annotated_count, highest_escalation, action, email_sent, summary, created_at`

func scanEvaluation(row pgx.Row) (models.EvaluationRecord, error) {
	var (
		rec    models.EvaluationRecord
		level  string
		action string
	)
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.DocumentURL, &rec.DocumentTitle, &rec.CustomerName,
		&rec.ViolationCount, &rec.AnnotatedCount, &level, &action, &rec.EmailSent, &rec.Summary, &rec.CreatedAt)
	rec.HighestEscalation = models.EscalationLevel(level)
	rec.Action = models.RecommendationAction(action)
	return rec, err
}

func (s *Store) ListEvaluations(ctx context.Context, limit, offset int) ([]models.EvaluationRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+evaluationColumns+` FROM evaluations ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.EvaluationRecord{}
	for rows.Next() {
		rec, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetEvaluation(ctx context.Context, id string) (models.EvaluationRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.EvaluationRecord{}, ErrNotFound
	}
	rec, err := scanEvaluation(s.Pool.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.EvaluationRecord{}, ErrNotFound
	}
	if err != nil {
		return models.EvaluationRecord{}, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT policy, success, comment_id, highlighted, reason
		FROM evaluation_annotations WHERE evaluation_id = $1 ORDER BY position`, id)
	if err != nil {
		return models.EvaluationRecord{}, err
	}
	defer rows.Close()
	rec.Annotations = []models.AnnotationResult{}
	for rows.Next() {
		var a models.AnnotationResult
		if err := rows.Scan(&a.Policy, &a.Success, &a.CommentID, &a.Highlighted, &a.Reason); err != nil {
			return models.EvaluationRecord{}, err
		}
		rec.Annotations = append(rec.Annotations, a)
	}
	return rec, rows.Err()
}

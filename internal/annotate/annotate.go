package annotate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/contract_approval/backend/internal/metrics"
	"github.com/contract_approval/backend/internal/models"
	"github.com/contract_approval/backend/internal/textindex"
)

const (
	// FallbackLength is how many leading characters of an unmatched clause
	// are retried.
	FallbackLength = 100
	quoteLength    = 50

	ReasonNotFound = "Text not found in document"
)

// Documents applies a highlight and an anchored comment to a document.
type Documents interface {
	Annotate(ctx context.Context, docRef string, req models.AnnotationRequest) (models.AnnotationReceipt, error)
}

// Locator finds exact text in a document. *textindex.Index satisfies it.
type Locator interface {
	Locate(needle string) textindex.Location
}

type Annotator struct {
	Docs    Documents
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

var (
	colorHeadOfBU    = models.RGBColor{Red: 1.0, Green: 1.0, Blue: 0.6}
	colorBAPresident = models.RGBColor{Red: 1.0, Green: 0.7, Blue: 0.4}
	colorCEO         = models.RGBColor{Red: 1.0, Green: 0.6, Blue: 0.6}
)

// HighlightColor maps an escalation level to its background color. Unknown
// levels get the Head of BU color.
func HighlightColor(level models.EscalationLevel) models.RGBColor {
	switch level {
	case models.LevelBAPresident:
		return colorBAPresident
	case models.LevelCEO:
		return colorCEO
	default:
		return colorHeadOfBU
	}
}

func ColorName(level models.EscalationLevel) string {
	switch level {
	case models.LevelBAPresident:
		return "Orange"
	case models.LevelCEO:
		return "Red"
	default:
		return "Yellow"
	}
}

// ComposeComment builds the comment body for a located clause.
func ComposeComment(v models.Violation, clause string) string {
	level := v.EscalationLevel
	if level == "" {
		level = models.LevelHeadOfBU
	}
	quote := []rune(clause)
	prefix := clause
	if len(quote) > quoteLength {
		prefix = string(quote[:quoteLength-3]) + "..."
	}
	return fmt.Sprintf("[Re: '%s']\n\n%s approval required\n\n%s", prefix, level, v.Comment)
}

// Annotate highlights and comments every violation in input order. A clause
// that cannot be located or annotated yields a failed result and the batch
// carries on.
func (a *Annotator) Annotate(ctx context.Context, docRef string, loc Locator, violations []models.Violation, emit models.Emitter) []models.AnnotationResult {
	results := make([]models.AnnotationResult, 0, len(violations))
	for i, v := range violations {
		r := a.annotateOne(ctx, docRef, loc, v)
		a.Metrics.Annotation(r.Success)

		ev := a.Logger.Debug()
		if !r.Success {
			ev = a.Logger.Warn().Str("reason", r.Reason)
		}
		ev.Int("index", i+1).Int("total", len(violations)).Str("policy", v.PolicyViolated).Bool("success", r.Success).Msg("clause annotation")

		if r.Success {
			emit.Progress(fmt.Sprintf("  [%d/%d] %s: highlighted in %s (%s approval)\n", i+1, len(violations), v.PolicyViolated, ColorName(v.EscalationLevel), levelOrDefault(v.EscalationLevel)))
		} else {
			emit.Progress(fmt.Sprintf("  [%d/%d] %s: could not annotate (%s)\n", i+1, len(violations), v.PolicyViolated, r.Reason))
		}
		emit.Result(r)
		results = append(results, r)
	}
	return results
}

func (a *Annotator) annotateOne(ctx context.Context, docRef string, loc Locator, v models.Violation) models.AnnotationResult {
	clause := v.ClauseText
	pos := loc.Locate(clause)
	if !pos.Found {
		if runes := []rune(clause); len(runes) > FallbackLength {
			shorter := string(runes[:FallbackLength])
			pos = loc.Locate(shorter)
			if pos.Found {
				clause = shorter
			}
		}
	}
	if !pos.Found {
		return models.AnnotationResult{Success: false, Reason: ReasonNotFound, Policy: v.PolicyViolated}
	}

	receipt, err := a.Docs.Annotate(ctx, docRef, models.AnnotationRequest{
		StartOffset: pos.StartOffset,
		Length:      pos.Length,
		Color:       HighlightColor(v.EscalationLevel),
		Comment:     ComposeComment(v, clause),
		QuotedText:  clause,
	})
	if err != nil {
		return models.AnnotationResult{Success: false, Reason: err.Error(), Policy: v.PolicyViolated}
	}
	return models.AnnotationResult{
		Success:     true,
		CommentID:   receipt.CommentID,
		Highlighted: receipt.Highlighted,
		Policy:      v.PolicyViolated,
	}
}

// Succeeded counts successful results.
func Succeeded(results []models.AnnotationResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

func levelOrDefault(l models.EscalationLevel) models.EscalationLevel {
	if l == "" {
		return models.LevelHeadOfBU
	}
	return l
}

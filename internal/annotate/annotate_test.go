package annotate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contract_approval/backend/internal/metrics"
	"github.com/contract_approval/backend/internal/models"
	"github.com/contract_approval/backend/internal/textindex"
)

type fakeDocs struct {
	calls  []models.AnnotationRequest
	failOn string
	nextID int
}

func (f *fakeDocs) Annotate(_ context.Context, _ string, req models.AnnotationRequest) (models.AnnotationReceipt, error) {
	f.calls = append(f.calls, req)
	if f.failOn != "" && strings.Contains(req.QuotedText, f.failOn) {
		return models.AnnotationReceipt{}, errors.New("insufficient permissions to comment")
	}
	f.nextID++
	return models.AnnotationReceipt{CommentID: "c" + string(rune('0'+f.nextID)), Highlighted: true}, nil
}

type countingLocator struct {
	inner   Locator
	needles []string
}

func (c *countingLocator) Locate(needle string) textindex.Location {
	c.needles = append(c.needles, needle)
	return c.inner.Locate(needle)
}

const contractText = "3. PAYMENT TERMS\nThe invoices are due for payment 120 days net from the date of invoice.\n" +
	"7. LIABILITY\nTotal liability cap for the scope of this CONTRACT shall be 500%.\n"

func index() *textindex.Index {
	return textindex.Build([]models.DocumentSegment{{Text: contractText, StartOffset: 1, EndOffset: 1 + len([]rune(contractText))}})
}

func newAnnotator(docs Documents) *Annotator {
	return &Annotator{Docs: docs, Logger: zerolog.Nop(), Metrics: metrics.New()}
}

func TestAnnotateBatchIsolation(t *testing.T) {
	violations := []models.Violation{
		{ClauseText: "The invoices are due for payment 120 days net", PolicyViolated: "Payment term", EscalationLevel: models.LevelCEO, Comment: "too long"},
		{ClauseText: "Liquidated damages of 20%", PolicyViolated: "LD cap", EscalationLevel: models.LevelBAPresident},
		{ClauseText: "Total liability cap for the scope of this CONTRACT shall be 500%", PolicyViolated: "Liability cap", EscalationLevel: models.LevelBAPresident},
	}
	docs := &fakeDocs{}
	var events []models.Event
	results := newAnnotator(docs).Annotate(context.Background(), "doc", index(), violations, func(e models.Event) { events = append(events, e) })

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.Equal(t, models.AnnotationResult{Success: false, Reason: ReasonNotFound, Policy: "LD cap"}, results[1])
	assert.True(t, results[2].Success)
	assert.Equal(t, 2, Succeeded(results))
	assert.Len(t, docs.calls, 2)

	// progress then result for each violation, in order
	require.Len(t, events, 6)
	for i := 0; i < 3; i++ {
		assert.Equal(t, models.EventProgress, events[2*i].Type)
		assert.Equal(t, models.EventResult, events[2*i+1].Type)
		assert.Equal(t, violations[i].PolicyViolated, events[2*i+1].Result.Policy)
	}
	assert.Contains(t, events[0].Text, "[1/3]")
}

func TestAnnotatePassesOffsetsAndColor(t *testing.T) {
	docs := &fakeDocs{}
	newAnnotator(docs).Annotate(context.Background(), "doc", index(), []models.Violation{
		{ClauseText: "120 days net", EscalationLevel: models.LevelCEO, Comment: "c"},
	}, nil)

	require.Len(t, docs.calls, 1)
	req := docs.calls[0]
	assert.Equal(t, 1+strings.Index(contractText, "120 days net"), req.StartOffset)
	assert.Equal(t, 12, req.Length)
	assert.Equal(t, models.RGBColor{Red: 1.0, Green: 0.6, Blue: 0.6}, req.Color)
	assert.Equal(t, "120 days net", req.QuotedText)
}

func TestAnnotateFallbackAttemptedOnce(t *testing.T) {
	found := "The invoices are due for payment 120 days net from the date of invoice.\n7. LIABILITY\nTotal liability"
	require.Len(t, []rune(found), FallbackLength)
	long := found + " is whatever the document never says"

	loc := &countingLocator{inner: index()}
	docs := &fakeDocs{}
	results := newAnnotator(docs).Annotate(context.Background(), "doc", loc, []models.Violation{{ClauseText: long, PolicyViolated: "p"}}, nil)

	require.True(t, results[0].Success)
	assert.Equal(t, []string{long, found}, loc.needles)
	assert.Equal(t, found, docs.calls[0].QuotedText)

	missing := strings.Repeat("x", 150)
	loc = &countingLocator{inner: index()}
	results = newAnnotator(docs).Annotate(context.Background(), "doc", loc, []models.Violation{{ClauseText: missing, PolicyViolated: "p"}}, nil)
	assert.False(t, results[0].Success)
	assert.Equal(t, ReasonNotFound, results[0].Reason)
	assert.Equal(t, []string{missing, missing[:FallbackLength]}, loc.needles)
}

func TestAnnotateShortClauseHasNoFallback(t *testing.T) {
	loc := &countingLocator{inner: index()}
	newAnnotator(&fakeDocs{}).Annotate(context.Background(), "doc", loc, []models.Violation{{ClauseText: "not there"}}, nil)
	assert.Len(t, loc.needles, 1)
}

func TestAnnotateCollaboratorErrorIsLocal(t *testing.T) {
	docs := &fakeDocs{failOn: "120 days"}
	results := newAnnotator(docs).Annotate(context.Background(), "doc", index(), []models.Violation{
		{ClauseText: "120 days net", PolicyViolated: "Payment term"},
		{ClauseText: "500%", PolicyViolated: "Liability cap"},
	}, nil)

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Equal(t, "insufficient permissions to comment", results[0].Reason)
	assert.True(t, results[1].Success)
}

func TestHighlightColor(t *testing.T) {
	assert.Equal(t, models.RGBColor{Red: 1.0, Green: 1.0, Blue: 0.6}, HighlightColor(models.LevelHeadOfBU))
	assert.Equal(t, models.RGBColor{Red: 1.0, Green: 0.7, Blue: 0.4}, HighlightColor(models.LevelBAPresident))
	assert.Equal(t, HighlightColor(models.LevelHeadOfBU), HighlightColor("Board"))
	assert.Equal(t, HighlightColor(models.LevelHeadOfBU), HighlightColor(""))
	assert.Equal(t, "Red", ColorName(models.LevelCEO))
}

func TestComposeComment(t *testing.T) {
	v := models.Violation{EscalationLevel: models.LevelCEO, Comment: "Exceeds 90 days."}
	assert.Equal(t, "[Re: '120 days net']\n\nCEO approval required\n\nExceeds 90 days.", ComposeComment(v, "120 days net"))

	long := strings.Repeat("a", 60)
	got := ComposeComment(models.Violation{Comment: "c"}, long)
	assert.True(t, strings.HasPrefix(got, "[Re: '"+strings.Repeat("a", 47)+"...']\n\nHead of BU approval required"))
}

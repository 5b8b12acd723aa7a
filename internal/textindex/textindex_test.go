package textindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contract_approval/backend/internal/models"
)

func sampleSegments() []models.DocumentSegment {
	return []models.DocumentSegment{
		{Text: "PAYMENT TERMS\n", StartOffset: 1, EndOffset: 15},
		{Text: "The invoices are due for payment ", StartOffset: 15, EndOffset: 48},
		{Text: "120 days net", StartOffset: 48, EndOffset: 60},
		{Text: " from the date of invoice.\n", StartOffset: 60, EndOffset: 87},
		// table cell, separated by a structural gap in the document
		{Text: "Liability cap 500%\n", StartOffset: 95, EndOffset: 114},
	}
}

// sliceDocument reads length characters at an absolute document offset
// straight from the segments.
func sliceDocument(segments []models.DocumentSegment, start, length int) string {
	out := make([]rune, 0, length)
	for _, seg := range segments {
		for i, r := range []rune(seg.Text) {
			abs := seg.StartOffset + i
			if abs >= start && len(out) < length {
				out = append(out, r)
			}
		}
	}
	return string(out)
}

func TestBuildKeepsParallelOffsets(t *testing.T) {
	ix := Build(sampleSegments())
	require.Equal(t, ix.Len(), len(ix.Offsets))
	assert.Equal(t, 1, ix.Offsets[0])
	assert.Equal(t, 95, ix.Offsets[len(ix.Offsets)-19])
}

func TestLocateRoundTrip(t *testing.T) {
	segments := sampleSegments()
	ix := Build(segments)

	needles := []string{
		"120 days net",
		"due for payment 120 days net from",
		"PAYMENT",
		"invoice.\nLiability",
		"500%",
	}
	for _, needle := range needles {
		loc := ix.Locate(needle)
		require.True(t, loc.Found, needle)
		assert.Equal(t, needle, sliceDocument(segments, loc.StartOffset, loc.Length), needle)
	}
}

func TestLocateAcrossGapMapsToFirstSegment(t *testing.T) {
	ix := Build(sampleSegments())
	loc := ix.Locate("invoice.\nLiability")
	require.True(t, loc.Found)
	assert.Equal(t, 78, loc.StartOffset)
}

func TestLocateFirstOccurrenceWins(t *testing.T) {
	ix := Build([]models.DocumentSegment{
		{Text: "net 30. ", StartOffset: 10},
		{Text: "again net 30.", StartOffset: 18},
	})
	loc := ix.Locate("net 30")
	require.True(t, loc.Found)
	assert.Equal(t, 10, loc.StartOffset)
}

func TestLocateIsExact(t *testing.T) {
	ix := Build(sampleSegments())
	assert.False(t, ix.Locate("120 DAYS NET").Found)
	assert.False(t, ix.Locate("120  days net").Found)
	assert.False(t, ix.Locate("").Found)
}

func TestLocateCountsRunesNotBytes(t *testing.T) {
	segments := []models.DocumentSegment{
		{Text: "Määräaika ", StartOffset: 1},
		{Text: "120 päivää", StartOffset: 11},
	}
	ix := Build(segments)
	loc := ix.Locate("päivää")
	require.True(t, loc.Found)
	assert.Equal(t, 15, loc.StartOffset)
	assert.Equal(t, 6, loc.Length)
	assert.Equal(t, "päivää", sliceDocument(segments, loc.StartOffset, loc.Length))
}

func TestLocateContextIsClamped(t *testing.T) {
	ix := Build(sampleSegments())
	loc := ix.Locate("PAYMENT")
	require.True(t, loc.Found)
	assert.Equal(t, "...PAYMENT TERMS\nThe invoices ...", loc.Context)
}

func TestLocateOnEmptyIndex(t *testing.T) {
	ix := Build(nil)
	assert.False(t, ix.Locate("x").Found)
	var nilIndex *Index
	assert.False(t, nilIndex.Locate("x").Found)
}

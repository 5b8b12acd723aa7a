package textindex

import (
	"strings"
	"unicode/utf8"

	"github.com/contract_approval/backend/internal/models"
)

const contextRadius = 20

// Index is a flat view of a segmented document. Offsets holds, for every
// rune of FullText, the absolute document offset it came from.
type Index struct {
	FullText string
	Offsets  []int

	runes []rune
}

type Location struct {
	Found       bool   `json:"found"`
	StartOffset int    `json:"start_offset,omitempty"`
	Length      int    `json:"length,omitempty"`
	Context     string `json:"context,omitempty"`
}

func Build(segments []models.DocumentSegment) *Index {
	var b strings.Builder
	offsets := make([]int, 0)
	for _, seg := range segments {
		i := 0
		for _, r := range seg.Text {
			offsets = append(offsets, seg.StartOffset+i)
			b.WriteRune(r)
			i++
		}
	}
	full := b.String()
	return &Index{FullText: full, Offsets: offsets, runes: []rune(full)}
}

// Locate finds the first exact occurrence of needle. No case or whitespace
// folding is applied.
func (ix *Index) Locate(needle string) Location {
	if ix == nil || needle == "" {
		return Location{}
	}
	byteIdx := strings.Index(ix.FullText, needle)
	if byteIdx < 0 {
		return Location{}
	}
	pos := utf8.RuneCountInString(ix.FullText[:byteIdx])
	length := utf8.RuneCountInString(needle)

	from := pos - contextRadius
	if from < 0 {
		from = 0
	}
	to := pos + length + contextRadius
	if to > len(ix.runes) {
		to = len(ix.runes)
	}
	return Location{
		Found:       true,
		StartOffset: ix.Offsets[pos],
		Length:      length,
		Context:     "..." + string(ix.runes[from:to]) + "...",
	}
}

// Len reports the number of runes in the flat buffer.
func (ix *Index) Len() int {
	return len(ix.runes)
}

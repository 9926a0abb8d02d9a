// Package chunk partitions extracted document text into bounded work units.
//
// Two modes are supported: page-grouped chunking for sources that report
// per-page text, and character-budget chunking for sources that supply only
// flat text. Both are deterministic: identical input always yields identical
// units, with indices contiguous from 0 in source order.
package chunk

import (
	"strings"

	"github.com/lingodoc/translation-engine/internal/domain"
)

const (
	// DefaultUnitSizePages is the number of source pages grouped into one unit.
	DefaultUnitSizePages = 20

	// DefaultMaxChars bounds a unit produced by character-budget chunking.
	DefaultMaxChars = 3000
)

// ByPages groups consecutive pages into units of unitSizePages pages each;
// the last unit may be smaller. A document with zero or one page becomes a
// single unit. Units whose text is blank are dropped before indexing.
func ByPages(pages []string, unitSizePages int) []domain.WorkUnit {
	if unitSizePages < 1 {
		unitSizePages = DefaultUnitSizePages
	}

	if len(pages) <= 1 {
		text := ""
		if len(pages) == 1 {
			text = pages[0]
		}
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []domain.WorkUnit{{Index: 0, Text: text, PageStart: 1, PageEnd: len(pages)}}
	}

	var units []domain.WorkUnit
	for start := 0; start < len(pages); start += unitSizePages {
		end := start + unitSizePages
		if end > len(pages) {
			end = len(pages)
		}

		text := strings.Join(pages[start:end], "\n\n")
		if strings.TrimSpace(text) == "" {
			continue
		}

		units = append(units, domain.WorkUnit{
			Index:     len(units),
			Text:      text,
			PageStart: start + 1,
			PageEnd:   end,
		})
	}

	return units
}

// ByBudget splits flat text on paragraph boundaries and accumulates
// paragraphs into units of at most maxChars characters. A single paragraph
// larger than the budget is hard-split into budget-sized pieces rather than
// emitted oversized; the trailing sub-budget piece rejoins the accumulation.
// No content is dropped and no unit ever exceeds maxChars. Produced units
// carry no page range.
func ByBudget(text string, maxChars int) []domain.WorkUnit {
	if maxChars < 1 {
		maxChars = DefaultMaxChars
	}

	var units []domain.WorkUnit
	appendUnit := func(s string) {
		if strings.TrimSpace(s) == "" {
			return
		}
		units = append(units, domain.WorkUnit{Index: len(units), Text: s})
	}

	var buf strings.Builder
	flush := func() {
		appendUnit(buf.String())
		buf.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		if para == "" {
			continue
		}

		// Oversized paragraph: flush the buffer, emit the full-budget
		// pieces, and re-buffer the sub-budget tail so following
		// paragraphs coalesce with it.
		if len(para) > maxChars {
			flush()
			pieces := hardSplit(para, maxChars)
			for _, piece := range pieces[:len(pieces)-1] {
				appendUnit(piece)
			}
			buf.WriteString(pieces[len(pieces)-1])
			continue
		}

		// +2 accounts for the paragraph separator restored on append.
		if buf.Len() > 0 && buf.Len()+2+len(para) > maxChars {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)
	}
	flush()

	return units
}

// hardSplit cuts s into consecutive pieces of at most maxChars bytes,
// avoiding cuts inside a UTF-8 sequence.
func hardSplit(s string, maxChars int) []string {
	var pieces []string
	for len(s) > maxChars {
		cut := maxChars
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxChars
		}
		pieces = append(pieces, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		pieces = append(pieces, s)
	}
	return pieces
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

package bot

import (
	"strings"
)

// Match is the outcome of matching text against the registry.
type Match struct {
	Entry Entry
	Start int // byte offsets into the trimmed text
	End   int
	Text  string // the trimmed text that was matched
}

// Matched returns the substring covered by the match.
func (m Match) Matched() string {
	return m.Text[m.Start:m.End]
}

// Exact reports whether the match spans the whole text.
func (m Match) Exact() bool {
	return m.Start == 0 && m.End == len(m.Text)
}

// Match finds the entry that should handle text. Every entry whose pattern
// occurs anywhere in text is a candidate. Among candidates a match covering
// the whole text wins, then the longest matched span, then the entry
// registered first. Zero-length matches never count.
func (r *Registry) Match(text string) (Match, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Match{}, false
	}

	var (
		best      *Entry
		bestStart int
		bestEnd   int
	)
	for _, e := range r.snapshot() {
		start, end, ok := longestSpan(e, text)
		if !ok {
			continue
		}
		if best == nil || outranks(start, end, e, bestStart, bestEnd, best, len(text)) {
			best, bestStart, bestEnd = e, start, end
		}
	}
	if best == nil {
		return Match{}, false
	}
	return Match{Entry: *best, Start: bestStart, End: bestEnd, Text: text}, true
}

// longestSpan returns the longest non-empty match of e in text, the
// earliest one on ties.
func longestSpan(e *Entry, text string) (start, end int, ok bool) {
	for _, loc := range e.re.FindAllStringIndex(text, -1) {
		if loc[1] <= loc[0] {
			continue
		}
		if !ok || loc[1]-loc[0] > end-start {
			start, end, ok = loc[0], loc[1], true
		}
	}
	return start, end, ok
}

func outranks(start, end int, e *Entry, bStart, bEnd int, b *Entry, n int) bool {
	exact := start == 0 && end == n
	bExact := bStart == 0 && bEnd == n
	if exact != bExact {
		return exact
	}
	if l, bl := end-start, bEnd-bStart; l != bl {
		return l > bl
	}
	return e.order < b.order
}

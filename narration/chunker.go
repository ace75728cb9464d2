package narration

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk splits text into segments of at most maxLen runes, preferring to
// cut after sentence-terminal punctuation, then clause punctuation, then
// at a space, and only hard-cutting when a single token exceeds the
// budget. Segments are trimmed; concatenating them (joined by single
// spaces) reproduces the text modulo whitespace normalization.
func Chunk(text string, maxLen int) []string {
	if maxLen < 1 {
		maxLen = 1
	}
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	remaining := []rune(strings.TrimSpace(text))
	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			chunks = append(chunks, string(remaining))
			break
		}
		window := remaining[:maxLen]
		cut := findCut(window)
		if cut <= 0 {
			cut = maxLen
		}
		segment := strings.TrimSpace(string(remaining[:cut]))
		if segment != "" {
			chunks = append(chunks, segment)
		}
		rest := strings.TrimSpace(string(remaining[cut:]))
		remaining = []rune(rest)
	}
	return chunks
}

// findCut returns the index after the best break point inside the window,
// or -1 when the window holds a single unbreakable token.
func findCut(window []rune) int {
	if i := lastBoundary(window, isSentenceEnd); i > 0 {
		return i
	}
	if i := lastBoundary(window, isClauseEnd); i > 0 {
		return i
	}
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == ' ' {
			return i
		}
	}
	return -1
}

// lastBoundary finds the last position where a rune accepted by the
// predicate, optionally followed by a closing quote, sits at the end of a
// word. The returned index points past the punctuation (and quote).
func lastBoundary(window []rune, pred func(rune) bool) int {
	for i := len(window) - 1; i >= 0; i-- {
		if !pred(window[i]) {
			continue
		}
		j := i + 1
		if j < len(window) && isClosingQuote(window[j]) {
			j++
		}
		if j == len(window) || unicode.IsSpace(window[j]) {
			return j
		}
	}
	return -1
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClauseEnd(r rune) bool {
	return r == ',' || r == ';' || r == ':'
}

func isClosingQuote(r rune) bool {
	switch r {
	case '"', '\'', '”', '’':
		return true
	}
	return false
}

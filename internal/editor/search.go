package editor

import (
	"strings"
	"unicode/utf8"
)

// FindNext returns the byte offset of the first occurrence of query at or
// after from. The search wraps to the start of text; wrapped reports that
// the match lies before from.
func FindNext(text, query string, from int) (offset int, wrapped, ok bool) {
	if query == "" {
		return 0, false, false
	}
	from = clamp(from, 0, len(text))

	if i := strings.Index(text[from:], query); i >= 0 {
		return from + i, false, true
	}
	if i := strings.Index(text, query); i >= 0 && i < from {
		return i, true, true
	}
	return 0, false, false
}

// ReplaceAll replaces every occurrence of query and returns the count
func ReplaceAll(text, query, replacement string) (string, int) {
	if query == "" {
		return text, 0
	}
	n := strings.Count(text, query)
	if n == 0 {
		return text, 0
	}
	return strings.ReplaceAll(text, query, replacement), n
}

// ReplaceNext replaces the occurrence FindNext would return and reports
// its offset.
func ReplaceNext(text, query, replacement string, from int) (string, int, bool) {
	i, _, ok := FindNext(text, query, from)
	if !ok {
		return text, 0, false
	}
	return text[:i] + replacement + text[i+len(query):], i, true
}

// Position converts a byte offset into a zero-based row and rune column
func Position(text string, offset int) (row, col int) {
	before := text[:clamp(offset, 0, len(text))]
	row = strings.Count(before, "\n")
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return row, utf8.RuneCountInString(before[lineStart:])
}

// Offset is the inverse of Position. Out of range rows and columns are
// clamped to the end of the text or line.
func Offset(text string, row, col int) int {
	start := 0
	for r := 0; r < row; r++ {
		i := strings.IndexByte(text[start:], '\n')
		if i < 0 {
			return len(text)
		}
		start += i + 1
	}

	line := text[start:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	for i := range line {
		if col <= 0 {
			return start + i
		}
		col--
	}
	return start + len(line)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

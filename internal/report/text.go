// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

// maxFieldRunes bounds a rendered field value so one free-text answer
// cannot swallow the layout.
const maxFieldRunes = 300

// truncate caps s at maxFieldRunes, appending an ellipsis when cut.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxFieldRunes {
		return s
	}
	return string(runes[:maxFieldRunes-1]) + "…"
}

// containsRTL reports whether s carries any right-to-left script.
func containsRTL(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) || unicode.Is(unicode.Hebrew, r) {
			return true
		}
	}
	return false
}

// shapeForDisplay prepares a value for the PDF text engine. With a Unicode
// font loaded, right-to-left runs are reordered into visual order via the
// bidi algorithm; without one, text passes through unchanged and renders
// left-to-right with the built-in Latin fonts.
func shapeForDisplay(s string, unicodeFont bool) string {
	if !unicodeFont || !containsRTL(s) {
		return s
	}
	return reorderBidi(s)
}

// reorderBidi converts logical order to visual order, reversing the runes
// of each right-to-left run.
func reorderBidi(s string) string {
	var p bidi.Paragraph
	p.SetString(s)
	ordering, err := p.Order()
	if err != nil {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		text := run.String()
		if run.Direction() == bidi.RightToLeft {
			text = reverseRunes(text)
		}
		b.WriteString(text)
	}
	return b.String()
}

func reverseRunes(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// Package metrics derives size features from text. Only counts leave this
// package, never the text.
package metrics

import (
	"unicode"
	"unicode/utf8"
)

// Features are size counts of one piece of text.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// Measure counts bytes, runes, whitespace-separated words and lines in s.
// Empty text has zero lines; otherwise lines is one plus the number of '\n'.
func Measure(s string) Features {
	f := Features{Bytes: len(s), Runes: utf8.RuneCountInString(s)}
	if s == "" {
		return f
	}
	f.Lines = 1
	inWord := false
	for _, r := range s {
		if r == '\n' {
			f.Lines++
		}
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			f.Words++
			inWord = true
		}
	}
	return f
}

// Fields returns f keyed the way telemetry events spell it.
func (f Features) Fields() map[string]any {
	return map[string]any{
		"bytes": f.Bytes,
		"runes": f.Runes,
		"words": f.Words,
		"lines": f.Lines,
	}
}

package metrics

import (
	"strings"
	"unicode/utf8"
)

// Features is the size of a piece of text. Only counts are kept, never the text.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures measures s. Words split on Unicode whitespace; an empty string has zero lines.
func CountFeatures(s string) Features {
	f := Features{Bytes: len(s), Runes: utf8.RuneCountInString(s), Words: len(strings.Fields(s))}
	if s != "" {
		f.Lines = 1 + strings.Count(s, "\n")
	}
	return f
}

// Add returns the field-wise sum of f and o.
func (f Features) Add(o Features) Features {
	return Features{
		Bytes: f.Bytes + o.Bytes,
		Runes: f.Runes + o.Runes,
		Words: f.Words + o.Words,
		Lines: f.Lines + o.Lines,
	}
}

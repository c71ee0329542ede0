package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer canonicalizes owner and item names so that differently cased
// spellings address the same rating.
type Normalizer func(string) string

// NewNormalizer returns TitleCase when titleCase is set, otherwise a
// normalizer that only trims surrounding whitespace.
func NewNormalizer(titleCase bool) Normalizer {
	if titleCase {
		return TitleCase
	}
	return strings.TrimSpace
}

// TitleCase trims s and converts it to English title case ("the mystic maze"
// becomes "The Mystic Maze").
func TitleCase(s string) string {
	// Casers keep state and must not be shared between goroutines.
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

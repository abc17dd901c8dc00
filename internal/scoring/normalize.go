package scoring

import (
	"strings"
	"unicode"
)

// Normalize prepares text for the similarity paths: lowercase, ASCII
// punctuation removed, whitespace collapsed.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			return -1
		}
		return r
	}, text)

	return strings.Join(strings.Fields(text), " ")
}

// CleanText flattens newlines and collapses whitespace without touching
// case or punctuation. Skill extraction runs on this form.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.Join(strings.Fields(text), " ")
}

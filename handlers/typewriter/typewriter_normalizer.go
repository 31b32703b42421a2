package typewriter

import "strings"

// CleanText removes every rune of chars from text. Markdown headings, emphasis and slashes from
// the assistant are never shown literally.
func CleanText(text, chars string) string {
	if chars == "" {
		return text
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return -1
		}
		return r
	}, text)
}

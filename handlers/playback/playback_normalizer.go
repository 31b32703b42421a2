package playback

import (
	"regexp"
	"strings"
)

// NormalizeText prepares assistant text for synthesis: markdown markers and emoji are dropped and
// whitespace is collapsed.
func NormalizeText(text string) string {
	text = markdownReplacer.Replace(text)
	text = emojiRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(spacesRegex.ReplaceAllString(text, " "))
}

var (
	markdownReplacer = strings.NewReplacer(
		"**", "", // bold
		"__", "", // underline
		"~~", "", // strikethrough
		"*", "",
		"`", "",
		"#", "",
	)
	emojiRegex  = regexp.MustCompile(`[\p{So}\p{Sk}\p{Cs}\x{FE0F}\x{200D}]`)
	spacesRegex = regexp.MustCompile(`\s+`)
)

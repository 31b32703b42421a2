package core

import "strings"

// Language is a response language offered to the user, identified by its display name.
type Language string

const (
	English Language = "English"
	Tamil   Language = "Tamil"
	Hindi   Language = "Hindi"
	Telugu  Language = "Telugu"
	Kannada Language = "Kannada"
)

// DefaultLanguage is used until the user picks another one.
const DefaultLanguage = English

const defaultLanguageTag = "en-US"

var languageTags = map[Language]string{
	English: "en-US",
	Tamil:   "ta-IN",
	Hindi:   "hi-IN",
	Telugu:  "te-IN",
	Kannada: "kn-IN",
}

// Languages lists the offered languages in display order.
func Languages() []Language {
	return []Language{English, Tamil, Hindi, Telugu, Kannada}
}

// Tag returns the IETF tag for the language; unknown names map to en-US.
func (l Language) Tag() string {
	return LanguageTag(string(l))
}

// Valid reports whether the language belongs to the offered set.
func (l Language) Valid() bool {
	_, ok := languageTags[l]
	return ok
}

// LanguageTag maps a display name to its IETF tag; unrecognized names default to en-US.
func LanguageTag(name string) string {
	if tag, ok := languageTags[Language(name)]; ok {
		return tag
	}
	return defaultLanguageTag
}

// ParseLanguage accepts a display name (case-insensitive) or an IETF tag.
func ParseLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	for lang, tag := range languageTags {
		if strings.EqualFold(string(lang), s) || strings.EqualFold(tag, s) {
			return lang, true
		}
	}
	return "", false
}

// LanguageCode returns the primary subtag of an IETF tag, e.g. "ta" for "ta-IN".
func LanguageCode(tag string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(tag), "-")
	if base == "" {
		return "en"
	}
	return strings.ToLower(base)
}

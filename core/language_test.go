package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageTag(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "English", want: "en-US"},
		{name: "Tamil", want: "ta-IN"},
		{name: "Hindi", want: "hi-IN"},
		{name: "Telugu", want: "te-IN"},
		{name: "Kannada", want: "kn-IN"},
		{name: "French", want: "en-US"},
		{name: "", want: "en-US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LanguageTag(tt.name))
		})
	}
}

func TestParseLanguage(t *testing.T) {
	lang, ok := ParseLanguage("tamil")
	assert.True(t, ok)
	assert.Equal(t, Tamil, lang)

	lang, ok = ParseLanguage("kn-IN")
	assert.True(t, ok)
	assert.Equal(t, Kannada, lang)

	_, ok = ParseLanguage("Klingon")
	assert.False(t, ok)
}

func TestIdentityInitial(t *testing.T) {
	var nilIdentity *Identity
	assert.Equal(t, "U", nilIdentity.Initial())
	assert.Equal(t, "U", (&Identity{}).Initial())
	assert.Equal(t, "A", (&Identity{DisplayName: "asha"}).Initial())
}

func TestLanguageCode(t *testing.T) {
	assert.Equal(t, "ta", LanguageCode("ta-IN"))
	assert.Equal(t, "en", LanguageCode("EN-us"))
	assert.Equal(t, "en", LanguageCode(""))
}

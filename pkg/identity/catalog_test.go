package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogOrder(t *testing.T) {
	want := []Identity{"chrome110", "edge101", "chrome107", "chrome104", "chrome100", "chrome101", "chrome99"}
	assert.Equal(t, want, Default().Identities())
	assert.Equal(t, len(want), Default().Len())
}

func TestCatalogWrapsIndex(t *testing.T) {
	c := Default()

	assert.Equal(t, Identity("chrome110"), c.At(0))
	assert.Equal(t, Identity("chrome110"), c.At(c.Len()))
	assert.Equal(t, Identity("chrome99"), c.At(-1))
	assert.Equal(t, 0, c.Next(c.Len()-1))
	assert.Equal(t, 1, c.Next(0))
}

func TestCatalogIndexOf(t *testing.T) {
	c := Default()

	i, err := c.IndexOf("chrome104")
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	_, err = c.IndexOf("netscape4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownIdentity))
}

func TestNewCatalogRejectsDuplicatesAndEmpty(t *testing.T) {
	_, err := NewCatalog()
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = NewCatalog(Profile{Identity: "a"}, Profile{Identity: "a"})
	assert.Error(t, err)
}

func TestProfileHeadersOrder(t *testing.T) {
	p, ok := Default().Profile("edge101")
	require.True(t, ok)

	headers := p.Headers("")
	require.NotEmpty(t, headers)
	assert.Equal(t, "sec-ch-ua", headers[0].Name)
	assert.Contains(t, headers[0].Value, "Microsoft Edge")

	var ua, lang string
	for _, h := range headers {
		switch h.Name {
		case "user-agent":
			ua = h.Value
		case "accept-language":
			lang = h.Value
		}
	}
	assert.Contains(t, ua, "Edg/101")
	assert.Equal(t, "en-US,en;q=0.9", lang)
}

func TestAcceptLanguage(t *testing.T) {
	tests := map[string]string{
		"de-DE": "de-DE,de;q=0.9",
		"en-US": "en-US,en;q=0.9",
		"pt-br": "pt-BR,pt;q=0.9",
		"fr":    "fr",
		"":      "",
		"!!":    "",
	}
	for locale, want := range tests {
		assert.Equal(t, want, AcceptLanguage(locale), "locale %q", locale)
	}

	profile, ok := Default().Profile(DefaultIdentity)
	require.True(t, ok)
	var got string
	for _, h := range profile.Headers(AcceptLanguage("de-DE")) {
		if h.Name == "accept-language" {
			got = h.Value
		}
	}
	assert.Equal(t, "de-DE,de;q=0.9", got)
}

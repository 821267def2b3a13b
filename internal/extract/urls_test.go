package extract

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalID(t *testing.T) {
	tests := map[string]string{
		"https://allegro.pl/kategoria/czesci-samochodowe-620":         "620",
		"https://allegro.pl/kategoria/czesci-samochodowe-620/":        "620",
		"https://allegro.pl/oferta/filtr-oleju-bosch-13579246?bi_s=1": "13579246",
		"https://allegro.pl/kategoria/bez-id":                         "",
		"https://allegro.pl/":                                         "",
		"://bad":                                                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NaturalID(in), in)
	}
}

func TestResolve(t *testing.T) {
	base, _ := url.Parse("https://allegro.pl/kategoria/a-1")
	assert.Equal(t, "https://allegro.pl/kategoria/b-2", Resolve(base, "/kategoria/b-2"))
	assert.Equal(t, "", Resolve(base, "#top"))
	assert.Equal(t, "", Resolve(base, "mailto:a@b.c"))
	assert.Equal(t, "", Resolve(base, "  "))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t,
		NormalizeURL("https://allegro.pl/kategoria/filtry-4030"),
		NormalizeURL("HTTPS://www.Allegro.pl/kategoria/filtry-4030/?x=1#frag"))
}

func TestUnwrapRedirect(t *testing.T) {
	wrapped := "https://allegro.pl/events/clicks?redirect=" + url.QueryEscape("https://allegro.pl/oferta/lampa-55")
	assert.Equal(t, "https://allegro.pl/oferta/lampa-55", UnwrapRedirect(wrapped))
	assert.Equal(t, "https://allegro.pl/oferta/lampa-55", UnwrapRedirect("https://allegro.pl/oferta/lampa-55"))
}

func TestStripTracking(t *testing.T) {
	got := StripTracking("https://allegro.pl/oferta/lampa-55?utm_source=x&bi_s=ads&reco_id=9&color=red#gallery")
	assert.Equal(t, "https://allegro.pl/oferta/lampa-55?color=red", got)
}

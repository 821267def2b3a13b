package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintHeaders_ClientHintsOnlyForChromium(t *testing.T) {
	for _, fp := range fingerprintPool {
		h := fp.Headers()
		assert.Equal(t, fp.UserAgent, h["User-Agent"])
		assert.NotEmpty(t, h["Accept-Language"])
		assert.Equal(t, "navigate", h["Sec-Fetch-Mode"])

		_, hasHints := h["Sec-CH-UA"]
		assert.Equal(t, fp.Family.Chromium(), hasHints, fp.UserAgent)
		if hasHints {
			assert.Contains(t, h["Sec-CH-UA"], fp.Version)
			assert.Equal(t, `"`+fp.Platform+`"`, h["Sec-CH-UA-Platform"])
		}
	}
}

func TestFingerprintFor(t *testing.T) {
	tests := []struct {
		ua       string
		family   Family
		version  string
		platform string
	}{
		{fingerprintPool[0].UserAgent, FamilyChrome, "126", "Windows"},
		{fingerprintPool[2].UserAgent, FamilyEdge, "126", "Windows"},
		{fingerprintPool[4].UserAgent, FamilyFirefox, "126", "Linux"},
		{fingerprintPool[5].UserAgent, FamilySafari, "17", "macOS"},
	}
	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			fp := FingerprintFor(tt.ua)
			assert.Equal(t, tt.family, fp.Family)
			assert.Equal(t, tt.version, fp.Version)
			assert.Equal(t, tt.platform, fp.Platform)
		})
	}
}

func TestRandomFingerprint_FromPool(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Contains(t, fingerprintPool, RandomFingerprint())
	}
}

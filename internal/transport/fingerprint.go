package transport

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Family string

const (
	FamilyChrome  Family = "chrome"
	FamilyEdge    Family = "edge"
	FamilyFirefox Family = "firefox"
	FamilySafari  Family = "safari"
)

// Chromium reports whether the family sends client-hint headers.
func (f Family) Chromium() bool {
	return f == FamilyChrome || f == FamilyEdge
}

// Fingerprint is a browser identity presented to the site.
type Fingerprint struct {
	UserAgent string
	Family    Family
	Version   string // Major version, used by client hints
	Platform  string // Sec-CH-UA-Platform value
}

var fingerprintPool = []Fingerprint{
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		Family:    FamilyChrome, Version: "126", Platform: "Windows",
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		Family:    FamilyChrome, Version: "125", Platform: "macOS",
	},
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0",
		Family:    FamilyEdge, Version: "126", Platform: "Windows",
	},
	{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
		Family:    FamilyFirefox, Version: "127", Platform: "Windows",
	},
	{
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0",
		Family:    FamilyFirefox, Version: "126", Platform: "Linux",
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		Family:    FamilySafari, Version: "17", Platform: "macOS",
	},
}

// RandomFingerprint picks a fingerprint from the desktop browser pool.
func RandomFingerprint() Fingerprint {
	return fingerprintPool[rand.IntN(len(fingerprintPool))]
}

// FingerprintFor derives a fingerprint from a caller supplied User-Agent.
func FingerprintFor(userAgent string) Fingerprint {
	f := Fingerprint{UserAgent: userAgent, Family: FamilyChrome, Platform: platformOf(userAgent)}
	switch {
	case strings.Contains(userAgent, "Edg/"):
		f.Family = FamilyEdge
		f.Version = majorAfter(userAgent, "Edg/")
	case strings.Contains(userAgent, "Firefox/"):
		f.Family = FamilyFirefox
		f.Version = majorAfter(userAgent, "Firefox/")
	case strings.Contains(userAgent, "Chrome/"):
		f.Version = majorAfter(userAgent, "Chrome/")
	case strings.Contains(userAgent, "Safari/"):
		f.Family = FamilySafari
		f.Version = majorAfter(userAgent, "Version/")
	}
	return f
}

// Headers returns the request headers consistent with the fingerprint.
// Firefox and Safari never send Sec-CH-UA client hints.
func (f Fingerprint) Headers() map[string]string {
	h := map[string]string{
		"User-Agent":                f.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
	}

	switch f.Family {
	case FamilyFirefox:
		h["Accept-Language"] = "pl,en-US;q=0.7,en;q=0.3"
	case FamilySafari:
		h["Accept-Language"] = "pl-PL,pl;q=0.9"
	default:
		h["Accept-Language"] = "pl-PL,pl;q=0.9,en-US;q=0.8,en;q=0.7"
	}

	if f.Family.Chromium() {
		brand := "Google Chrome"
		if f.Family == FamilyEdge {
			brand = "Microsoft Edge"
		}
		h["Sec-CH-UA"] = fmt.Sprintf(`"Not/A)Brand";v="8", "Chromium";v="%s", "%s";v="%s"`, f.Version, brand, f.Version)
		h["Sec-CH-UA-Mobile"] = "?0"
		h["Sec-CH-UA-Platform"] = fmt.Sprintf("%q", f.Platform)
	}
	return h
}

func platformOf(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac OS X"):
		return "macOS"
	default:
		return "Linux"
	}
}

func majorAfter(ua, marker string) string {
	i := strings.Index(ua, marker)
	if i < 0 {
		return ""
	}
	rest := ua[i+len(marker):]
	if j := strings.IndexAny(rest, ". "); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

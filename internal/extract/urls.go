package extract

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	categoryPathMarker = "/kategoria/"
	offerPathMarker    = "/oferta/"
)

var trailingIDRegex = regexp.MustCompile(`(?:^|-)(\d+)$`)

// NaturalID returns the site ID encoded at the end of a category or offer URL,
// e.g. "620" for /kategoria/czesci-samochodowe-620.
func NaturalID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]
	if m := trailingIDRegex.FindStringSubmatch(segment); len(m) > 1 {
		return m[1]
	}
	return ""
}

// Resolve makes href absolute against base. Non-http results yield "".
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// NormalizeURL is the dedup key for catalog links: scheme and host lower-cased,
// "www." dropped, query and fragment removed, no trailing slash.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.Path, "/")
	return strings.ToLower(u.Scheme) + "://" + host + path
}

var redirectParams = []string{"redirect", "url", "u", "target", "dest"}

// UnwrapRedirect returns the destination of a click-tracking wrapper URL, or
// the URL unchanged when it is not a wrapper.
func UnwrapRedirect(rawURL string) string {
	for i := 0; i < 3; i++ {
		u, err := url.Parse(rawURL)
		if err != nil {
			return rawURL
		}
		q := u.Query()
		next := ""
		for _, p := range redirectParams {
			if v := q.Get(p); strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
				next = v
				break
			}
		}
		if next == "" {
			return rawURL
		}
		rawURL = next
	}
	return rawURL
}

var trackingParams = map[string]bool{
	"reco_id":  true,
	"sid":      true,
	"snapshot": true,
	"fbclid":   true,
	"gclid":    true,
	"dclid":    true,
	"msclkid":  true,
	"_ga":      true,
	"ref":      true,
}

var trackingPrefixes = []string{"utm_", "bi_", "reco_"}

// StripTracking removes analytics parameters and the fragment.
func StripTracking(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	q := u.Query()
	for key := range q {
		if isTracking(key) {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isTracking(key string) bool {
	k := strings.ToLower(key)
	if trackingParams[k] {
		return true
	}
	for _, p := range trackingPrefixes {
		if strings.HasPrefix(k, p) {
			return true
		}
	}
	return false
}

func isCategoryURL(u *url.URL) bool {
	return strings.Contains(u.Path, categoryPathMarker)
}

func isOfferURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, offerPathMarker) && NaturalID(rawURL) != ""
}

func sameSite(a, b *url.URL) bool {
	return strings.TrimPrefix(strings.ToLower(a.Hostname()), "www.") ==
		strings.TrimPrefix(strings.ToLower(b.Hostname()), "www.")
}

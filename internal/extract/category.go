package extract

import (
	"net/url"
	"regexp"
	"strings"

	"autoriven/scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateTexts are navigation labels that point at catalog URLs but are
// not child categories. Compared lower-case.
var boilerplateTexts = map[string]bool{
	"wszystkie kategorie": true,
	"kategorie":           true,
	"pokaż więcej":        true,
	"pokaż mniej":         true,
	"zobacz wszystkie":    true,
	"zobacz więcej":       true,
	"więcej":              true,
	"mniej":               true,
	"strona główna":       true,
	"wróć":                true,
	"allegro":             true,
	"show more":           true,
	"show less":           true,
	"see all":             true,
	"all categories":      true,
	"home":                true,
	"back":                true,
}

var countSuffixRegex = regexp.MustCompile(`\s*\(\s*(\d[\d\s\x{00a0}.]*)\s*\)\s*$`)

type rawLink struct {
	href string
	text string
}

// categoryLinkSelectors are ordered from structural attributes to generic
// anchor fallbacks.
var categoryLinkSelectors = []string{
	`a[data-role="category-link"]`,
	`[data-role="categories"] a[href], [data-box-name="Categories"] a[href], nav[data-role="category-navigation"] a[href]`,
	`ul[data-role="subcategories"] a[href], [data-analytics-category-id] a[href]`,
	`a[href*="/kategoria/"]`,
}

// CategoryLinks returns the child category links of the page at pageURL.
// currentID is the natural ID of that page; links back to it are dropped.
func CategoryLinks(doc *goquery.Document, pageURL, currentID string) []domain.CategoryLink {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	chain := make([]strategy[[]domain.CategoryLink], 0, len(categoryLinkSelectors))
	for _, sel := range categoryLinkSelectors {
		chain = append(chain, strategy[[]domain.CategoryLink]{
			selector: sel,
			extract: func(s *goquery.Selection) ([]domain.CategoryLink, bool) {
				links := filterCategoryLinks(collectLinks(s), base, currentID)
				return links, len(links) > 0
			},
		})
	}

	links, _ := firstMatch(doc.Selection, chain)
	return links
}

func collectLinks(sel *goquery.Selection) []rawLink {
	var out []rawLink
	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		text := collapse(a.Text())
		if text == "" {
			text = strings.TrimSpace(a.AttrOr("title", ""))
		}
		out = append(out, rawLink{href: href, text: text})
	})
	return out
}

func filterCategoryLinks(raw []rawLink, base *url.URL, currentID string) []domain.CategoryLink {
	seenURL := make(map[string]bool)
	seenID := make(map[string]bool)
	out := make([]domain.CategoryLink, 0, len(raw))

	for _, l := range raw {
		abs := Resolve(base, l.href)
		if abs == "" {
			continue
		}
		u, err := url.Parse(abs)
		if err != nil || !sameSite(u, base) || !isCategoryURL(u) {
			continue
		}

		name, hint := splitCountSuffix(l.text)
		if name == "" || boilerplateTexts[strings.ToLower(name)] {
			continue
		}

		id := NaturalID(abs)
		if id == "" || id == currentID {
			continue
		}

		key := NormalizeURL(abs)
		if seenURL[key] || seenID[id] {
			continue
		}
		seenURL[key] = true
		seenID[id] = true

		out = append(out, domain.CategoryLink{
			URL:       StripTracking(abs),
			Text:      name,
			NaturalID: id,
			CountHint: hint,
		})
	}
	return out
}

// splitCountSuffix separates "Filtry (1 234)" into "Filtry" and 1234.
func splitCountSuffix(text string) (string, int) {
	m := countSuffixRegex.FindStringSubmatchIndex(text)
	if m == nil {
		return text, 0
	}
	return strings.TrimSpace(text[:m[0]]), parseCount(text[m[2]:m[3]])
}

var categoryNameChain = []strategy[string]{
	textOf(`h1`),
	textOf(`[data-role="breadcrumbs"] li:last-child, nav[aria-label="breadcrumbs"] li:last-child`),
	withoutSiteSuffix(attrOf(`meta[property="og:title"]`, "content")),
	withoutSiteSuffix(textOf(`title`)),
}

// withoutSiteSuffix drops the trailing site name from page titles such as
// "Części samochodowe - Allegro".
func withoutSiteSuffix(s strategy[string]) strategy[string] {
	extract := s.extract
	s.extract = func(sel *goquery.Selection) (string, bool) {
		v, ok := extract(sel)
		if i := strings.LastIndex(v, " - "); i > 0 {
			v = strings.TrimSpace(v[:i])
		}
		return v, ok && v != ""
	}
	return s
}

// CategoryName returns the display name of a category page.
func CategoryName(doc *goquery.Document) string {
	name, _ := firstMatch(doc.Selection, categoryNameChain)
	name, _ = splitCountSuffix(name)
	return strings.TrimSpace(name)
}

package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

var listingContainerSelectors = []string{
	`[data-role="listing"]`,
	`[data-box-name="items container"]`,
	`#search-results`,
	`[data-testid="listing"]`,
}

const listingEntrySelector = `article, [data-role="offer"]`

// ProductLinks returns canonical offer URLs from the listing container of a
// category page, in listing order.
func ProductLinks(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var container *goquery.Selection
	for _, sel := range listingContainerSelectors {
		if c := doc.Find(sel); c.Length() > 0 {
			container = c.First()
			break
		}
	}
	if container == nil {
		return nil
	}

	chain := offerURLChain(base)
	seen := make(map[string]bool)
	var out []string
	container.Find(listingEntrySelector).Each(func(_ int, entry *goquery.Selection) {
		link, ok := firstMatch(entry, chain)
		if !ok || seen[link] {
			return
		}
		seen[link] = true
		out = append(out, link)
	})
	return out
}

// offerURLChain resolves one listing entry to its offer URL: explicit offer
// role, then the title link (unwrapping click redirects), then any offer link.
func offerURLChain(base *url.URL) []strategy[string] {
	offerFrom := func(sel *goquery.Selection) (string, bool) {
		var out string
		sel.EachWithBreak(func(_ int, a *goquery.Selection) bool {
			abs := Resolve(base, a.AttrOr("href", ""))
			if abs == "" {
				return true
			}
			abs = UnwrapRedirect(abs)
			if !isOfferURL(abs) {
				return true
			}
			out = StripTracking(abs)
			return false
		})
		return out, out != ""
	}

	return []strategy[string]{
		{selector: `a[data-role="offer-link"], a[data-analytics-click-label="offerLink"]`, extract: offerFrom},
		{selector: `h2 a[href], h3 a[href]`, extract: offerFrom},
		{selector: `a[href*="/oferta/"]`, extract: offerFrom},
	}
}

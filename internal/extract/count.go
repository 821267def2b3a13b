package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// countOf parses the first positive number found in the matched nodes, read
// from attr when set, else from their text.
func countOf(selector, attr string) strategy[int] {
	return strategy[int]{
		selector: selector,
		extract: func(sel *goquery.Selection) (int, bool) {
			n := 0
			sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
				v := s.Text()
				if attr != "" {
					v = s.AttrOr(attr, "")
				}
				n = parseCount(v)
				return n == 0
			})
			return n, n > 0
		},
	}
}

var offerCountChain = []strategy[int]{
	countOf(`[data-role="counter-value"]`, ""),
	countOf(`[data-role="listing-count"]`, ""),
	countOf(`[data-box-name="Listing title"] [data-role="counter"]`, ""),
	countOf(`meta[name="offer-count"]`, "content"),
	countOf(`.listing-count, .results-count`, ""),
}

// OfferCount returns the listing's "results found" number, or 0 when no
// counter container matches.
func OfferCount(doc *goquery.Document) int {
	n, _ := firstMatch(doc.Selection, offerCountChain)
	return n
}

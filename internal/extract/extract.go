// Package extract turns catalog HTML into typed fragments. Every function is
// pure: missing markup yields empty results, never an error.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strategy is one way of locating a field. The selector acts as the
// predicate; extract turns the matched nodes into a value and reports
// whether it found anything usable.
type strategy[T any] struct {
	selector string
	extract  func(sel *goquery.Selection) (T, bool)
}

// firstMatch evaluates the chain in order and returns the first usable value.
func firstMatch[T any](root *goquery.Selection, chain []strategy[T]) (T, bool) {
	for _, s := range chain {
		matched := root.Find(s.selector)
		if matched.Length() == 0 {
			continue
		}
		if v, ok := s.extract(matched); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// attrOf reads attr from the first matching node that has a non-blank value.
func attrOf(selector, attr string) strategy[string] {
	return strategy[string]{
		selector: selector,
		extract: func(sel *goquery.Selection) (string, bool) {
			var out string
			sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
					out = strings.TrimSpace(v)
					return false
				}
				return true
			})
			return out, out != ""
		},
	}
}

// textOf reads the collapsed text of the first matching node with text.
func textOf(selector string) strategy[string] {
	return strategy[string]{
		selector: selector,
		extract: func(sel *goquery.Selection) (string, bool) {
			var out string
			sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
				out = collapse(s.Text())
				return out == ""
			})
			return out, out != ""
		},
	}
}

// Parse builds a document from raw HTML.
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

var spaceRegex = regexp.MustCompile(`[\s\x{00a0}]+`)

func collapse(s string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

var digitsRegex = regexp.MustCompile(`\d[\d\s\x{00a0}\x{202f}.]*`)

// parseCount reads the first integer in s, ignoring thousands separators.
func parseCount(s string) int {
	m := digitsRegex.FindString(s)
	if m == "" {
		return 0
	}
	n := 0
	for _, r := range m {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			if n > 1<<40 {
				return 0
			}
		}
	}
	return n
}

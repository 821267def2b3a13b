package extract

import (
	"strings"

	"autoriven/scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

var specificationsChain = []strategy[[]domain.Specification]{
	{selector: `[data-role="parameters"] tr, [data-box-name="Parameters"] tr, table[data-role="specs"] tr`, extract: tableRows},
	{selector: `[data-role="parameters"] dl, [data-box-name="Parameters"] dl, dl`, extract: definitionList},
	{selector: `[data-role="parameters"] li, [data-box-name="Parameters"] li`, extract: keyValueItems},
}

// Specifications returns the offer's parameter rows in page order. A key
// keeps its first value.
func Specifications(doc *goquery.Document) []domain.Specification {
	specs, _ := firstMatch(doc.Selection, specificationsChain)
	return specs
}

type specCollector struct {
	seen map[string]bool
	out  []domain.Specification
}

func (c *specCollector) add(key, value string) {
	key = strings.TrimSuffix(collapse(key), ":")
	key = strings.TrimSpace(key)
	value = collapse(value)
	if key == "" || value == "" || c.seen[key] {
		return
	}
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	c.seen[key] = true
	c.out = append(c.out, domain.Specification{Key: key, Value: value})
}

func tableRows(sel *goquery.Selection) ([]domain.Specification, bool) {
	var c specCollector
	sel.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		c.add(cells.Eq(0).Text(), cells.Eq(1).Text())
	})
	return c.out, len(c.out) > 0
}

func definitionList(sel *goquery.Selection) ([]domain.Specification, bool) {
	var c specCollector
	sel.Each(func(_ int, dl *goquery.Selection) {
		dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			c.add(dt.Text(), dt.NextFiltered("dd").Text())
		})
	})
	return c.out, len(c.out) > 0
}

func keyValueItems(sel *goquery.Selection) ([]domain.Specification, bool) {
	var c specCollector
	sel.Each(func(_ int, li *goquery.Selection) {
		key, value, ok := strings.Cut(collapse(li.Text()), ":")
		if ok {
			c.add(key, value)
		}
	})
	return c.out, len(c.out) > 0
}

// specValue returns the first value whose key matches one of keys,
// case-insensitively.
func specValue(specs []domain.Specification, keys []string) (string, bool) {
	for _, k := range keys {
		for _, s := range specs {
			if strings.EqualFold(s.Key, k) {
				return s.Value, true
			}
		}
	}
	return "", false
}

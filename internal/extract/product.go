package extract

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"autoriven/scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

var (
	productNameChain = []strategy[string]{
		attrOf(`meta[property="og:title"]`, "content"),
		attrOf(`meta[itemprop="name"]`, "content"),
		textOf(`h1`),
	}

	productIDChain = []strategy[string]{
		attrOf(`meta[itemprop="sku"]`, "content"),
		attrOf(`meta[itemprop="productID"]`, "content"),
		attrOf(`[data-offer-id]`, "data-offer-id"),
	}

	priceChain = []strategy[string]{
		attrOf(`meta[itemprop="price"]`, "content"),
		attrOf(`meta[property="product:price:amount"]`, "content"),
		textOf(`[data-role="price"]`),
	}

	currencyChain = []strategy[string]{
		attrOf(`meta[itemprop="priceCurrency"]`, "content"),
		attrOf(`meta[property="product:price:currency"]`, "content"),
	}

	conditionChain = []strategy[string]{
		attrOf(`meta[itemprop="itemCondition"]`, "content"),
		attrOf(`link[itemprop="itemCondition"]`, "href"),
	}

	gtinChain = []strategy[string]{
		attrOf(`meta[itemprop="gtin13"]`, "content"),
		attrOf(`meta[itemprop="gtin"]`, "content"),
		attrOf(`meta[itemprop="gtin14"]`, "content"),
		attrOf(`meta[itemprop="gtin12"]`, "content"),
		attrOf(`meta[itemprop="gtin8"]`, "content"),
	}

	brandChain = []strategy[string]{
		attrOf(`meta[itemprop="brand"]`, "content"),
		attrOf(`[itemprop="brand"] meta[itemprop="name"]`, "content"),
		textOf(`[itemprop="brand"] [itemprop="name"]`),
	}

	mpnChain = []strategy[string]{
		attrOf(`meta[itemprop="mpn"]`, "content"),
	}

	descriptionSelectors = []string{
		`[data-role="description"]`,
		`[itemprop="description"]:not(meta)`,
		`[data-box-name="Description"]`,
		`#description`,
	}

	sellerBlockSelectors = []string{
		`[data-role="seller-info"]`,
		`[data-box-name="Seller"]`,
		`[itemprop="seller"]`,
	}

	sellerNameChain = []strategy[string]{
		textOf(`[data-role="seller-name"]`),
		textOf(`a[href*="/uzytkownik/"]`),
		attrOf(`meta[itemprop="name"]`, "content"),
		textOf(`[itemprop="name"]`),
	}
)

// Parameter labels used as fallbacks for structured fields.
var (
	conditionKeys    = []string{"Stan", "Condition"}
	eanKeys          = []string{"EAN (GTIN)", "EAN", "GTIN", "Kod EAN"}
	brandKeys        = []string{"Marka", "Brand"}
	manufacturerKeys = []string{"Producent części", "Producent", "Manufacturer"}
	partNumberKeys   = []string{"Numer katalogowy części", "Numer katalogowy producenta", "Numer katalogowy", "Numer części", "Part number"}
)

// ProductDetails extracts a product record from one offer page. Surrogate
// ID, category and translated fields are left for the caller.
func ProductDetails(doc *goquery.Document, pageURL string) domain.Product {
	root := doc.Selection
	p := domain.Product{
		SourceURL: pageURL,
		NaturalID: NaturalID(pageURL),
		Condition: domain.ConditionUnknown,
	}
	if p.NaturalID == "" {
		p.NaturalID, _ = firstMatch(root, productIDChain)
	}

	p.Specifications = Specifications(doc)

	p.Name, _ = firstMatch(root, productNameChain)
	if raw, ok := firstMatch(root, priceChain); ok {
		p.Price = ParsePrice(raw)
	}
	p.Currency, _ = firstMatch(root, currencyChain)

	if raw, ok := firstMatch(root, conditionChain); ok {
		p.Condition = domain.ParseCondition(raw)
	}
	if p.Condition == domain.ConditionUnknown {
		if raw, ok := specValue(p.Specifications, conditionKeys); ok {
			p.Condition = domain.ParseCondition(raw)
		}
	}

	p.GalleryImages = GalleryImages(doc, pageURL)
	p.Images = p.GalleryImages
	if len(p.Images) > domain.MaxCompatibilityImages {
		p.Images = p.Images[:domain.MaxCompatibilityImages]
	}
	p.Images = append([]string(nil), p.Images...)

	p.DescriptionHTML, p.DescriptionText = Description(doc)
	p.EAN = domain.StringPtr(ean(doc, p.Specifications))

	brand, _ := firstMatch(root, brandChain)
	if brand == "" {
		brand, _ = specValue(p.Specifications, brandKeys)
	}
	p.Brand = domain.StringPtr(brand)

	manufacturer, _ := specValue(p.Specifications, manufacturerKeys)
	p.Manufacturer = domain.StringPtr(manufacturer)

	mpn, _ := firstMatch(root, mpnChain)
	if mpn == "" {
		mpn, _ = specValue(p.Specifications, partNumberKeys)
	}
	p.PartNumber = domain.StringPtr(mpn)

	p.SellerName, p.SellerRating = Seller(doc)
	return p
}

var imageSizeRegex = regexp.MustCompile(`/s\d+/`)

// NormalizeImageURL rewrites a sized image variant to the original resolution.
func NormalizeImageURL(raw string) string {
	return imageSizeRegex.ReplaceAllString(raw, "/original/")
}

var galleryChain = func(base *url.URL) []strategy[[]string] {
	collect := func(sel *goquery.Selection) ([]string, bool) {
		imgs := imageURLs(sel, base)
		return imgs, len(imgs) > 0
	}
	return []strategy[[]string]{
		{selector: `[data-role="gallery"] img, [data-box-name="showoffer.gallery"] img`, extract: collect},
		{selector: `img[data-role="image"], [data-role="image"] img, img[itemprop="image"], meta[itemprop="image"]`, extract: collect},
	}
}

// GalleryImages returns the offer's images at original resolution, deduped,
// in page order.
func GalleryImages(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	imgs, _ := firstMatch(doc.Selection, galleryChain(base))
	return imgs
}

func imageURLs(sel *goquery.Selection, base *url.URL) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(raw string) {
		abs := Resolve(base, raw)
		if abs == "" {
			return
		}
		abs = NormalizeImageURL(abs)
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	}

	sel.Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "content"} {
			if v, ok := s.Attr(attr); ok {
				add(v)
			}
		}
		for _, attr := range []string{"srcset", "data-srcset"} {
			if v, ok := s.Attr(attr); ok {
				for _, candidate := range strings.Split(v, ",") {
					if fields := strings.Fields(candidate); len(fields) > 0 {
						add(fields[0])
					}
				}
			}
		}
	})
	return out
}

// Description returns the description container's inner HTML and its text.
func Description(doc *goquery.Document) (string, string) {
	for _, sel := range descriptionSelectors {
		c := doc.Find(sel).First()
		if c.Length() == 0 {
			continue
		}
		html, err := c.Html()
		if err != nil {
			html = ""
		}
		text := collapse(c.Text())
		if text == "" && strings.TrimSpace(html) == "" {
			continue
		}
		return strings.TrimSpace(html), text
	}
	return "", ""
}

var (
	gtinRegex    = regexp.MustCompile(`^\d{8}$|^\d{12,14}$`)
	altGTINRegex = regexp.MustCompile(`(?:^|\D)(\d{13}|\d{8}|\d{12}|\d{14})(?:\D|$)`)
)

func ean(doc *goquery.Document, specs []domain.Specification) string {
	if v, ok := firstMatch(doc.Selection, gtinChain); ok && gtinRegex.MatchString(v) {
		return v
	}
	if v, ok := specValue(specs, eanKeys); ok && gtinRegex.MatchString(strings.ReplaceAll(v, " ", "")) {
		return strings.ReplaceAll(v, " ", "")
	}
	var out string
	doc.Find("img[alt]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if m := altGTINRegex.FindStringSubmatch(img.AttrOr("alt", "")); len(m) > 1 {
			out = m[1]
			return false
		}
		return true
	})
	return out
}

var percentRegex = regexp.MustCompile(`(\d{1,3}(?:[.,]\d+)?)\s*%`)

// Seller returns the seller name and a 0-5 rating rescaled from the seller's
// satisfaction percentage. Either may be nil.
func Seller(doc *goquery.Document) (*string, *float64) {
	var block *goquery.Selection
	for _, sel := range sellerBlockSelectors {
		if b := doc.Find(sel); b.Length() > 0 {
			block = b.First()
			break
		}
	}
	if block == nil {
		return nil, nil
	}

	name, _ := firstMatch(block, sellerNameChain)

	var rating *float64
	if m := percentRegex.FindStringSubmatch(block.Text()); len(m) > 1 {
		if pct, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64); err == nil {
			r := RatingFromPercent(pct)
			rating = &r
		}
	}
	return domain.StringPtr(name), rating
}

// RatingFromPercent maps a 0-100 satisfaction score onto a 0-5 scale.
func RatingFromPercent(pct float64) float64 {
	r := pct / 100 * 5
	r = math.Max(0, math.Min(5, r))
	return math.Round(r*100) / 100
}

// ParsePrice reads a decimal written with either "." or "," as the decimal
// separator and spaces, dots or commas as thousands separators. Unparsable or
// negative values give 0.
func ParsePrice(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case (r == '-' || r == '\u2212') && b.Len() == 0:
			return 0
		case (r >= '0' && r <= '9') || r == '.' || r == ',':
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

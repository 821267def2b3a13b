package domain

// Category is one node of the site's category tree.
type Category struct {
	NaturalID       string  `json:"natural_id"`        // Site-assigned ID, e.g. "620"
	SurrogateID     int64   `json:"surrogate_id"`      // Locally assigned, stable once stored
	Name            string  `json:"name"`              // Source-language display name
	TranslatedName  string  `json:"translated_name"`   // Falls back to Name
	Slug            string  `json:"slug"`              // URL-safe form of Name
	TranslatedSlug  string  `json:"translated_slug"`   // URL-safe form of TranslatedName
	SourceURL       string  `json:"source_url"`        // Absolute URL used to re-fetch the node
	Depth           int     `json:"depth"`             // 0 is the synthetic root
	ParentNaturalID *string `json:"parent_natural_id"` // nil for the crawl root
	HasOffers       bool    `json:"has_offers"`
	OfferCountHint  int     `json:"offer_count_hint"` // 0 if unknown
}

// Leaves returns the categories that list offers and are nobody's parent,
// in input order.
func Leaves(categories []Category) []Category {
	parents := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.ParentNaturalID != nil {
			parents[*c.ParentNaturalID] = true
		}
	}
	var out []Category
	for _, c := range categories {
		if c.HasOffers && !parents[c.NaturalID] {
			out = append(out, c)
		}
	}
	return out
}

// CategoryLink is a child link discovered on a category page.
type CategoryLink struct {
	URL       string `json:"url"`
	Text      string `json:"text"`
	NaturalID string `json:"natural_id"`
	CountHint int    `json:"count_hint,omitempty"` // Offer count shown next to the link, if any
}

// CategoryPage is the parsed content of one category page.
type CategoryPage struct {
	NaturalID    string         `json:"natural_id"`
	Name         string         `json:"name"`
	URL          string         `json:"url"`
	OfferCount   int            `json:"offer_count"`
	ProductCount int            `json:"product_count"` // Offer links visible on the page itself
	Links        []CategoryLink `json:"links"`
}

// ListingPage is one page of a category's offer listing.
type ListingPage struct {
	CategoryNaturalID string   `json:"category_natural_id"`
	Page              int      `json:"page"`
	ProductURLs       []string `json:"product_urls"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

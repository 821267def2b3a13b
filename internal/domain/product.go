package domain

// MaxCompatibilityImages caps Product.Images.
const MaxCompatibilityImages = 3

// Specification is one key/value row of an offer's parameter table.
type Specification struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Product is a normalized offer record.
type Product struct {
	NaturalID         string          `json:"natural_id"`
	SurrogateID       int64           `json:"surrogate_id"`
	Name              string          `json:"name"`
	TranslatedName    string          `json:"translated_name"`
	Slug              string          `json:"slug"`
	TranslatedSlug    string          `json:"translated_slug"`
	SourceURL         string          `json:"source_url"`
	TranslatedURL     string          `json:"translated_url"`
	Price             float64         `json:"price"`
	Currency          string          `json:"currency"`
	Condition         Condition       `json:"condition"`
	Images            []string        `json:"images"`
	GalleryImages     []string        `json:"gallery_images"`
	DescriptionText   string          `json:"description_text"`
	DescriptionHTML   string          `json:"description_html"`
	EAN               *string         `json:"ean"`
	Brand             *string         `json:"brand"`
	Manufacturer      *string         `json:"manufacturer"`
	PartNumber        *string         `json:"part_number"`
	SellerName        *string         `json:"seller_name"`
	SellerRating      *float64        `json:"seller_rating"`
	Specifications    []Specification `json:"specifications"`
	CategoryNaturalID string          `json:"category_natural_id"`
}

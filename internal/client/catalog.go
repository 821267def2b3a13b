package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/extract"
	"autoriven/scraper/internal/transport"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidURL = errors.New("invalid catalog URL")

// Identity selects the cookie session and proxy a request goes out with.
// The zero value lets the transport pick both.
type Identity struct {
	SessionKey string
	Proxy      string
}

type CatalogClient interface {
	GetCategoryPage(ctx context.Context, categoryURL string, id Identity) (*domain.CategoryPage, error)
	GetListingPage(ctx context.Context, category domain.Category, page int, id Identity) (*domain.ListingPage, error)
	GetProduct(ctx context.Context, productURL string, id Identity) (*domain.Product, error)
}

type catalogClient struct {
	fetcher   transport.Fetcher
	pageParam string
}

// NewCatalogClient composes the transport with the page extractors.
// pageParam is the listing query parameter carrying the page number.
func NewCatalogClient(fetcher transport.Fetcher, pageParam string) CatalogClient {
	if pageParam == "" {
		pageParam = "p"
	}
	return &catalogClient{
		fetcher:   fetcher,
		pageParam: pageParam,
	}
}

func (c *catalogClient) GetCategoryPage(ctx context.Context, categoryURL string, id Identity) (*domain.CategoryPage, error) {
	naturalID := extract.NaturalID(categoryURL)
	if naturalID == "" {
		return nil, fmt.Errorf("%w: no category id in %s", ErrInvalidURL, categoryURL)
	}

	doc, err := c.fetchDocument(ctx, categoryURL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category %s: %w", naturalID, err)
	}

	page := &domain.CategoryPage{
		NaturalID:    naturalID,
		Name:         extract.CategoryName(doc),
		URL:          categoryURL,
		OfferCount:   extract.OfferCount(doc),
		ProductCount: len(extract.ProductLinks(doc, categoryURL)),
		Links:        extract.CategoryLinks(doc, categoryURL, naturalID),
	}

	log.Debugf("Successfully fetched and parsed category %s with %d links", naturalID, len(page.Links))
	return page, nil
}

func (c *catalogClient) GetListingPage(ctx context.Context, category domain.Category, page int, id Identity) (*domain.ListingPage, error) {
	pageURL, err := c.listingURL(category.SourceURL, page)
	if err != nil {
		return nil, err
	}

	doc, err := c.fetchDocument(ctx, pageURL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page %d of category %s: %w", page, category.NaturalID, err)
	}

	listing := &domain.ListingPage{
		CategoryNaturalID: category.NaturalID,
		Page:              page,
		ProductURLs:       extract.ProductLinks(doc, pageURL),
	}

	log.Debugf("Successfully fetched listing page %d of category %s with %d offers", page, category.NaturalID, len(listing.ProductURLs))
	return listing, nil
}

func (c *catalogClient) GetProduct(ctx context.Context, productURL string, id Identity) (*domain.Product, error) {
	doc, err := c.fetchDocument(ctx, productURL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", productURL, err)
	}

	product := extract.ProductDetails(doc, productURL)
	if product.NaturalID == "" {
		return nil, fmt.Errorf("%w: no offer id in %s", ErrInvalidURL, productURL)
	}

	log.Debugf("Successfully fetched and parsed product %s", product.NaturalID)
	return &product, nil
}

func (c *catalogClient) listingURL(categoryURL string, page int) (string, error) {
	u, err := url.Parse(categoryURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, categoryURL)
	}
	q := u.Query()
	q.Set(c.pageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *catalogClient) fetchDocument(ctx context.Context, pageURL string, id Identity) (*goquery.Document, error) {
	html, err := c.fetcher.Fetch(ctx, pageURL, transport.Options{
		SessionKey: id.SessionKey,
		Proxy:      id.Proxy,
	})
	if err != nil {
		return nil, err
	}
	return extract.Parse(html)
}

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/proxy"
	"autoriven/scraper/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []transport.Options
	urls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, opts transport.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, rawURL)
	f.calls = append(f.calls, opts)
	html, ok := f.pages[rawURL]
	if !ok {
		return "", &transport.FetchExhaustedError{URL: rawURL, Attempts: 1, Cause: errors.New("not found")}
	}
	return html, nil
}

func (f *fakeFetcher) Proxies() proxy.Supplier { return nil }

func TestGetCategoryPage(t *testing.T) {
	const rootURL = "https://allegro.pl/kategoria/czesci-samochodowe-620"
	f := &fakeFetcher{pages: map[string]string{
		rootURL: `<html><body><h1>Części samochodowe</h1>
			<div data-role="counter-value">5 000</div>
			<div data-role="categories">
				<a href="/kategoria/oswietlenie-4029">Oświetlenie (12)</a>
				<a href="/kategoria/filtry-4030">Filtry</a>
			</div>
			<div data-role="listing"><article><a href="/oferta/lampa-1">Lampa</a></article></div>
		</body></html>`,
	}}
	c := NewCatalogClient(f, "p")

	page, err := c.GetCategoryPage(context.Background(), rootURL, Identity{SessionKey: "branch-1", Proxy: "http://p:1"})
	require.NoError(t, err)

	assert.Equal(t, "620", page.NaturalID)
	assert.Equal(t, "Części samochodowe", page.Name)
	assert.Equal(t, 5000, page.OfferCount)
	assert.Equal(t, 1, page.ProductCount)
	require.Len(t, page.Links, 2)
	assert.Equal(t, "4029", page.Links[0].NaturalID)
	assert.Equal(t, 12, page.Links[0].CountHint)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "branch-1", f.calls[0].SessionKey)
	assert.Equal(t, "http://p:1", f.calls[0].Proxy)
}

func TestGetCategoryPage_Errors(t *testing.T) {
	c := NewCatalogClient(&fakeFetcher{}, "p")

	_, err := c.GetCategoryPage(context.Background(), "https://allegro.pl/kategoria/bez-id", Identity{})
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = c.GetCategoryPage(context.Background(), "https://allegro.pl/kategoria/filtry-4030", Identity{})
	assert.ErrorIs(t, err, transport.ErrFetchExhausted)
}

func TestGetListingPage_SetsPageParameter(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://allegro.pl/kategoria/filtry-4030?order=m&p=2": `<html><body><div data-role="listing">
			<article><a href="/oferta/filtr-11">a</a></article>
			<article><a href="/oferta/filtr-12">b</a></article>
		</div></body></html>`,
	}}
	c := NewCatalogClient(f, "p")
	category := domain.Category{NaturalID: "4030", SourceURL: "https://allegro.pl/kategoria/filtry-4030?order=m"}

	listing, err := c.GetListingPage(context.Background(), category, 2, Identity{})
	require.NoError(t, err)

	assert.Equal(t, "4030", listing.CategoryNaturalID)
	assert.Equal(t, 2, listing.Page)
	assert.Equal(t, []string{"https://allegro.pl/oferta/filtr-11", "https://allegro.pl/oferta/filtr-12"}, listing.ProductURLs)
}

func TestGetListingPage_InvalidURL(t *testing.T) {
	c := NewCatalogClient(&fakeFetcher{}, "")
	_, err := c.GetListingPage(context.Background(), domain.Category{SourceURL: "not a url"}, 1, Identity{})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestGetProduct_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="Filtr oleju">
			<meta itemprop="price" content="129.99">
			<link itemprop="itemCondition" href="https://schema.org/NewCondition">
		</head><body></body></html>`)
	}))
	defer srv.Close()

	sup, err := proxy.NewSupplier(context.Background(), nil, proxy.Options{AllowDirect: true})
	require.NoError(t, err)
	tr := transport.New(config.ScraperConfig{Timeout: 5 * time.Second, MaxAttempts: 1, IsolateSessions: true}, sup)
	defer tr.Close()

	c := NewCatalogClient(tr, "p")
	p, err := c.GetProduct(context.Background(), srv.URL+"/oferta/filtr-oleju-13579246", Identity{})
	require.NoError(t, err)

	assert.Equal(t, "13579246", p.NaturalID)
	assert.Equal(t, "Filtr oleju", p.Name)
	assert.Equal(t, 129.99, p.Price)
	assert.Equal(t, domain.ConditionNew, p.Condition)
}

func TestGetProduct_MissingID(t *testing.T) {
	const u = "https://allegro.pl/oferta/bez-numeru"
	c := NewCatalogClient(&fakeFetcher{pages: map[string]string{u: "<html><body><h1>x</h1></body></html>"}}, "p")
	_, err := c.GetProduct(context.Background(), u, Identity{})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

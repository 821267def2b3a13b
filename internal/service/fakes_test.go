package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"autoriven/scraper/internal/client"
	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/domain/task"
	"autoriven/scraper/internal/transport"

	"github.com/redis/go-redis/v9"
)

const site = "https://allegro.pl"

func categoryURL(slug, id string) string {
	return fmt.Sprintf("%s/kategoria/%s-%s", site, slug, id)
}

func offerURL(id string) string {
	return fmt.Sprintf("%s/oferta/czesc-%s", site, id)
}

func link(slug, id, text string) domain.CategoryLink {
	return domain.CategoryLink{URL: categoryURL(slug, id), Text: text, NaturalID: id}
}

func exhausted(u string) error {
	return &transport.FetchExhaustedError{URL: u, Attempts: 3, Cause: errors.New("HTTP 503")}
}

type fetchCall struct {
	URL string
	ID  client.Identity
}

// fakeClient serves canned pages keyed by URL. Listings are keyed by
// category natural ID and page number.
type fakeClient struct {
	mu sync.Mutex

	categories    map[string]*domain.CategoryPage
	categoryErrs  map[string]error
	listings      map[string]map[int][]string
	listingErrs   map[string]map[int]error
	products      map[string]*domain.Product
	productErrs   map[string]error
	onListing     func(categoryID string, page int)
	repeatLast    bool // Serve the highest known page for out-of-range page numbers
	categoryCalls []fetchCall
	listingCalls  []string
	productCalls  []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		categories:   make(map[string]*domain.CategoryPage),
		categoryErrs: make(map[string]error),
		listings:     make(map[string]map[int][]string),
		listingErrs:  make(map[string]map[int]error),
		products:     make(map[string]*domain.Product),
		productErrs:  make(map[string]error),
	}
}

func (f *fakeClient) addCategory(slug, id, name string, offers int, links ...domain.CategoryLink) string {
	u := categoryURL(slug, id)
	f.categories[u] = &domain.CategoryPage{NaturalID: id, Name: name, URL: u, OfferCount: offers, Links: links}
	return u
}

func (f *fakeClient) addListing(categoryID string, page int, productIDs ...string) {
	if f.listings[categoryID] == nil {
		f.listings[categoryID] = make(map[int][]string)
	}
	urls := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		u := offerURL(id)
		urls = append(urls, u)
		if _, ok := f.products[u]; !ok {
			f.products[u] = &domain.Product{NaturalID: id, SourceURL: u, Name: "Filtr oleju " + id, Price: 10}
		}
	}
	f.listings[categoryID][page] = urls
}

func (f *fakeClient) failListing(categoryID string, page int, err error) {
	if f.listingErrs[categoryID] == nil {
		f.listingErrs[categoryID] = make(map[int]error)
	}
	f.listingErrs[categoryID][page] = err
}

func (f *fakeClient) GetCategoryPage(ctx context.Context, u string, id client.Identity) (*domain.CategoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryCalls = append(f.categoryCalls, fetchCall{URL: u, ID: id})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.categoryErrs[u]; ok {
		return nil, err
	}
	page, ok := f.categories[u]
	if !ok {
		return nil, exhausted(u)
	}
	cp := *page
	return &cp, nil
}

func (f *fakeClient) GetListingPage(ctx context.Context, category domain.Category, page int, _ client.Identity) (*domain.ListingPage, error) {
	f.mu.Lock()
	f.listingCalls = append(f.listingCalls, fmt.Sprintf("%s#%d", category.NaturalID, page))
	hook := f.onListing
	f.mu.Unlock()

	if hook != nil {
		hook(category.NaturalID, page)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.listingErrs[category.NaturalID][page]; ok {
		return nil, err
	}
	urls, ok := f.listings[category.NaturalID][page]
	if !ok && f.repeatLast {
		last := 0
		for n := range f.listings[category.NaturalID] {
			last = max(last, n)
		}
		urls = f.listings[category.NaturalID][last]
	}
	return &domain.ListingPage{
		CategoryNaturalID: category.NaturalID,
		Page:              page,
		ProductURLs:       urls,
	}, nil
}

func (f *fakeClient) GetProduct(ctx context.Context, u string, _ client.Identity) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls = append(f.productCalls, u)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.productErrs[u]; ok {
		return nil, err
	}
	p, ok := f.products[u]
	if !ok {
		return nil, exhausted(u)
	}
	cp := *p
	return &cp, nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	cancel context.CancelFunc
	after  int // Cancel on this call when set
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	n := len(r.delays)
	r.mu.Unlock()
	if r.cancel != nil && n == r.after {
		r.cancel()
	}
	return ctx.Err()
}

func (r *sleepRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delays)
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []task.Task
}

func (q *fakeQueue) AddTask(_ context.Context, t task.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return fmt.Sprintf("%d-0", len(q.tasks)), nil
}

func (q *fakeQueue) GetTask(context.Context, string, string, string) (*redis.XMessage, error) {
	return nil, nil
}

func (q *fakeQueue) AckTask(context.Context, string, string, string) error { return nil }

func (q *fakeQueue) CreateGroup(context.Context, string, string) error { return nil }

func (q *fakeQueue) AutoClaim(context.Context, string, string, string, time.Duration) ([]redis.XMessage, error) {
	return nil, nil
}

func (q *fakeQueue) EnsureStreamsExist(context.Context) error { return nil }

func (q *fakeQueue) StreamName(taskType string) string { return "test:" + taskType }

func (q *fakeQueue) Group() string { return "test" }

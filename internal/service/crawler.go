package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"autoriven/scraper/internal/client"
	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/metrics"
	"autoriven/scraper/internal/proxy"
	"autoriven/scraper/internal/repository"
	"autoriven/scraper/internal/translate"
	"autoriven/scraper/internal/transport"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrRootNameMissing = errors.New("root category page has no name")

// CrawlFailure is a branch that could not be fetched. The category itself
// was emitted when its parent was expanded; only its subtree is missing.
type CrawlFailure struct {
	NaturalID string
	URL       string
	Depth     int
	Err       error
}

type CrawlResult struct {
	Categories []domain.Category // Emission order, latest version of each
	Failures   []CrawlFailure
	Truncated  bool // Stopped at crawl.max_nodes

	index map[string]int
}

func (r *CrawlResult) Leaves() []domain.Category {
	return domain.Leaves(r.Categories)
}

// LevelBreakdown counts categories per depth.
func (r *CrawlResult) LevelBreakdown() map[int]int {
	out := make(map[int]int)
	for _, c := range r.Categories {
		out[c.Depth]++
	}
	return out
}

// Crawler discovers the category tree below a root page, depth first,
// emitting every category to the sink before any of its children.
type Crawler struct {
	client     client.CatalogClient
	sink       repository.Sink
	translator *translate.Translator
	proxies    proxy.Supplier
	cfg        config.CrawlConfig

	sleep func(ctx context.Context, d time.Duration) error
}

func NewCrawler(
	client client.CatalogClient,
	sink repository.Sink,
	translator *translate.Translator,
	proxies proxy.Supplier,
	cfg config.CrawlConfig,
) *Crawler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Crawler{
		client:     client,
		sink:       sink,
		translator: translator,
		proxies:    proxies,
		cfg:        cfg,
		sleep:      transport.Sleep,
	}
}

// crawlRun holds the state of one Crawl call.
type crawlRun struct {
	*Crawler

	ids     *domain.Sequence
	fetches atomic.Int64

	mu     sync.Mutex
	seen   map[string]bool
	result *CrawlResult
}

// Crawl fetches rootURL, then expands the tree until the frontier is empty
// or crawl.max_nodes categories were emitted. A failed root is returned as
// is. On cancellation the partial result is returned with the context error.
func (c *Crawler) Crawl(ctx context.Context, rootURL string) (*CrawlResult, error) {
	seeds, err := repository.SurrogateSeeds(ctx, c.sink)
	if err != nil {
		return nil, err
	}

	run := &crawlRun{
		Crawler: c,
		ids:     domain.NewSequence(seeds.Category),
		seen:    make(map[string]bool),
		result: &CrawlResult{
			index: make(map[string]int),
		},
	}

	log.Infof("🌳 Crawling category tree from %s (max depth %d)", rootURL, c.cfg.MaxDepth)

	page, err := run.fetch(ctx, rootURL, client.Identity{})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(page.Name) == "" {
		return nil, fmt.Errorf("%w: %s", ErrRootNameMissing, rootURL)
	}

	root := run.newCategory(page.NaturalID, page.Name, rootURL, c.cfg.RootDepth, nil, page.OfferCount)
	applyPage(&root, page)
	run.claim(root.NaturalID)
	run.emit(ctx, root)

	if root.Depth < c.cfg.MaxDepth {
		err = run.expand(ctx, root, page, client.Identity{}, c.cfg.Concurrency > 1)
	}

	res := run.result
	log.Infof("✅ Crawl finished: %d categories, %d leaves, %d failed branches",
		len(res.Categories), len(res.Leaves()), len(res.Failures))
	return res, err
}

// expand claims and emits every unseen child of parent, then visits them in
// order. With parallel set each child branch runs on its own session and
// proxy.
func (r *crawlRun) expand(ctx context.Context, parent domain.Category, page *domain.CategoryPage, id client.Identity, parallel bool) error {
	children := r.claimChildren(ctx, parent, page.Links)

	if !parallel {
		for _, child := range children {
			if err := r.visit(ctx, child, id); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, child := range children {
		branch := client.Identity{SessionKey: transport.NewSessionKey()}
		if r.proxies != nil && r.proxies.Len() > 0 {
			branch.Proxy = r.proxies.Get()
		}
		g.Go(func() error {
			return r.visit(gctx, child, branch)
		})
	}
	return g.Wait()
}

// visit fetches a claimed category and recurses into it. Only context
// errors are returned; fetch failures are recorded and the branch skipped.
func (r *crawlRun) visit(ctx context.Context, cat domain.Category, id client.Identity) error {
	if cat.Depth >= r.cfg.MaxDepth || r.full() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	page, err := r.fetch(ctx, cat.SourceURL, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.fail(cat, err)
		return nil
	}

	if applyPage(&cat, page) {
		r.emit(ctx, cat)
	}

	return r.expand(ctx, cat, page, id, false)
}

func (r *crawlRun) fetch(ctx context.Context, pageURL string, id client.Identity) (*domain.CategoryPage, error) {
	if r.fetches.Add(1) > 1 {
		if err := r.sleep(ctx, r.cfg.Delay); err != nil {
			return nil, err
		}
	}
	return r.client.GetCategoryPage(ctx, pageURL, id)
}

func (r *crawlRun) claimChildren(ctx context.Context, parent domain.Category, links []domain.CategoryLink) []domain.Category {
	parentID := parent.NaturalID
	children := make([]domain.Category, 0, len(links))

	for _, link := range links {
		if !r.claim(link.NaturalID) {
			continue
		}
		child := r.newCategory(link.NaturalID, link.Text, link.URL, parent.Depth+1, &parentID, link.CountHint)
		// Unfetched nodes are assumed to list offers until their page says otherwise.
		child.HasOffers = true
		r.emit(ctx, child)
		children = append(children, child)
	}

	if len(children) > 0 {
		log.Debugf("📂 %s (depth %d): %d new subcategories", parent.Name, parent.Depth, len(children))
	}
	return children
}

// claim marks a natural ID as discovered. It fails for IDs seen before and
// once the node cap is reached.
func (r *crawlRun) claim(naturalID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if naturalID == "" || r.seen[naturalID] {
		return false
	}
	if r.cfg.MaxNodes > 0 && len(r.seen) >= r.cfg.MaxNodes {
		if !r.result.Truncated {
			log.Warnf("⚠️ Node limit %d reached, stopping discovery", r.cfg.MaxNodes)
		}
		r.result.Truncated = true
		return false
	}
	r.seen[naturalID] = true
	return true
}

func (r *crawlRun) full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result.Truncated
}

func (r *crawlRun) newCategory(naturalID, name, sourceURL string, depth int, parent *string, hint int) domain.Category {
	name = strings.TrimSpace(name)
	translated := r.translator.Translate(name)
	return domain.Category{
		NaturalID:       naturalID,
		SurrogateID:     r.ids.Next(),
		Name:            name,
		TranslatedName:  translated,
		Slug:            translate.Slugify(name),
		TranslatedSlug:  translate.Slugify(translated),
		SourceURL:       sourceURL,
		Depth:           depth,
		ParentNaturalID: parent,
		OfferCountHint:  hint,
	}
}

// applyPage refines offer information from the category's own page and
// reports whether anything changed.
func applyPage(cat *domain.Category, page *domain.CategoryPage) bool {
	hasOffers := page.OfferCount > 0 || page.ProductCount > 0
	hint := cat.OfferCountHint
	if page.OfferCount > 0 {
		hint = page.OfferCount
	}
	if cat.HasOffers == hasOffers && cat.OfferCountHint == hint {
		return false
	}
	cat.HasOffers = hasOffers
	cat.OfferCountHint = hint
	return true
}

func (r *crawlRun) emit(ctx context.Context, cat domain.Category) {
	if err := r.sink.UpsertCategory(ctx, cat); err != nil {
		metrics.ItemFailuresTotal.WithLabelValues("sink").Inc()
		log.Errorf("❌ Failed to store category %s: %v", cat.NaturalID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.result
	if i, ok := res.index[cat.NaturalID]; ok {
		res.Categories[i] = cat
		return
	}
	res.index[cat.NaturalID] = len(res.Categories)
	res.Categories = append(res.Categories, cat)
	metrics.CategoriesEmittedTotal.Inc()
}

func (r *crawlRun) fail(cat domain.Category, err error) {
	metrics.ItemFailuresTotal.WithLabelValues("branch").Inc()
	log.Warnf("⚠️ Skipping branch %s (%s) at depth %d: %v", cat.Name, cat.NaturalID, cat.Depth, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Failures = append(r.result.Failures, CrawlFailure{
		NaturalID: cat.NaturalID,
		URL:       cat.SourceURL,
		Depth:     cat.Depth,
		Err:       err,
	})
}

package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"autoriven/scraper/internal/client"
	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/domain/task"
	"autoriven/scraper/internal/extract"
	"autoriven/scraper/internal/metrics"
	"autoriven/scraper/internal/queue"
	"autoriven/scraper/internal/repository"
	"autoriven/scraper/internal/state"
	"autoriven/scraper/internal/translate"
	"autoriven/scraper/internal/transport"

	log "github.com/sirupsen/logrus"
)

// ItemFailure is a listing page or offer that could not be scraped.
type ItemFailure struct {
	Kind              string // "listing" or "product"
	CategoryNaturalID string
	URL               string
	Page              int
	Err               error
}

type PipelineResult struct {
	Products   []domain.Product
	Categories int // Leaves whose listing was walked
	Pages      int // Listing pages fetched
	Failures   []ItemFailure
}

// ProductPipeline walks the listing pages of leaf categories and scrapes
// every offer on them.
type ProductPipeline struct {
	client     client.CatalogClient
	sink       repository.Sink
	translator *translate.Translator
	queue      queue.Queue // Optional; failed items are only logged without it
	state      state.StateManager
	cfg        config.ProductsConfig

	ids *domain.Sequence

	mu   sync.Mutex
	seen map[string]bool

	listingFetches int
	productFetches int

	sleep func(ctx context.Context, d time.Duration) error
}

func NewProductPipeline(
	client client.CatalogClient,
	sink repository.Sink,
	translator *translate.Translator,
	queue queue.Queue,
	stateManager state.StateManager,
	cfg config.ProductsConfig,
) *ProductPipeline {
	if stateManager == nil {
		stateManager = state.NewMemoryStateManager()
	}
	return &ProductPipeline{
		client:     client,
		sink:       sink,
		translator: translator,
		queue:      queue,
		state:      stateManager,
		cfg:        cfg,
		ids:        domain.NewSequence(0),
		seen:       make(map[string]bool),
		sleep:      transport.Sleep,
	}
}

// Run scrapes the offers of every leaf. Per-item failures are recorded and
// skipped; only cancellation stops the run, returning the partial result.
func (p *ProductPipeline) Run(ctx context.Context, leaves []domain.Category) (*PipelineResult, error) {
	if err := p.reseed(ctx); err != nil {
		return nil, err
	}

	result := &PipelineResult{}
	log.Infof("🛒 Scraping products of %d leaf categories", len(leaves))

	for i, leaf := range leaves {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		log.Infof("🔄 [%d/%d] Category %s (%s)", i+1, len(leaves), leaf.Name, leaf.NaturalID)

		if err := p.scrapeCategory(ctx, leaf, result); err != nil {
			return result, err
		}
	}

	log.Infof("✅ Product run finished: %d products from %d categories, %d failures",
		len(result.Products), result.Categories, len(result.Failures))
	return result, nil
}

// reseed starts the product sequence after the IDs the sink already holds.
func (p *ProductPipeline) reseed(ctx context.Context) error {
	seeds, err := repository.SurrogateSeeds(ctx, p.sink)
	if err != nil {
		return err
	}
	p.ids = domain.NewSequence(seeds.Product)
	return nil
}

func (p *ProductPipeline) scrapeCategory(ctx context.Context, leaf domain.Category, result *PipelineResult) error {
	startPage := 1
	if p.cfg.Resume {
		done, err := p.state.IsCategoryDone(ctx, leaf.NaturalID)
		if err != nil {
			log.Warnf("⚠️ Failed to read progress for %s: %v", leaf.NaturalID, err)
		}
		if done {
			log.Infof("⏭️ Category %s already completed, skipping", leaf.NaturalID)
			return nil
		}
		last, err := p.state.GetLastProcessedPage(ctx, leaf.NaturalID)
		if err != nil {
			log.Warnf("⚠️ Failed to read progress for %s: %v", leaf.NaturalID, err)
		}
		if last > 0 {
			startPage = last + 1
			log.Infof("🔄 Continue from page %d for %s", startPage, leaf.NaturalID)
		}
	} else if err := p.state.Clear(ctx, leaf.NaturalID); err != nil {
		log.Warnf("⚠️ Failed to clear progress for %s: %v", leaf.NaturalID, err)
	}

	result.Categories++
	return p.walk(ctx, leaf, startPage, 0, result)
}

// walk fetches listing pages from startPage on until one comes back empty
// or lists nothing new, the per-category cap is reached, or a page fails.
// emitted counts products already taken from this category.
func (p *ProductPipeline) walk(ctx context.Context, leaf domain.Category, startPage, emitted int, result *PipelineResult) error {
	listed := make(map[string]bool)

	for page := startPage; ; page++ {
		if p.cfg.MaxPerCategory > 0 && emitted >= p.cfg.MaxPerCategory {
			log.Infof("🛑 Reached %d products for %s", p.cfg.MaxPerCategory, leaf.NaturalID)
			break
		}

		listing, err := p.fetchListing(ctx, leaf, page)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.listingFailed(ctx, leaf, page, 0, err, result)
			return nil
		}
		result.Pages++

		if len(listing.ProductURLs) == 0 {
			break
		}
		// Out-of-range page numbers are answered with the last page again.
		if !markListed(listed, listing.ProductURLs) {
			log.Infof("🔁 Page %d of %s repeats earlier offers, stopping", page, leaf.NaturalID)
			break
		}

		limit := 0
		if p.cfg.MaxPerCategory > 0 {
			limit = p.cfg.MaxPerCategory - emitted
		}
		n, err := p.scrapeListing(ctx, leaf, listing, limit, result)
		emitted += n
		if err != nil {
			return err
		}

		if err := p.state.SetLastProcessedPage(ctx, leaf.NaturalID, page); err != nil {
			log.Warnf("⚠️ Failed to save progress for %s: %v", leaf.NaturalID, err)
		}
	}

	if err := p.state.MarkCategoryDone(ctx, leaf.NaturalID); err != nil {
		log.Warnf("⚠️ Failed to save progress for %s: %v", leaf.NaturalID, err)
	}
	log.Infof("✅ Category %s: %d products", leaf.NaturalID, emitted)
	return nil
}

// markListed adds urls to listed and reports whether any was new.
func markListed(listed map[string]bool, urls []string) bool {
	fresh := false
	for _, u := range urls {
		if !listed[u] {
			listed[u] = true
			fresh = true
		}
	}
	return fresh
}

// fetchListing waits products.page_delay before every listing fetch but the
// first of the run.
func (p *ProductPipeline) fetchListing(ctx context.Context, leaf domain.Category, page int) (*domain.ListingPage, error) {
	p.listingFetches++
	if p.listingFetches > 1 {
		if err := p.sleep(ctx, p.cfg.PageDelay); err != nil {
			return nil, err
		}
	}
	return p.client.GetListingPage(ctx, leaf, page, client.Identity{})
}

// scrapeListing fetches the offers of one listing page, up to limit when
// positive, and emits them together once the page is done. It returns how
// many products were emitted.
func (p *ProductPipeline) scrapeListing(ctx context.Context, leaf domain.Category, listing *domain.ListingPage, limit int, result *PipelineResult) (int, error) {
	var batch []domain.Product

	for _, productURL := range listing.ProductURLs {
		if limit > 0 && len(batch) >= limit {
			break
		}
		if !p.claim(productURL) {
			continue
		}

		product, err := p.scrapeProduct(ctx, leaf.NaturalID, productURL)
		if err != nil {
			if ctx.Err() != nil {
				p.emitBatch(ctx, batch, result)
				return len(batch), ctx.Err()
			}
			p.productFailed(ctx, leaf.NaturalID, productURL, 0, err, result)
			continue
		}
		batch = append(batch, *product)
	}

	p.emitBatch(ctx, batch, result)
	log.Debugf("📦 Page %d of %s: %d products", listing.Page, leaf.NaturalID, len(batch))
	return len(batch), nil
}

// scrapeProduct waits products.product_delay before every detail fetch but
// the first of the run.
func (p *ProductPipeline) scrapeProduct(ctx context.Context, categoryID, productURL string) (*domain.Product, error) {
	p.productFetches++
	if p.productFetches > 1 {
		if err := p.sleep(ctx, p.cfg.ProductDelay); err != nil {
			return nil, err
		}
	}
	product, err := p.client.GetProduct(ctx, productURL, client.Identity{})
	if err != nil {
		return nil, err
	}
	p.enrich(product, categoryID)
	return product, nil
}

// claim records an offer for this run. Offers listed in several categories
// are scraped once.
func (p *ProductPipeline) claim(productURL string) bool {
	key := extract.NaturalID(productURL)
	if key == "" {
		key = productURL
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[key] {
		return false
	}
	p.seen[key] = true
	return true
}

func (p *ProductPipeline) enrich(product *domain.Product, categoryID string) {
	product.SurrogateID = p.ids.Next()
	product.CategoryNaturalID = categoryID
	if product.Currency == "" {
		product.Currency = p.cfg.Currency
	}
	product.TranslatedName = p.translator.Translate(product.Name)
	product.Slug = translate.Slugify(product.Name)
	product.TranslatedSlug = translate.Slugify(product.TranslatedName)
	product.TranslatedURL = translatedURL(product.SourceURL, product.TranslatedSlug, product.NaturalID)
}

// translatedURL points at the same offer under its translated slug. The
// site resolves offers by the trailing ID, so the slug is cosmetic.
func translatedURL(sourceURL, slug, naturalID string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || slug == "" || naturalID == "" {
		return sourceURL
	}
	u.Path = "/oferta/" + slug + "-" + naturalID
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func (p *ProductPipeline) emitBatch(ctx context.Context, batch []domain.Product, result *PipelineResult) {
	for _, product := range batch {
		if err := p.sink.UpsertProduct(ctx, product); err != nil {
			metrics.ItemFailuresTotal.WithLabelValues("sink").Inc()
			log.Errorf("❌ Failed to store product %s: %v", product.NaturalID, err)
			continue
		}
		metrics.ProductsEmittedTotal.Inc()
		result.Products = append(result.Products, product)
	}
}

func (p *ProductPipeline) listingFailed(ctx context.Context, leaf domain.Category, page, retries int, err error, result *PipelineResult) {
	metrics.ItemFailuresTotal.WithLabelValues("listing").Inc()
	log.Warnf("⚠️ Listing page %d of %s failed, skipping the rest of the category: %v", page, leaf.NaturalID, err)
	result.Failures = append(result.Failures, ItemFailure{
		Kind:              "listing",
		CategoryNaturalID: leaf.NaturalID,
		URL:               leaf.SourceURL,
		Page:              page,
		Err:               err,
	})

	p.enqueue(ctx, &task.PageRetryTask{
		CategoryNaturalID: leaf.NaturalID,
		CategoryURL:       leaf.SourceURL,
		PageNumber:        page,
		RetryCount:        retries,
		Error:             err.Error(),
	})
}

func (p *ProductPipeline) productFailed(ctx context.Context, categoryID, productURL string, retries int, err error, result *PipelineResult) {
	metrics.ItemFailuresTotal.WithLabelValues("product").Inc()
	log.Warnf("⚠️ Skipping product %s: %v", productURL, err)
	result.Failures = append(result.Failures, ItemFailure{
		Kind:              "product",
		CategoryNaturalID: categoryID,
		URL:               productURL,
		Err:               err,
	})

	p.enqueue(ctx, &task.ProductRetryTask{
		ProductURL:        productURL,
		CategoryNaturalID: categoryID,
		RetryCount:        retries,
		Error:             err.Error(),
	})
}

func (p *ProductPipeline) enqueue(ctx context.Context, t task.Task) {
	if p.queue == nil {
		return
	}
	if _, err := p.queue.AddTask(ctx, t); err != nil {
		log.Errorf("❌ Failed to add %s to retry queue: %v", t.TaskType(), err)
		return
	}
	log.Debugf("🔄 Added %s to retry queue", t.TaskType())
}

func (r *PipelineResult) String() string {
	return fmt.Sprintf("%d products, %d categories, %d pages, %d failures",
		len(r.Products), r.Categories, r.Pages, len(r.Failures))
}

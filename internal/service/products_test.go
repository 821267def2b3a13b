package service

import (
	"context"
	"testing"
	"time"

	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/domain/task"
	"autoriven/scraper/internal/repository"
	"autoriven/scraper/internal/state"
	"autoriven/scraper/internal/translate"
	"autoriven/scraper/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productsConfig() config.ProductsConfig {
	return config.ProductsConfig{
		ProductDelay:   time.Second,
		PageDelay:      3 * time.Second,
		PageParam:      "p",
		Currency:       "PLN",
		Resume:         true,
		MaxTaskRetries: 3,
	}
}

type pipelineFixture struct {
	client   *fakeClient
	sink     *repository.MemorySink
	queue    *fakeQueue
	state    state.StateManager
	sleeps   *sleepRecorder
	pipeline *ProductPipeline
}

func newPipelineFixture(cfg config.ProductsConfig) *pipelineFixture {
	f := &pipelineFixture{
		client: newFakeClient(),
		sink:   repository.NewMemorySink(),
		queue:  &fakeQueue{},
		state:  state.NewMemoryStateManager(),
		sleeps: &sleepRecorder{},
	}
	f.pipeline = NewProductPipeline(f.client, f.sink, translate.New(nil), f.queue, f.state, cfg)
	f.pipeline.sleep = f.sleeps.sleep
	return f
}

func leaf(slug, id string) domain.Category {
	return domain.Category{NaturalID: id, Name: slug, SourceURL: categoryURL(slug, id), HasOffers: true, Depth: 3}
}

func productIDs(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.NaturalID)
	}
	return out
}

func TestPipeline_PaginatesUntilEmptyPage(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.addListing("4030", 1, "11", "12")
	f.client.addListing("4030", 2, "13")

	res, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030")})
	require.NoError(t, err)

	assert.Equal(t, []string{"11", "12", "13"}, productIDs(res.Products))
	assert.Equal(t, []string{"4030#1", "4030#2", "4030#3"}, f.client.listingCalls)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 1, res.Categories)
	assert.Empty(t, res.Failures)

	// Two page delays between three listing fetches, two product delays
	// between three detail fetches.
	var pageDelays, productDelays int
	for _, d := range f.sleeps.delays {
		switch d {
		case 3 * time.Second:
			pageDelays++
		case time.Second:
			productDelays++
		}
	}
	assert.Equal(t, 2, pageDelays)
	assert.Equal(t, 2, productDelays)

	done, err := f.state.IsCategoryDone(context.Background(), "4030")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestPipeline_EnrichesProducts(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.addListing("4030", 1, "11", "12")
	f.client.products[offerURL("12")].Currency = "EUR"

	res, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030")})
	require.NoError(t, err)
	require.Len(t, res.Products, 2)

	p := res.Products[0]
	assert.Equal(t, int64(1), p.SurrogateID)
	assert.Equal(t, "4030", p.CategoryNaturalID)
	assert.Equal(t, "PLN", p.Currency)
	assert.Equal(t, "Oil filter 11", p.TranslatedName)
	assert.Equal(t, "filtr-oleju-11", p.Slug)
	assert.Equal(t, "oil-filter-11", p.TranslatedSlug)
	assert.Equal(t, "https://allegro.pl/oferta/oil-filter-11-11", p.TranslatedURL)

	assert.Equal(t, int64(2), res.Products[1].SurrogateID)
	assert.Equal(t, "EUR", res.Products[1].Currency)
}

func TestPipeline_StopsWhenListingRepeats(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.repeatLast = true
	f.client.addListing("4030", 1, "11", "12")
	f.client.addListing("4030", 2, "12", "13")

	res, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030")})
	require.NoError(t, err)

	assert.Equal(t, []string{"11", "12", "13"}, productIDs(res.Products))
	assert.Equal(t, []string{"4030#1", "4030#2", "4030#3"}, f.client.listingCalls)

	last, err := f.state.GetLastProcessedPage(context.Background(), "4030")
	require.NoError(t, err)
	assert.Equal(t, 2, last)
	done, err := f.state.IsCategoryDone(context.Background(), "4030")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestPipeline_SurrogateIDsContinueAcrossRuns(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.addListing("4030", 1, "11")
	f.client.addListing("4029", 1, "99", "11")

	_, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030")})
	require.NoError(t, err)

	next := NewProductPipeline(f.client, f.sink, translate.New(nil), f.queue, f.state, productsConfig())
	next.sleep = f.sleeps.sleep
	res, err := next.Run(context.Background(), []domain.Category{leaf("oswietlenie", "4029")})
	require.NoError(t, err)
	assert.Equal(t, []string{"99", "11"}, productIDs(res.Products))

	first, ok := f.sink.Product("11")
	require.True(t, ok)
	second, ok := f.sink.Product("99")
	require.True(t, ok)
	assert.Equal(t, int64(1), first.SurrogateID)
	assert.Equal(t, int64(2), second.SurrogateID)
}

func TestPipeline_MaxPerCategory(t *testing.T) {
	cfg := productsConfig()
	cfg.MaxPerCategory = 3
	f := newPipelineFixture(cfg)
	f.client.addListing("4030", 1, "11", "12")
	f.client.addListing("4030", 2, "13", "14", "15")
	f.client.addListing("4030", 3, "16")

	res, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030")})
	require.NoError(t, err)

	assert.Equal(t, []string{"11", "12", "13"}, productIDs(res.Products))
	assert.Equal(t, []string{"4030#1", "4030#2"}, f.client.listingCalls)
	assert.Len(t, f.client.productCalls, 3)
}

func TestPipeline_EmitsEachPageBeforeTheNext(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.addListing("4030", 1, "11", "12")
	f.client.addListing("4030", 2, "13")

	stored := make(map[int]int)
	f.client.onListing = func(_ string, page int) {
		stored[page] = len(f.sink.Products())
	}

	_, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030")})
	require.NoError(t, err)

	assert.Equal(t, 0, stored[1])
	assert.Equal(t, 2, stored[2])
	assert.Equal(t, 3, stored[3])
}

func TestPipeline_FailedProductIsSkippedAndQueued(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.addListing("4030", 1, "11", "12", "13")
	f.client.productErrs[offerURL("12")] = exhausted(offerURL("12"))

	res, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030")})
	require.NoError(t, err)

	assert.Equal(t, []string{"11", "13"}, productIDs(res.Products))
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "product", res.Failures[0].Kind)
	assert.ErrorIs(t, res.Failures[0].Err, transport.ErrFetchExhausted)

	require.Len(t, f.queue.tasks, 1)
	retry, ok := f.queue.tasks[0].(*task.ProductRetryTask)
	require.True(t, ok)
	assert.Equal(t, offerURL("12"), retry.ProductURL)
	assert.Equal(t, "4030", retry.CategoryNaturalID)
	assert.Equal(t, 0, retry.RetryCount)
}

func TestPipeline_FailedListingStopsOnlyThatCategory(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.addListing("4030", 1, "11")
	f.client.failListing("4030", 2, exhausted("listing"))
	f.client.addListing("4029", 1, "21")

	res, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030"), leaf("oswietlenie", "4029")})
	require.NoError(t, err)

	assert.Equal(t, []string{"11", "21"}, productIDs(res.Products))
	assert.Equal(t, []string{"4030#1", "4030#2", "4029#1", "4029#2"}, f.client.listingCalls)

	require.Len(t, f.queue.tasks, 1)
	retry, ok := f.queue.tasks[0].(*task.PageRetryTask)
	require.True(t, ok)
	assert.Equal(t, 2, retry.PageNumber)
	assert.Equal(t, categoryURL("filtry", "4030"), retry.CategoryURL)

	done, _ := f.state.IsCategoryDone(context.Background(), "4030")
	assert.False(t, done)
	last, _ := f.state.GetLastProcessedPage(context.Background(), "4030")
	assert.Equal(t, 1, last)
}

func TestPipeline_DedupAcrossCategories(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.addListing("4030", 1, "11", "12")
	f.client.addListing("4029", 1, "12", "21")

	res, err := f.pipeline.Run(context.Background(), []domain.Category{leaf("filtry", "4030"), leaf("oswietlenie", "4029")})
	require.NoError(t, err)

	assert.Equal(t, []string{"11", "12", "21"}, productIDs(res.Products))
	assert.Len(t, f.client.productCalls, 3)
}

func TestPipeline_ResumesFromSavedProgress(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	ctx := context.Background()
	f.client.addListing("4030", 1, "11")
	f.client.addListing("4030", 2, "12")
	f.client.addListing("4029", 1, "21")
	require.NoError(t, f.state.SetLastProcessedPage(ctx, "4030", 1))
	require.NoError(t, f.state.MarkCategoryDone(ctx, "4029"))

	res, err := f.pipeline.Run(ctx, []domain.Category{leaf("filtry", "4030"), leaf("oswietlenie", "4029")})
	require.NoError(t, err)

	assert.Equal(t, []string{"12"}, productIDs(res.Products))
	assert.Equal(t, []string{"4030#2", "4030#3"}, f.client.listingCalls)
}

func TestPipeline_FreshRunClearsSavedProgress(t *testing.T) {
	cfg := productsConfig()
	cfg.Resume = false
	f := newPipelineFixture(cfg)
	ctx := context.Background()
	f.client.addListing("4029", 1, "21")
	f.client.failListing("4030", 1, exhausted(categoryURL("filtry", "4030")+"?p=1"))
	require.NoError(t, f.state.SetLastProcessedPage(ctx, "4030", 5))
	require.NoError(t, f.state.MarkCategoryDone(ctx, "4030"))
	require.NoError(t, f.state.MarkCategoryDone(ctx, "4029"))

	res, err := f.pipeline.Run(ctx, []domain.Category{leaf("filtry", "4030"), leaf("oswietlenie", "4029")})
	require.NoError(t, err)
	assert.Equal(t, []string{"21"}, productIDs(res.Products))
	assert.Equal(t, []string{"4030#1", "4029#1", "4029#2"}, f.client.listingCalls)

	done, err := f.state.IsCategoryDone(ctx, "4030")
	require.NoError(t, err)
	assert.False(t, done)
	last, err := f.state.GetLastProcessedPage(ctx, "4030")
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestPipeline_Cancellation(t *testing.T) {
	f := newPipelineFixture(productsConfig())
	f.client.addListing("4030", 1, "11", "12", "13")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sleeps.cancel = cancel
	f.sleeps.after = 1

	res, err := f.pipeline.Run(ctx, []domain.Category{leaf("filtry", "4030")})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	// The product fetched before cancelling is still emitted.
	assert.Equal(t, []string{"11"}, productIDs(res.Products))
	assert.Len(t, f.sink.Products(), 1)
	assert.Empty(t, f.queue.tasks)
}

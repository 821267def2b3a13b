package service

import (
	"context"
	"time"

	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/export"
	"autoriven/scraper/internal/queue"

	log "github.com/sirupsen/logrus"
)

// Service runs the three jobs of the scraper: category discovery, product
// scraping and retry draining. Each run is exported when an export writer
// is set.
type Service struct {
	crawler        *Crawler
	pipeline       *ProductPipeline
	queue          queue.Queue
	exporter       *export.Writer
	rootURL        string
	minIdleTime    time.Duration
	maxTaskRetries int
}

func NewService(
	crawler *Crawler,
	pipeline *ProductPipeline,
	queue queue.Queue,
	exporter *export.Writer,
	rootURL string,
	minIdleTime int,
	maxTaskRetries int,
) *Service {
	if maxTaskRetries < 1 {
		maxTaskRetries = 1
	}
	return &Service{
		crawler:        crawler,
		pipeline:       pipeline,
		queue:          queue,
		exporter:       exporter,
		rootURL:        rootURL,
		minIdleTime:    time.Duration(minIdleTime) * time.Second,
		maxTaskRetries: maxTaskRetries,
	}
}

// CrawlCategories discovers the tree below the configured root. A partial
// result from a cancelled crawl is still exported.
func (s *Service) CrawlCategories(ctx context.Context) (*CrawlResult, error) {
	start := time.Now()
	result, err := s.crawler.Crawl(ctx, s.rootURL)
	if result != nil {
		s.export(export.KindCategories, start, result.Categories, nil)
		for depth, count := range result.LevelBreakdown() {
			log.Infof("📊 Depth %d: %d categories", depth, count)
		}
	}
	return result, err
}

// ScrapeProducts scrapes the offers of the given leaves.
func (s *Service) ScrapeProducts(ctx context.Context, leaves []domain.Category) (*PipelineResult, error) {
	start := time.Now()
	result, err := s.pipeline.Run(ctx, leaves)
	if result != nil {
		s.export(export.KindProducts, start, leaves, result.Products)
	}
	return result, err
}

func (s *Service) export(kind string, start time.Time, categories []domain.Category, products []domain.Product) {
	if s.exporter == nil {
		return
	}
	if _, err := s.exporter.Write(kind, export.NewDocument(start, categories, products)); err != nil {
		log.Errorf("❌ Failed to export %s: %v", kind, err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autoriven/scraper/internal/domain"
	"autoriven/scraper/internal/domain/task"
	"autoriven/scraper/internal/export"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var ErrQueueDisabled = errors.New("retry queue is not configured")

// RetryReport summarizes one DrainRetries call.
type RetryReport struct {
	Processed int // Messages handled, including re-queued ones
	Recovered int // Items scraped successfully on retry
	Requeued  int
	Dropped   int // Gave up after products.max_task_retries
	Products  []domain.Product
}

// DrainRetries consumes both retry streams until they stay idle for one read
// block. Messages left pending by a crashed consumer are claimed first.
func (s *Service) DrainRetries(ctx context.Context) (*RetryReport, error) {
	if s.queue == nil {
		return nil, ErrQueueDisabled
	}
	if err := s.pipeline.reseed(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &RetryReport{}
	consumer := "drain-" + uuid.NewString()

	for _, taskType := range task.Types {
		stream := s.queue.StreamName(taskType)
		log.Infof("🔄 Draining %s", stream)

		for {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			msg, err := s.nextMessage(ctx, consumer, stream)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				return report, err
			}
			if msg == nil {
				break
			}

			if err := s.processMessage(ctx, msg, report); err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
			}
			if err := s.queue.AckTask(ctx, stream, s.queue.Group(), msg.ID); err != nil {
				log.Errorf("❌ Failed to ack message %s: %v", msg.ID, err)
			}
			report.Processed++
		}
	}

	log.Infof("✅ Retry queue drained: %d processed, %d recovered, %d re-queued, %d dropped",
		report.Processed, report.Recovered, report.Requeued, report.Dropped)
	if len(report.Products) > 0 {
		s.export(export.KindRetries, start, nil, report.Products)
	}
	return report, nil
}

func (s *Service) nextMessage(ctx context.Context, consumer, stream string) (*redis.XMessage, error) {
	claimed, err := s.queue.AutoClaim(ctx, s.queue.Group(), consumer, stream, s.minIdleTime)
	if err != nil {
		return nil, err
	}
	if len(claimed) > 0 {
		log.Infof("🔄 Auto-claimed message %s from %s", claimed[0].ID, stream)
		return &claimed[0], nil
	}
	return s.queue.GetTask(ctx, s.queue.Group(), consumer, stream)
}

func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage, report *RetryReport) error {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	switch taskType {
	case task.TypeProductRetry:
		retryTask, err := task.UnmarshalTask[*task.ProductRetryTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal product retry task: %w", err)
		}
		return s.retryProduct(ctx, retryTask, report)

	case task.TypePageRetry:
		retryTask, err := task.UnmarshalTask[*task.PageRetryTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal page retry task: %w", err)
		}
		return s.retryPage(ctx, retryTask, report)

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (s *Service) retryProduct(ctx context.Context, retryTask *task.ProductRetryTask, report *RetryReport) error {
	retryTask.RetryCount++
	log.Infof("🔄 Retrying product %s (attempt %d)", retryTask.ProductURL, retryTask.RetryCount)

	product, err := s.pipeline.scrapeProduct(ctx, retryTask.CategoryNaturalID, retryTask.ProductURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		retryTask.Error = err.Error()
		return s.requeue(ctx, retryTask, retryTask.RetryCount, report)
	}

	result := &PipelineResult{}
	s.pipeline.emitBatch(ctx, []domain.Product{*product}, result)
	report.Products = append(report.Products, result.Products...)
	report.Recovered++
	log.Infof("✅ Recovered product %s after %d attempts", product.NaturalID, retryTask.RetryCount)
	return nil
}

func (s *Service) retryPage(ctx context.Context, retryTask *task.PageRetryTask, report *RetryReport) error {
	retryTask.RetryCount++
	log.Infof("🔄 Retrying page %d of %s (attempt %d)", retryTask.PageNumber, retryTask.CategoryNaturalID, retryTask.RetryCount)

	leaf := domain.Category{NaturalID: retryTask.CategoryNaturalID, SourceURL: retryTask.CategoryURL}
	listing, err := s.pipeline.fetchListing(ctx, leaf, retryTask.PageNumber)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		retryTask.Error = err.Error()
		return s.requeue(ctx, retryTask, retryTask.RetryCount, report)
	}

	result := &PipelineResult{}
	n, err := s.pipeline.scrapeListing(ctx, leaf, listing, s.pipeline.cfg.MaxPerCategory, result)
	if err == nil && len(listing.ProductURLs) > 0 {
		// The category walk stopped at this page; finish it.
		err = s.pipeline.walk(ctx, leaf, retryTask.PageNumber+1, n, result)
	}
	report.Products = append(report.Products, result.Products...)
	if err != nil {
		return err
	}
	report.Recovered++
	log.Infof("✅ Recovered page %d of %s with %d products", retryTask.PageNumber, retryTask.CategoryNaturalID, len(result.Products))
	return nil
}

func (s *Service) requeue(ctx context.Context, t task.Task, attempts int, report *RetryReport) error {
	if attempts >= s.maxTaskRetries {
		report.Dropped++
		log.Warnf("🗑️ Giving up on %s after %d attempts", t.TaskType(), attempts)
		return nil
	}
	if _, err := s.queue.AddTask(ctx, t); err != nil {
		return fmt.Errorf("failed to re-add %s: %w", t.TaskType(), err)
	}
	report.Requeued++
	log.Warnf("🔄 %s failed again, will retry (attempt %d)", t.TaskType(), attempts)
	return nil
}

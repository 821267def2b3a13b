package service

import (
	"context"
	"testing"
	"time"

	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/domain/task"
	"autoriven/scraper/internal/export"
	"autoriven/scraper/internal/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetryService(t *testing.T, maxRetries int) (*Service, *pipelineFixture, *queue.RedisQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q, err := queue.NewRedisQueue(context.Background(), rdb, config.RedisConfig{
		ConsumerGroup: "test_group",
		ReadBlock:     20 * time.Millisecond,
	})
	require.NoError(t, err)

	f := newPipelineFixture(productsConfig())
	f.pipeline.queue = q
	svc := NewService(nil, f.pipeline, q, export.NewWriter(t.TempDir()), "", 60, maxRetries)
	return svc, f, q, rdb
}

func TestDrainRetries_RecoversProduct(t *testing.T) {
	ctx := context.Background()
	svc, f, q, _ := newRetryService(t, 3)
	f.client.addListing("4030", 1, "11")

	_, err := q.AddTask(ctx, &task.ProductRetryTask{ProductURL: offerURL("11"), CategoryNaturalID: "4030", Error: "HTTP 503"})
	require.NoError(t, err)

	report, err := svc.DrainRetries(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Recovered)
	require.Len(t, report.Products, 1)
	assert.Equal(t, "4030", report.Products[0].CategoryNaturalID)
	_, ok := f.sink.Product("11")
	assert.True(t, ok)
}

func TestDrainRetries_RequeuesThenDrops(t *testing.T) {
	ctx := context.Background()
	svc, f, q, rdb := newRetryService(t, 2)
	f.client.productErrs[offerURL("99")] = exhausted(offerURL("99"))

	_, err := q.AddTask(ctx, &task.ProductRetryTask{ProductURL: offerURL("99"), CategoryNaturalID: "4030"})
	require.NoError(t, err)

	report, err := svc.DrainRetries(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Requeued)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 0, report.Recovered)
	assert.Len(t, f.client.productCalls, 2)

	pending, err := rdb.XPending(ctx, q.StreamName(task.TypeProductRetry), q.Group()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestDrainRetries_PageRetryFinishesCategory(t *testing.T) {
	ctx := context.Background()
	svc, f, q, _ := newRetryService(t, 3)
	f.client.addListing("4030", 2, "12")
	f.client.addListing("4030", 3, "13")

	_, err := q.AddTask(ctx, &task.PageRetryTask{
		CategoryNaturalID: "4030",
		CategoryURL:       categoryURL("filtry", "4030"),
		PageNumber:        2,
	})
	require.NoError(t, err)

	report, err := svc.DrainRetries(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Recovered)
	assert.Equal(t, []string{"12", "13"}, productIDs(report.Products))
	assert.Equal(t, []string{"4030#2", "4030#3", "4030#4"}, f.client.listingCalls)

	done, err := f.state.IsCategoryDone(ctx, "4030")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestDrainRetries_WithoutQueue(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, "", 60, 3)
	_, err := svc.DrainRetries(context.Background())
	assert.ErrorIs(t, err, ErrQueueDisabled)
}

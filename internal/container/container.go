package container

import (
	"context"
	"errors"
	"fmt"

	"autoriven/scraper/internal/client"
	"autoriven/scraper/internal/config"
	"autoriven/scraper/internal/export"
	"autoriven/scraper/internal/proxy"
	"autoriven/scraper/internal/queue"
	"autoriven/scraper/internal/repository"
	"autoriven/scraper/internal/service"
	"autoriven/scraper/internal/state"
	"autoriven/scraper/internal/translate"
	"autoriven/scraper/internal/transport"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Transport    *transport.Transport
	Client       client.CatalogClient
	Sink         repository.Sink
	Records      *repository.MemorySink
	Queue        queue.Queue // nil when Redis is disabled
	StateManager state.StateManager

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized. Postgres
// and Redis are only connected when enabled in the configuration.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	proxySupplier, err := proxy.NewSupplier(ctx, cfg.Scraper.Proxies, proxy.Options{
		AllowDirect: cfg.Scraper.AllowDirect,
		Validate:    cfg.Scraper.ValidateProxies,
		TestURL:     cfg.Scraper.BaseURL,
		Timeout:     cfg.Scraper.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}
	log.Infof("🔗 Using %d proxies", proxySupplier.Len())

	container.Transport = transport.New(cfg.Scraper, proxySupplier)
	container.Client = client.NewCatalogClient(container.Transport, cfg.Products.PageParam)

	container.Records = repository.NewMemorySink()
	sinks := []repository.Sink{container.Records}
	if cfg.Database.Enabled {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		container.db = db
		if err := db.Ping(ctx); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("✅ Connected to Postgres successfully")
		sinks = append(sinks, repository.NewPostgresSink(db))
	}
	container.Sink = repository.FanOut(sinks...)

	container.StateManager = state.NewMemoryStateManager()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		container.redis = rdb

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis)
		if err != nil {
			container.Close()
			return nil, err
		}
		container.Queue = redisQueue
		container.StateManager = state.NewRedisStateManager(rdb)
	}

	translator := translate.New(nil)

	crawler := service.NewCrawler(container.Client, container.Sink, translator, proxySupplier, cfg.Crawl)
	pipeline := service.NewProductPipeline(
		container.Client,
		container.Sink,
		translator,
		container.Queue,
		container.StateManager,
		cfg.Products,
	)

	container.Service = service.NewService(
		crawler,
		pipeline,
		container.Queue,
		export.NewWriter(cfg.Export.Dir),
		cfg.Crawl.RootURL,
		cfg.Redis.MinIdleTime,
		cfg.Products.MaxTaskRetries,
	)

	return container, nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Debug("Shutting down container...")

	var errs []error
	if c.Transport != nil {
		errs = append(errs, c.Transport.Close())
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}

	log.Debug("Container shut down successfully")
	return errors.Join(errs...)
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Products ProductsConfig `mapstructure:"products"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	Export   ExportConfig   `mapstructure:"export"`
}

// ScraperConfig holds transport configuration shared by every fetch
type ScraperConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	Proxies              []string      `mapstructure:"proxies"`
	AllowDirect          bool          `mapstructure:"allow_direct"`     // Fetch without a proxy when none are configured
	ValidateProxies      bool          `mapstructure:"validate_proxies"` // Check proxies on startup and drop dead ones
	UserAgent            string        `mapstructure:"user_agent"`       // Overrides the fingerprint pool when set
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxAttempts          int           `mapstructure:"max_attempts"`
	BaseDelay            time.Duration `mapstructure:"base_delay"`
	MaxJitter            time.Duration `mapstructure:"max_jitter"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	IsolateSessions      bool          `mapstructure:"isolate_sessions"`
	InsecureSkipVerify   bool          `mapstructure:"insecure_skip_verify"`
	BlockMarkers         []string      `mapstructure:"block_markers"` // Body substrings that indicate a block page
}

// CrawlConfig holds category tree crawl configuration
type CrawlConfig struct {
	RootURL     string        `mapstructure:"root_url"`
	MaxDepth    int           `mapstructure:"max_depth"`
	RootDepth   int           `mapstructure:"root_depth"`
	MaxNodes    int           `mapstructure:"max_nodes"` // 0 means unbounded
	Delay       time.Duration `mapstructure:"delay"`
	Concurrency int           `mapstructure:"concurrency"`
}

// ProductsConfig holds product pipeline configuration
type ProductsConfig struct {
	MaxPerCategory int           `mapstructure:"max_per_category"` // 0 means unbounded
	ProductDelay   time.Duration `mapstructure:"product_delay"`
	PageDelay      time.Duration `mapstructure:"page_delay"`
	PageParam      string        `mapstructure:"page_param"`
	Currency       string        `mapstructure:"currency"` // Used when the page does not state one
	Resume         bool          `mapstructure:"resume"`
	MaxTaskRetries int           `mapstructure:"max_task_retries"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN returns the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Password      string        `mapstructure:"password"`
	Database      int           `mapstructure:"database"`
	ConsumerGroup string        `mapstructure:"consumer_group"`
	MinIdleTime   int           `mapstructure:"min_idle_time"` // Seconds before a pending task may be claimed
	ReadBlock     time.Duration `mapstructure:"read_block"`    // How long a worker waits for a new task
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // Empty disables the metrics endpoint
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from config.yaml in the working directory
// (optional) with environment variable overrides.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from the given file, or searches the default
// locations when path is empty.
func LoadFile(path string) (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.Scraper.Proxies = splitList(config.Scraper.Proxies)
	config.Scraper.BlockMarkers = splitList(config.Scraper.BlockMarkers)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks the values that would make a run meaningless.
func (c *Config) Validate() error {
	if c.Scraper.BaseURL == "" {
		return errors.New("scraper.base_url is required")
	}
	if c.Scraper.MaxAttempts < 1 {
		return fmt.Errorf("scraper.max_attempts must be at least 1, got %d", c.Scraper.MaxAttempts)
	}
	if c.Scraper.BaseDelay < 0 || c.Scraper.MaxJitter < 0 {
		return errors.New("scraper retry delays must not be negative")
	}
	if c.Crawl.MaxDepth < c.Crawl.RootDepth {
		return fmt.Errorf("crawl.max_depth (%d) must not be below crawl.root_depth (%d)", c.Crawl.MaxDepth, c.Crawl.RootDepth)
	}
	if c.Crawl.Concurrency < 1 {
		return fmt.Errorf("crawl.concurrency must be at least 1, got %d", c.Crawl.Concurrency)
	}
	if c.Products.PageParam == "" {
		return errors.New("products.page_param is required")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// splitList accepts both YAML lists and comma or whitespace separated
// environment values.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '\t'
		}) {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.base_url", "https://allegro.pl")
	v.SetDefault("scraper.proxies", []string{})
	v.SetDefault("scraper.allow_direct", false)
	v.SetDefault("scraper.validate_proxies", false)
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.timeout", 60*time.Second)
	v.SetDefault("scraper.max_attempts", 3)
	v.SetDefault("scraper.base_delay", 2*time.Second)
	v.SetDefault("scraper.max_jitter", time.Second)
	v.SetDefault("scraper.max_requests_per_second", 2)
	v.SetDefault("scraper.isolate_sessions", true)
	v.SetDefault("scraper.insecure_skip_verify", false)
	v.SetDefault("scraper.block_markers", []string{"captcha-delivery", "Przepraszamy, wystąpił problem"})

	v.SetDefault("crawl.root_url", "https://allegro.pl/kategoria/czesci-samochodowe-620")
	v.SetDefault("crawl.max_depth", 4)
	v.SetDefault("crawl.root_depth", 1)
	v.SetDefault("crawl.max_nodes", 0)
	v.SetDefault("crawl.delay", 1500*time.Millisecond)
	v.SetDefault("crawl.concurrency", 1)

	v.SetDefault("products.max_per_category", 0)
	v.SetDefault("products.product_delay", time.Second)
	v.SetDefault("products.page_delay", 3*time.Second)
	v.SetDefault("products.page_param", "p")
	v.SetDefault("products.currency", "PLN")
	v.SetDefault("products.resume", true)
	v.SetDefault("products.max_task_retries", 3)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "autoriven")
	v.SetDefault("database.user", "autoriven")
	v.SetDefault("database.password", "autoriven")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "scraper_consumer")
	v.SetDefault("redis.min_idle_time", 120)
	v.SetDefault("redis.read_block", 5*time.Second)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("export.dir", "./exports")
}

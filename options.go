package assetlink

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	issues *IssueTrackerConfig
	pages  *ContentServiceConfig

	cloudEmail    string
	cloudAPIToken string

	fields          []SearchField
	displayPatterns []string

	cacheDriver   string // "memory" or "redis"
	redisAddrs    []string
	redisPassword string
	cacheTTL      time.Duration

	timeout time.Duration
	logger  *zap.Logger
}

// WithIssueTracker configures the Jira-compatible service.
// Without this option issue searches return empty results.
func WithIssueTracker(cfg IssueTrackerConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.issues = &cfg
	})
}

// WithContentService configures the Confluence-compatible service.
// Without this option page searches return empty results.
func WithContentService(cfg ContentServiceConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.pages = &cfg
	})
}

// WithCloud switches both services to cloud-deployment authentication,
// sending the account email and API token as basic credentials.
func WithCloud(email, apiToken string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cloudEmail = email
		c.cloudAPIToken = apiToken
	})
}

// WithSearchFields replaces the default search fields.
// Defaults: hostname and serial enabled; asset tag, role and primary IP disabled.
func WithSearchFields(fields ...SearchField) Option {
	return optionFunc(func(c *clientConfig) {
		c.fields = fields
	})
}

// WithDisplayPatterns gates ShouldDisplay by manufacturer. Each pattern is a
// case-insensitive regex; patterns that fail to compile match as plain
// substrings instead.
func WithDisplayPatterns(patterns ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.displayPatterns = patterns
	})
}

// WithMemoryCache caches results in process memory (default, TTL 5 minutes).
func WithMemoryCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "memory"
		c.cacheTTL = ttl
	})
}

// WithRedisCache caches results in Redis.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.redisAddrs = []string{addr}
		c.redisPassword = password
		c.cacheTTL = ttl
	})
}

// WithTimeout sets the per-service HTTP timeout. Default: 30 seconds.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

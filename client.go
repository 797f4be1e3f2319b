// Package assetlink finds issues and wiki pages related to inventory
// records by querying Jira- and Confluence-compatible services with terms
// resolved from the records' attributes.
package assetlink

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/assetlink-cloud/assetlink/internal/cache"
	cacheMemory "github.com/assetlink-cloud/assetlink/internal/cache/memory"
	cacheRedis "github.com/assetlink-cloud/assetlink/internal/cache/redis"
	"github.com/assetlink-cloud/assetlink/internal/domain"
	"github.com/assetlink-cloud/assetlink/internal/transport/atlassian"
	aggregateuc "github.com/assetlink-cloud/assetlink/internal/usecase/aggregate"
)

const (
	defaultCacheTTL = 5 * time.Minute
	defaultTimeout  = 30 * time.Second
)

// Client is the assetlink SDK entry point.
type Client struct {
	issues  *atlassian.JiraClient
	pages   *atlassian.ConfluenceClient
	related *aggregateuc.Service
	closeFn func()
}

// New creates a Client. Services left unconfigured are skipped silently
// during aggregation, so a client with neither service still works.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		cacheDriver: "memory",
		cacheTTL:    defaultCacheTTL,
		timeout:     defaultTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.cacheTTL <= 0 {
		cfg.cacheTTL = defaultCacheTTL
	}

	var (
		store   cache.Store
		closeFn func()
	)
	switch cfg.cacheDriver {
	case "memory":
		store = cacheMemory.NewStore()
		closeFn = func() {}
	case "redis":
		redisStore, err := cacheRedis.NewStore(cacheRedis.Config{
			Addrs:    cfg.redisAddrs,
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("assetlink: create redis cache store: %w", err)
		}
		store = redisStore
		closeFn = redisStore.Close
	default:
		return nil, fmt.Errorf("assetlink: unknown cache driver %q", cfg.cacheDriver)
	}

	issues := atlassian.NewJira(jiraConfig(cfg, logger))
	pages := atlassian.NewConfluence(confluenceConfig(cfg, logger))

	fields := cfg.fields
	if len(fields) == 0 {
		fields = defaultSearchFields()
	}
	domFields := make([]domain.SearchField, len(fields))
	for i, f := range fields {
		domFields[i] = domain.SearchField{Name: f.Name, Attribute: f.Attribute, Enabled: f.Enabled}
	}

	resultCache := cache.New(store, cfg.cacheTTL, nil, logger)
	related := aggregateuc.New(issues, pages, resultCache, domFields, logger).
		WithDisplayPatterns(cfg.displayPatterns)

	return &Client{
		issues:  issues,
		pages:   pages,
		related: related,
		closeFn: closeFn,
	}, nil
}

// Close releases the cache store resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Related resolves the record's search terms and fetches matching issues
// and pages. A failure on one service yields an empty list and an error
// detail for that side only; the call itself still succeeds.
func (c *Client) Related(ctx context.Context, rec Record) (Combined, error) {
	combined, err := c.related.Related(ctx, domain.Record{
		Kind:       rec.Kind,
		ID:         rec.ID,
		Attributes: rec.Attributes,
	})
	if err != nil {
		return Combined{}, fmt.Errorf("related: %w", err)
	}
	return fromCombined(combined), nil
}

// ShouldDisplay reports whether the record warrants a related panel: its
// manufacturer matches the configured display patterns (when both are
// present) and at least one search term resolves.
func (c *Client) ShouldDisplay(rec Record) bool {
	return c.related.ShouldDisplay(domain.Record{
		Kind:       rec.Kind,
		ID:         rec.ID,
		Attributes: rec.Attributes,
	})
}

// Fields returns the configured search fields.
func (c *Client) Fields() []SearchField {
	domFields := c.related.Fields()
	fields := make([]SearchField, len(domFields))
	for i, f := range domFields {
		fields[i] = SearchField{Name: f.Name, Attribute: f.Attribute, Enabled: f.Enabled}
	}
	return fields
}

// TestIssueTracker probes the issue tracker and returns a diagnostic detail.
func (c *Client) TestIssueTracker(ctx context.Context) (bool, string) {
	return c.issues.TestConnection(ctx)
}

// TestContentService probes the content service and returns a diagnostic detail.
func (c *Client) TestContentService(ctx context.Context) (bool, string) {
	return c.pages.TestConnection(ctx)
}

func defaultSearchFields() []SearchField {
	return []SearchField{
		{Name: "Hostname", Attribute: "name", Enabled: true},
		{Name: "Serial", Attribute: "serial", Enabled: true},
		{Name: "Asset Tag", Attribute: "asset_tag", Enabled: false},
		{Name: "Role", Attribute: "role.name", Enabled: false},
		{Name: "Primary IP", Attribute: "primary_ip4.address", Enabled: false},
	}
}

func jiraConfig(cfg *clientConfig, logger *zap.Logger) atlassian.JiraConfig {
	out := atlassian.JiraConfig{}
	if cfg.issues != nil {
		out = atlassian.JiraConfig{
			ClientConfig: transportConfig(cfg.issues.ServiceConfig, cfg, logger),
			Projects:     cfg.issues.Projects,
			IssueTypes:   cfg.issues.IssueTypes,
			MaxResults:   cfg.issues.MaxResults,
		}
	}
	return out
}

func confluenceConfig(cfg *clientConfig, logger *zap.Logger) atlassian.ConfluenceConfig {
	out := atlassian.ConfluenceConfig{}
	if cfg.pages != nil {
		out = atlassian.ConfluenceConfig{
			ClientConfig: transportConfig(cfg.pages.ServiceConfig, cfg, logger),
			Spaces:       cfg.pages.Spaces,
			MaxResults:   cfg.pages.MaxResults,
		}
	}
	return out
}

func transportConfig(svc ServiceConfig, cfg *clientConfig, logger *zap.Logger) atlassian.ClientConfig {
	return atlassian.ClientConfig{
		BaseURL:                svc.URL,
		Username:               svc.Username,
		Password:               svc.Password,
		Token:                  svc.Token,
		UseCloud:               cfg.cloudEmail != "" && cfg.cloudAPIToken != "",
		CloudEmail:             cfg.cloudEmail,
		CloudAPIToken:          cfg.cloudAPIToken,
		SkipTLSVerify:          svc.InsecureSkipVerify,
		LegacyTLSRenegotiation: svc.LegacyTLSRenegotiation,
		Timeout:                cfg.timeout,
		Logger:                 logger,
	}
}

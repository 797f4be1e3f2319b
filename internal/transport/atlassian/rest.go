// Package atlassian wraps the Jira and Confluence REST APIs behind the
// aggregator's search contract. Both clients share the same connection
// plumbing: credential selection, TLS compatibility toggles, per-call
// timeout, and typed error classification at the client boundary.
package atlassian

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/assetlink-cloud/assetlink/internal/domain"
	"github.com/assetlink-cloud/assetlink/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// ClientConfig holds the connection settings shared by both services.
type ClientConfig struct {
	BaseURL string

	// On-prem credentials. A personal access token takes precedence over
	// basic username/password when both are set.
	Username string
	Password string
	Token    string

	// Cloud deployments authenticate with account email + API token as
	// basic credentials for both services.
	UseCloud      bool
	CloudEmail    string
	CloudAPIToken string

	// SkipTLSVerify disables certificate verification for this service only.
	SkipTLSVerify bool
	// LegacyTLSRenegotiation permits mid-session renegotiation requested by
	// older servers that modern TLS defaults reject.
	LegacyTLSRenegotiation bool

	Timeout time.Duration
	Logger  *zap.Logger
}

// connection is the shared REST plumbing for one service.
type conn struct {
	service string // metric label: "jira" / "confluence"
	baseURL string
	cfg     ClientConfig
	http    *http.Client
	logger  *zap.Logger
}

func newConn(service string, cfg ClientConfig) *conn {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec // per-service operator toggle
	}
	if cfg.LegacyTLSRenegotiation {
		tlsCfg.Renegotiation = tls.RenegotiateFreelyAsClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &conn{
		service: service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		logger:  logger,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: tlsCfg,
			},
		},
	}
}

func (c *conn) configured() bool { return c.baseURL != "" }

func (c *conn) hasCredentials() bool {
	if c.cfg.UseCloud {
		return c.cfg.CloudEmail != "" && c.cfg.CloudAPIToken != ""
	}
	return c.cfg.Token != "" || c.cfg.Username != ""
}

// getJSON issues an authenticated GET and decodes the JSON response into out.
// Failures come back as one of the domain service error kinds; they never
// escape the client boundary untyped.
func (c *conn) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(c.service).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := c.classifyTransport(err)
		metrics.UpstreamRequestsTotal.WithLabelValues(c.service, "error").Inc()
		metrics.UpstreamErrorsTotal.WithLabelValues(c.service, errorLabel(kind)).Inc()
		return fmt.Errorf("%s request: %v: %w", c.service, err, kind)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		metrics.UpstreamRequestsTotal.WithLabelValues(c.service, "error").Inc()
		metrics.UpstreamErrorsTotal.WithLabelValues(c.service, errorLabel(domain.ErrServiceAuth)).Inc()
		return fmt.Errorf("%s returned status %d: %w", c.service, resp.StatusCode, domain.ErrServiceAuth)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequestsTotal.WithLabelValues(c.service, "error").Inc()
		metrics.UpstreamErrorsTotal.WithLabelValues(c.service, errorLabel(domain.ErrServiceResponse)).Inc()
		return fmt.Errorf("%s returned status %d: %w", c.service, resp.StatusCode, domain.ErrServiceResponse)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(c.service, "error").Inc()
		metrics.UpstreamErrorsTotal.WithLabelValues(c.service, errorLabel(domain.ErrServiceResponse)).Inc()
		return fmt.Errorf("%s read body: %v: %w", c.service, err, domain.ErrServiceResponse)
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(c.service, "error").Inc()
		metrics.UpstreamErrorsTotal.WithLabelValues(c.service, errorLabel(domain.ErrServiceResponse)).Inc()
		return fmt.Errorf("%s decode response: %v: %w", c.service, err, domain.ErrServiceResponse)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(c.service, "success").Inc()
	return nil
}

// authorize selects the credential mode. PAT bearer wins over basic auth.
func (c *conn) authorize(req *http.Request) {
	switch {
	case c.cfg.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	case c.cfg.UseCloud:
		req.SetBasicAuth(c.cfg.CloudEmail, c.cfg.CloudAPIToken)
	case c.cfg.Username != "":
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
}

func (c *conn) classifyTransport(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ErrServiceTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrServiceTimeout
	}
	return domain.ErrServiceUnreachable
}

func errorLabel(kind error) string {
	switch {
	case errors.Is(kind, domain.ErrServiceAuth):
		return "auth"
	case errors.Is(kind, domain.ErrServiceTimeout):
		return "timeout"
	case errors.Is(kind, domain.ErrServiceUnreachable):
		return "unreachable"
	default:
		return "response"
	}
}

// capResults enforces the hard result cap and de-duplicates by id, first
// appearance winning, for stable display order.
func capResults(results []domain.Result, maxResults int) []domain.Result {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
		if len(out) == maxResults {
			break
		}
	}
	return out
}

// inAllowlist reports whether id passes the allowlist. An empty allowlist
// means unrestricted.
func inAllowlist(allow []string, id string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if strings.EqualFold(a, id) {
			return true
		}
	}
	return false
}

// quoteTerm escapes a term for embedding in a quoted JQL/CQL literal.
func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `\"`) + `"`
}

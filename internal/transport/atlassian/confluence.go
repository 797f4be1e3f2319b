package atlassian

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/assetlink-cloud/assetlink/internal/domain"
)

const (
	confluenceSearchPath = "/rest/api/content/search"
	confluenceUserPath   = "/rest/api/user/current"

	confluenceExpand = "space,version,ancestors"
)

// ConfluenceConfig holds content service settings.
type ConfluenceConfig struct {
	ClientConfig

	// Spaces restricts the search to the listed space keys; empty means
	// unrestricted.
	Spaces     []string
	MaxResults int
}

// ConfluenceClient searches a Confluence-compatible content service.
type ConfluenceClient struct {
	conn       *conn
	spaces     []string
	maxResults int
}

// NewConfluence creates a content service client.
func NewConfluence(cfg ConfluenceConfig) *ConfluenceClient {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &ConfluenceClient{
		conn:       newConn("confluence", cfg.ClientConfig),
		spaces:     cfg.Spaces,
		maxResults: maxResults,
	}
}

// Configured reports whether a service URL is set.
func (c *ConfluenceClient) Configured() bool { return c.conn.configured() }

// Signature summarizes the settings that influence which results a search
// returns, for the cache key.
func (c *ConfluenceClient) Signature() string {
	return strings.Join([]string{
		c.conn.baseURL,
		strings.Join(c.spaces, ","),
		strconv.Itoa(c.maxResults),
	}, "|")
}

type confluencePage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"space"`
	Version struct {
		When string `json:"when"`
		By   struct {
			DisplayName string `json:"displayName"`
		} `json:"by"`
	} `json:"version"`
	Ancestors []struct {
		Title string `json:"title"`
	} `json:"ancestors"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

type confluenceSearchResponse struct {
	Results   []confluencePage `json:"results"`
	TotalSize int              `json:"totalSize"`
	Size      int              `json:"size"`
}

// Search runs one OR-combined CQL query for all terms, restricted to pages,
// and returns normalized results. The space allowlist and result cap are
// enforced client-side as well.
func (c *ConfluenceClient) Search(ctx context.Context, terms []string) (domain.ResultSet, error) {
	if !c.Configured() || len(terms) == 0 {
		return domain.ResultSet{}, nil
	}

	cql := c.buildCQL(terms)
	if cql == "" {
		return domain.ResultSet{}, nil
	}

	params := url.Values{}
	params.Set("cql", cql)
	params.Set("limit", strconv.Itoa(c.maxResults))
	params.Set("expand", confluenceExpand)

	var resp confluenceSearchResponse
	if err := c.conn.getJSON(ctx, confluenceSearchPath, params, &resp); err != nil {
		return domain.ResultSet{}, err
	}

	results := make([]domain.Result, 0, len(resp.Results))
	for _, page := range resp.Results {
		if page.ID == "" {
			continue
		}
		if !inAllowlist(c.spaces, page.Space.Key) {
			continue
		}
		results = append(results, c.normalize(page))
	}

	total := resp.TotalSize
	if total == 0 {
		total = resp.Size
	}

	return domain.ResultSet{
		Results: capResults(results, c.maxResults),
		Total:   total,
	}, nil
}

func (c *ConfluenceClient) normalize(page confluencePage) domain.Result {
	titles := make([]string, len(page.Ancestors))
	for i, a := range page.Ancestors {
		titles[i] = a.Title
	}

	return domain.Result{
		Source: domain.SourcePage,
		ID:     page.ID,
		Title:  page.Title,
		URL:    c.conn.baseURL + page.Links.WebUI,
		Extra: map[string]string{
			"space_key":        page.Space.Key,
			"space_name":       page.Space.Name,
			"last_modified":    page.Version.When,
			"last_modified_by": page.Version.By.DisplayName,
			"breadcrumb":       strings.Join(titles, " > "),
		},
	}
}

// buildCQL OR-joins one text clause per term, restricts to page content,
// then narrows by the configured space allowlist.
func (c *ConfluenceClient) buildCQL(terms []string) string {
	clauses := make([]string, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		clauses = append(clauses, "text ~ "+quoteTerm(term))
	}
	if len(clauses) == 0 {
		return ""
	}

	cql := fmt.Sprintf("(%s) AND type = page", strings.Join(clauses, " OR "))

	if len(c.spaces) > 0 {
		spaceClauses := make([]string, len(c.spaces))
		for i, s := range c.spaces {
			spaceClauses[i] = "space = " + quoteTerm(s)
		}
		cql = fmt.Sprintf("(%s) AND (%s)", cql, strings.Join(spaceClauses, " OR "))
	}

	return cql
}

// TestConnection verifies the URL, credentials, and API reachability.
func (c *ConfluenceClient) TestConnection(ctx context.Context) (bool, string) {
	if !c.Configured() {
		return false, "content service URL not configured"
	}
	if !c.conn.hasCredentials() {
		return false, "content service credentials not configured (need token or username/password)"
	}

	var me struct {
		DisplayName string `json:"displayName"`
		Username    string `json:"username"`
	}
	if err := c.conn.getJSON(ctx, confluenceUserPath, nil, &me); err != nil {
		return false, err.Error()
	}

	name := me.DisplayName
	if name == "" {
		name = me.Username
	}
	if name == "" {
		name = "unknown"
	}
	return true, "connected as " + name
}

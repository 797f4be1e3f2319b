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
	jiraSearchPath = "/rest/api/2/search"
	jiraMyselfPath = "/rest/api/2/myself"

	defaultMaxResults = 10

	jiraSearchFields = "summary,status,issuetype,priority,assignee,created,updated,project"
)

// JiraConfig holds issue tracker settings.
type JiraConfig struct {
	ClientConfig

	// Projects restricts the search to the listed project keys; empty means
	// unrestricted. IssueTypes restricts by issue type name the same way.
	Projects   []string
	IssueTypes []string
	MaxResults int
}

// JiraClient searches a Jira-compatible issue tracker.
type JiraClient struct {
	conn       *conn
	projects   []string
	issueTypes []string
	maxResults int
}

// NewJira creates an issue tracker client.
func NewJira(cfg JiraConfig) *JiraClient {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &JiraClient{
		conn:       newConn("jira", cfg.ClientConfig),
		projects:   cfg.Projects,
		issueTypes: cfg.IssueTypes,
		maxResults: maxResults,
	}
}

// Configured reports whether a service URL is set.
func (c *JiraClient) Configured() bool { return c.conn.configured() }

// Signature summarizes the settings that influence which results a search
// returns. It feeds the cache key, so any filter change invalidates entries.
func (c *JiraClient) Signature() string {
	return strings.Join([]string{
		c.conn.baseURL,
		strings.Join(c.projects, ","),
		strings.Join(c.issueTypes, ","),
		strconv.Itoa(c.maxResults),
	}, "|")
}

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name           string `json:"name"`
			StatusCategory struct {
				Key string `json:"key"`
			} `json:"statusCategory"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Priority *struct {
			Name string `json:"name"`
		} `json:"priority"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Created string `json:"created"`
		Updated string `json:"updated"`
		Project struct {
			Key  string `json:"key"`
			Name string `json:"name"`
		} `json:"project"`
	} `json:"fields"`
}

type jiraSearchResponse struct {
	Issues []jiraIssue `json:"issues"`
	Total  int         `json:"total"`
}

// Search runs one OR-combined JQL query for all terms and returns normalized
// issues, newest update first. The upstream combines the terms server-side;
// the project allowlist and result cap are still enforced client-side so a
// non-conforming upstream cannot leak results past the configuration.
func (c *JiraClient) Search(ctx context.Context, terms []string) (domain.ResultSet, error) {
	if !c.Configured() || len(terms) == 0 {
		return domain.ResultSet{}, nil
	}

	jql := c.buildJQL(terms)
	if jql == "" {
		return domain.ResultSet{}, nil
	}

	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("fields", jiraSearchFields)

	var resp jiraSearchResponse
	if err := c.conn.getJSON(ctx, jiraSearchPath, params, &resp); err != nil {
		return domain.ResultSet{}, err
	}

	results := make([]domain.Result, 0, len(resp.Issues))
	for _, issue := range resp.Issues {
		if issue.Key == "" {
			continue
		}
		if !inAllowlist(c.projects, issue.Fields.Project.Key) {
			continue
		}
		results = append(results, c.normalize(issue))
	}

	return domain.ResultSet{
		Results: capResults(results, c.maxResults),
		Total:   resp.Total,
	}, nil
}

func (c *JiraClient) normalize(issue jiraIssue) domain.Result {
	f := issue.Fields

	extra := map[string]string{
		"status":          f.Status.Name,
		"status_category": f.Status.StatusCategory.Key,
		"type":            f.IssueType.Name,
		"project":         f.Project.Name,
		"project_key":     f.Project.Key,
		"created":         f.Created,
		"updated":         f.Updated,
	}
	if f.Priority != nil {
		extra["priority"] = f.Priority.Name
	}
	if f.Assignee != nil {
		extra["assignee"] = f.Assignee.DisplayName
	} else {
		extra["assignee"] = "Unassigned"
	}

	return domain.Result{
		Source: domain.SourceIssue,
		ID:     issue.Key,
		Title:  f.Summary,
		URL:    c.conn.baseURL + "/browse/" + issue.Key,
		Extra:  extra,
	}
}

// buildJQL OR-joins one text clause per term, then narrows by the configured
// project and issue-type allowlists, newest update first.
func (c *JiraClient) buildJQL(terms []string) string {
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

	jql := strings.Join(clauses, " OR ")

	if len(c.projects) > 0 {
		projectClauses := make([]string, len(c.projects))
		for i, p := range c.projects {
			projectClauses[i] = "project = " + quoteTerm(p)
		}
		jql = fmt.Sprintf("(%s) AND (%s)", jql, strings.Join(projectClauses, " OR "))
	}

	if len(c.issueTypes) > 0 {
		typeClauses := make([]string, len(c.issueTypes))
		for i, t := range c.issueTypes {
			typeClauses[i] = "issuetype = " + quoteTerm(t)
		}
		jql = fmt.Sprintf("(%s) AND (%s)", jql, strings.Join(typeClauses, " OR "))
	}

	return jql + " ORDER BY updated DESC"
}

// TestConnection verifies the URL, credentials, and API reachability.
// It surfaces failure detail explicitly since its purpose is diagnostic.
func (c *JiraClient) TestConnection(ctx context.Context) (bool, string) {
	if !c.Configured() {
		return false, "issue tracker URL not configured"
	}
	if !c.conn.hasCredentials() {
		return false, "issue tracker credentials not configured (need token or username/password)"
	}

	var me struct {
		DisplayName string `json:"displayName"`
		Name        string `json:"name"`
	}
	if err := c.conn.getJSON(ctx, jiraMyselfPath, nil, &me); err != nil {
		return false, err.Error()
	}

	name := me.DisplayName
	if name == "" {
		name = me.Name
	}
	if name == "" {
		name = "unknown"
	}
	return true, "connected as " + name
}

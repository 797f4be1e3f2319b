package assetlink

import "github.com/assetlink-cloud/assetlink/internal/domain"

// Record is one inventory record to find related content for.
type Record struct {
	// Kind names the record type ("device", "virtual_machine", ...).
	Kind string
	// ID is the record identifier within its kind.
	ID string
	// Attributes is the record's document as decoded JSON. Nested objects
	// must be maps so dotted attribute paths can be walked.
	Attributes map[string]any
}

// Source identifies which service produced a result.
type Source string

const (
	// SourceIssue marks results from the issue tracker.
	SourceIssue Source = "issue"
	// SourcePage marks results from the content service.
	SourcePage Source = "page"
)

// Result is one normalized search result.
type Result struct {
	Source Source
	ID     string
	Title  string
	URL    string
	// Extra carries small per-service metadata (status, space, breadcrumb, ...).
	Extra map[string]string
}

// ServiceResult is one service's results plus delivery metadata.
type ServiceResult struct {
	Results []Result
	Total   int
	Cached  bool
	// Error holds the failure detail when this service's call failed.
	Error string
}

// Combined is the aggregated outcome for one record.
type Combined struct {
	Terms  []string
	Issues ServiceResult
	Pages  ServiceResult
}

// SearchField is one configured search field.
type SearchField struct {
	Name      string
	Attribute string
	Enabled   bool
}

// ServiceConfig holds connection settings shared by both services.
type ServiceConfig struct {
	URL      string
	Username string
	Password string
	// Token is a personal access token; it takes precedence over basic auth.
	Token                  string
	InsecureSkipVerify     bool
	LegacyTLSRenegotiation bool
	// MaxResults caps results per service. Default: 10.
	MaxResults int
}

// IssueTrackerConfig configures the Jira-compatible service.
type IssueTrackerConfig struct {
	ServiceConfig
	// Projects restricts the search to the listed project keys; empty means
	// unrestricted. IssueTypes restricts by issue type name the same way.
	Projects   []string
	IssueTypes []string
}

// ContentServiceConfig configures the Confluence-compatible service.
type ContentServiceConfig struct {
	ServiceConfig
	// Spaces restricts the search to the listed space keys; empty means
	// unrestricted.
	Spaces []string
}

func fromCombined(c domain.Combined) Combined {
	return Combined{
		Terms:  c.Terms,
		Issues: fromServiceResult(c.Issues),
		Pages:  fromServiceResult(c.Pages),
	}
}

func fromServiceResult(sr domain.ServiceResult) ServiceResult {
	results := make([]Result, len(sr.Results))
	for i, r := range sr.Results {
		results[i] = Result{
			Source: Source(r.Source),
			ID:     r.ID,
			Title:  r.Title,
			URL:    r.URL,
			Extra:  r.Extra,
		}
	}
	return ServiceResult{
		Results: results,
		Total:   sr.Total,
		Cached:  sr.Cached,
		Error:   sr.Error,
	}
}

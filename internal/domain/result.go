package domain

// Source identifies which external service produced a result.
type Source string

const (
	// SourceIssue marks results from the issue tracker.
	SourceIssue Source = "issue"
	// SourcePage marks results from the content service.
	SourcePage Source = "page"
)

// Result is the normalized shape shared by both services' search results.
// Extra carries small per-service metadata (status, space, breadcrumb, ...).
type Result struct {
	Source Source            `json:"source"`
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	URL    string            `json:"url"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// ResultSet is one service's search outcome. Total is the upstream match
// count, which may exceed len(Results) when the result cap applies.
type ResultSet struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

// ServiceResult is a ResultSet plus delivery metadata for one service.
type ServiceResult struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Cached  bool     `json:"cached"`
	// Error holds the failure detail when the service call failed.
	// The sibling service's results are unaffected.
	Error string `json:"error,omitempty"`
}

// Combined is the aggregated response for one record.
type Combined struct {
	Terms  []string      `json:"terms"`
	Issues ServiceResult `json:"issues"`
	Pages  ServiceResult `json:"pages"`
}

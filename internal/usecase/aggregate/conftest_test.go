package aggregate

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/assetlink-cloud/assetlink/internal/domain"
)

// mockClient implements the Client contract for tests.
type mockClient struct {
	configured bool
	signature  string
	searchFn   func(ctx context.Context, terms []string) (domain.ResultSet, error)
	testFn     func(ctx context.Context) (bool, string)

	searchCalls int
	lastTerms   []string
}

func (m *mockClient) Configured() bool { return m.configured }

func (m *mockClient) Search(ctx context.Context, terms []string) (domain.ResultSet, error) {
	m.searchCalls++
	m.lastTerms = terms
	if m.searchFn != nil {
		return m.searchFn(ctx, terms)
	}
	return domain.ResultSet{}, nil
}

func (m *mockClient) TestConnection(ctx context.Context) (bool, string) {
	if m.testFn != nil {
		return m.testFn(ctx)
	}
	return true, "connected"
}

func (m *mockClient) Signature() string { return m.signature }

// mockCache implements ResultCache with a plain map and no TTL.
type mockCache struct {
	entries map[string]domain.ResultSet
	keys    []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]domain.ResultSet)}
}

func (m *mockCache) GetOrFetch(
	ctx context.Context, key string,
	fetch func(ctx context.Context) (domain.ResultSet, error),
) (domain.ResultSet, bool, error) {
	m.keys = append(m.keys, key)
	if rs, ok := m.entries[key]; ok {
		return rs, true, nil
	}
	rs, err := fetch(ctx)
	if err != nil {
		return domain.ResultSet{}, false, err
	}
	m.entries[key] = rs
	return rs, false, nil
}

func defaultFields() []domain.SearchField {
	return []domain.SearchField{
		{Name: "Hostname", Attribute: "name", Enabled: true},
		{Name: "Serial", Attribute: "serial", Enabled: true},
		{Name: "Role", Attribute: "role.name", Enabled: false},
	}
}

func deviceRecord() domain.Record {
	return domain.Record{
		Kind: "device",
		ID:   "17",
		Attributes: map[string]any{
			"name":   "router-01",
			"serial": "SN999",
			"role":   map[string]any{"name": "core"},
		},
	}
}

func issueSet(ids ...string) domain.ResultSet {
	rs := domain.ResultSet{Total: len(ids)}
	for _, id := range ids {
		rs.Results = append(rs.Results, domain.Result{Source: domain.SourceIssue, ID: id, Title: id})
	}
	return rs
}

func pageSet(ids ...string) domain.ResultSet {
	rs := domain.ResultSet{Total: len(ids)}
	for _, id := range ids {
		rs.Results = append(rs.Results, domain.Result{Source: domain.SourcePage, ID: id, Title: id})
	}
	return rs
}

func newTestService(t *testing.T, issues, pages *mockClient, c ResultCache) *Service {
	t.Helper()
	return New(issues, pages, c, defaultFields(), zap.NewNop())
}

package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/assetlink-cloud/assetlink/internal/domain"
	aggregateuc "github.com/assetlink-cloud/assetlink/internal/usecase/aggregate"
	healthuc "github.com/assetlink-cloud/assetlink/internal/usecase/health"
)

// mockService implements both the aggregator's Client contract and the
// health service's ConnectionTester.
type mockService struct {
	configured bool
	searchFn   func(ctx context.Context, terms []string) (domain.ResultSet, error)
	testFn     func(ctx context.Context) (bool, string)
}

func (m *mockService) Configured() bool { return m.configured }

func (m *mockService) Search(ctx context.Context, terms []string) (domain.ResultSet, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, terms)
	}
	return domain.ResultSet{}, nil
}

func (m *mockService) TestConnection(ctx context.Context) (bool, string) {
	if m.testFn != nil {
		return m.testFn(ctx)
	}
	return true, "connected as tester"
}

func (m *mockService) Signature() string { return "mock" }

// mockPinger implements healthuc.StorePinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

var testFields = []domain.SearchField{
	{Name: "Hostname", Attribute: "name", Enabled: true},
	{Name: "Serial", Attribute: "serial", Enabled: true},
}

// newTestServer wires a Server with mock services behind a chi router.
func newTestServer(issues, pages *mockService, store *mockPinger) http.Handler {
	logger := zap.NewNop()
	related := aggregateuc.New(issues, pages, nil, testFields, logger)
	health := healthuc.New(store, issues, pages)
	srv := NewServer(related, health, issues, pages, 5*time.Second, logger)

	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

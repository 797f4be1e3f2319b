package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assetlink-cloud/assetlink/internal/domain"
)

func TestRelated_MergesBothServices(t *testing.T) {
	issues := &mockService{
		configured: true,
		searchFn: func(ctx context.Context, terms []string) (domain.ResultSet, error) {
			return domain.ResultSet{
				Results: []domain.Result{{Source: domain.SourceIssue, ID: "OPS-1", Title: "Switch down", URL: "https://jira/browse/OPS-1"}},
				Total:   1,
			}, nil
		},
	}
	pages := &mockService{
		configured: true,
		searchFn: func(ctx context.Context, terms []string) (domain.ResultSet, error) {
			return domain.ResultSet{
				Results: []domain.Result{{Source: domain.SourcePage, ID: "99", Title: "Runbook", URL: "https://wiki/pages/99"}},
				Total:   3,
			}, nil
		},
	}
	handler := newTestServer(issues, pages, &mockPinger{})

	body := `{"kind":"device","id":"17","attributes":{"name":"router-01","serial":"SN999"}}`
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, jsonRequest("POST", "/v1/related", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp relatedResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Display {
		t.Error("expected display=true without configured patterns")
	}
	if len(resp.Terms) != 2 {
		t.Errorf("terms: got %v, want [router-01 SN999]", resp.Terms)
	}
	if len(resp.Issues.Results) != 1 || resp.Issues.Results[0].ID != "OPS-1" {
		t.Errorf("unexpected issues: %+v", resp.Issues)
	}
	if len(resp.Pages.Results) != 1 || resp.Pages.Total != 3 {
		t.Errorf("unexpected pages: %+v", resp.Pages)
	}
}

func TestRelated_InvalidBody_400(t *testing.T) {
	handler := newTestServer(&mockService{}, &mockService{}, &mockPinger{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, jsonRequest("POST", "/v1/related", "{not json"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeBadRequest {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeBadRequest)
	}
}

func TestRelated_MissingKindOrID_400(t *testing.T) {
	handler := newTestServer(&mockService{}, &mockService{}, &mockPinger{})

	for _, body := range []string{
		`{"id":"17","attributes":{}}`,
		`{"kind":"device","attributes":{}}`,
	} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, jsonRequest("POST", "/v1/related", body))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: got %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestRelated_ServiceFailureStaysPartial(t *testing.T) {
	issues := &mockService{
		configured: true,
		searchFn: func(ctx context.Context, terms []string) (domain.ResultSet, error) {
			return domain.ResultSet{}, domain.ErrServiceTimeout
		},
	}
	pages := &mockService{
		configured: true,
		searchFn: func(ctx context.Context, terms []string) (domain.ResultSet, error) {
			return domain.ResultSet{
				Results: []domain.Result{{Source: domain.SourcePage, ID: "99", Title: "Runbook", URL: "https://wiki/pages/99"}},
				Total:   1,
			}, nil
		},
	}
	handler := newTestServer(issues, pages, &mockPinger{})

	body := `{"kind":"device","id":"17","attributes":{"name":"router-01"}}`
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, jsonRequest("POST", "/v1/related", body))

	// Partial failure is still a 200; the failing side carries the detail.
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp relatedResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Issues.Error == "" {
		t.Error("expected issue side error detail")
	}
	if len(resp.Pages.Results) != 1 {
		t.Errorf("pages should be unaffected, got %+v", resp.Pages)
	}
}

func TestFields_ListsConfiguredFields(t *testing.T) {
	handler := newTestServer(&mockService{}, &mockService{}, &mockPinger{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/fields", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp struct {
		Fields []fieldItem `json:"fields"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Fields) != 2 {
		t.Fatalf("fields: got %d, want 2", len(resp.Fields))
	}
	if resp.Fields[0].Name != "Hostname" || resp.Fields[0].Attribute != "name" || !resp.Fields[0].Enabled {
		t.Errorf("unexpected first field: %+v", resp.Fields[0])
	}
}

func TestTestService_OK(t *testing.T) {
	issues := &mockService{
		configured: true,
		testFn: func(ctx context.Context) (bool, string) {
			return true, "connected as svc-assetlink"
		},
	}
	handler := newTestServer(issues, &mockService{}, &mockPinger{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/services/jira/test", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp testResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.Message != "connected as svc-assetlink" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTestService_Failure_502(t *testing.T) {
	pages := &mockService{
		configured: true,
		testFn: func(ctx context.Context) (bool, string) {
			return false, "authentication failed"
		},
	}
	handler := newTestServer(&mockService{}, pages, &mockPinger{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/services/confluence/test", http.NoBody))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	var resp testResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OK || resp.Message != "authentication failed" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTestService_UnknownService_404(t *testing.T) {
	handler := newTestServer(&mockService{}, &mockService{}, &mockPinger{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/services/bitbucket/test", http.NoBody))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHealthCheck_Healthy(t *testing.T) {
	handler := newTestServer(&mockService{}, &mockService{}, &mockPinger{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %s, want ok", resp.Status)
	}
	if _, probed := resp.Checks["issue_tracker"]; probed {
		t.Error("shallow check must not probe external services")
	}
}

func TestHealthCheck_Deep(t *testing.T) {
	issues := &mockService{configured: true}
	handler := newTestServer(issues, &mockService{}, &mockPinger{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health?deep=true", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Checks["issue_tracker"] != "ok" {
		t.Errorf("issue_tracker: got %s, want ok", resp.Checks["issue_tracker"])
	}
	if resp.Checks["content_service"] != "skipped" {
		t.Errorf("content_service: got %s, want skipped", resp.Checks["content_service"])
	}
}

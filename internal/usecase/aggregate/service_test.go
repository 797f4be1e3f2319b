package aggregate

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/assetlink-cloud/assetlink/internal/domain"
)

func TestRelated_MergesBothServices(t *testing.T) {
	issues := &mockClient{configured: true, searchFn: func(_ context.Context, _ []string) (domain.ResultSet, error) {
		return issueSet("NET-1"), nil
	}}
	pages := &mockClient{configured: true, searchFn: func(_ context.Context, _ []string) (domain.ResultSet, error) {
		return pageSet("1001", "1002"), nil
	}}
	svc := newTestService(t, issues, pages, nil)

	combined, err := svc.Related(context.Background(), deviceRecord())
	if err != nil {
		t.Fatalf("Related: %v", err)
	}

	if want := []string{"router-01", "SN999"}; !reflect.DeepEqual(combined.Terms, want) {
		t.Errorf("Terms = %v, want %v", combined.Terms, want)
	}
	if len(combined.Issues.Results) != 1 || combined.Issues.Results[0].ID != "NET-1" {
		t.Errorf("Issues = %+v", combined.Issues)
	}
	if len(combined.Pages.Results) != 2 || combined.Pages.Total != 2 {
		t.Errorf("Pages = %+v", combined.Pages)
	}
	if !reflect.DeepEqual(issues.lastTerms, combined.Terms) {
		t.Errorf("issue client got terms %v", issues.lastTerms)
	}
}

func TestRelated_NoTermsShortCircuits(t *testing.T) {
	issues := &mockClient{configured: true}
	pages := &mockClient{configured: true}
	svc := newTestService(t, issues, pages, nil)

	rec := domain.Record{Kind: "device", ID: "3", Attributes: map[string]any{}}
	combined, err := svc.Related(context.Background(), rec)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}

	if issues.searchCalls != 0 || pages.searchCalls != 0 {
		t.Fatal("zero terms must not contact either service")
	}
	if len(combined.Issues.Results) != 0 || len(combined.Pages.Results) != 0 {
		t.Fatalf("expected empty combined, got %+v", combined)
	}
}

func TestRelated_PartialFailure(t *testing.T) {
	issues := &mockClient{configured: true, searchFn: func(context.Context, []string) (domain.ResultSet, error) {
		return domain.ResultSet{}, domain.ErrServiceTimeout
	}}
	pages := &mockClient{configured: true, searchFn: func(context.Context, []string) (domain.ResultSet, error) {
		return pageSet("1001"), nil
	}}
	svc := newTestService(t, issues, pages, nil)

	combined, err := svc.Related(context.Background(), deviceRecord())
	if err != nil {
		t.Fatalf("one failing service must not fail the request: %v", err)
	}

	if len(combined.Issues.Results) != 0 {
		t.Errorf("Issues should be empty, got %+v", combined.Issues.Results)
	}
	if combined.Issues.Error == "" || !strings.Contains(combined.Issues.Error, "timeout") {
		t.Errorf("Issues.Error = %q", combined.Issues.Error)
	}
	if len(combined.Pages.Results) != 1 || combined.Pages.Error != "" {
		t.Errorf("Pages suppressed by sibling failure: %+v", combined.Pages)
	}
}

func TestRelated_UnconfiguredServiceIsSilent(t *testing.T) {
	issues := &mockClient{configured: false}
	pages := &mockClient{configured: true, searchFn: func(context.Context, []string) (domain.ResultSet, error) {
		return pageSet("1001"), nil
	}}
	svc := newTestService(t, issues, pages, nil)

	combined, err := svc.Related(context.Background(), deviceRecord())
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if issues.searchCalls != 0 {
		t.Fatal("unconfigured service must not be contacted")
	}
	if combined.Issues.Error != "" {
		t.Errorf("unconfigured is not an error: %q", combined.Issues.Error)
	}
	if len(combined.Pages.Results) != 1 {
		t.Errorf("Pages = %+v", combined.Pages)
	}
}

func TestRelated_CacheSecondCallSkipsFetch(t *testing.T) {
	issues := &mockClient{configured: true, signature: "jira|NET|10",
		searchFn: func(context.Context, []string) (domain.ResultSet, error) { return issueSet("NET-1"), nil }}
	pages := &mockClient{configured: true, signature: "wiki|NET|10",
		searchFn: func(context.Context, []string) (domain.ResultSet, error) { return pageSet("1001"), nil }}
	mc := newMockCache()
	svc := newTestService(t, issues, pages, mc)

	first, err := svc.Related(context.Background(), deviceRecord())
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if first.Issues.Cached || first.Pages.Cached {
		t.Fatal("first call should miss the cache")
	}

	second, err := svc.Related(context.Background(), deviceRecord())
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if issues.searchCalls != 1 || pages.searchCalls != 1 {
		t.Fatalf("second call within TTL must not re-fetch: issues=%d pages=%d",
			issues.searchCalls, pages.searchCalls)
	}
	if !second.Issues.Cached || !second.Pages.Cached {
		t.Fatal("second call should be served from cache")
	}
	if second.Issues.Results[0].ID != "NET-1" {
		t.Errorf("cached issues = %+v", second.Issues.Results)
	}
}

func TestRelated_CacheKeyVariesPerServiceAndRecord(t *testing.T) {
	issues := &mockClient{configured: true, signature: "jira"}
	pages := &mockClient{configured: true, signature: "wiki"}
	mc := newMockCache()
	svc := newTestService(t, issues, pages, mc)

	if _, err := svc.Related(context.Background(), deviceRecord()); err != nil {
		t.Fatalf("Related: %v", err)
	}
	other := deviceRecord()
	other.ID = "18"
	if _, err := svc.Related(context.Background(), other); err != nil {
		t.Fatalf("Related: %v", err)
	}

	seen := make(map[string]struct{})
	for _, k := range mc.keys {
		seen[k] = struct{}{}
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct keys (2 services x 2 records), got %d: %v", len(seen), mc.keys)
	}
}

func TestRelated_FailedFetchNotCached(t *testing.T) {
	calls := 0
	issues := &mockClient{configured: true, searchFn: func(context.Context, []string) (domain.ResultSet, error) {
		calls++
		if calls == 1 {
			return domain.ResultSet{}, domain.ErrServiceUnreachable
		}
		return issueSet("NET-1"), nil
	}}
	pages := &mockClient{configured: false}
	mc := newMockCache()
	svc := newTestService(t, issues, pages, mc)

	first, _ := svc.Related(context.Background(), deviceRecord())
	if first.Issues.Error == "" {
		t.Fatal("expected recorded failure")
	}

	second, _ := svc.Related(context.Background(), deviceRecord())
	if second.Issues.Error != "" || len(second.Issues.Results) != 1 {
		t.Fatalf("retry after failure should fetch again: %+v", second.Issues)
	}
}

func TestShouldDisplay(t *testing.T) {
	issues := &mockClient{configured: true}
	pages := &mockClient{configured: true}

	withManufacturer := deviceRecord()
	withManufacturer.Attributes["device_type"] = map[string]any{
		"manufacturer": map[string]any{"slug": "cisco-systems", "name": "Cisco Systems"},
	}

	t.Run("ungated when no patterns", func(t *testing.T) {
		svc := newTestService(t, issues, pages, nil)
		if !svc.ShouldDisplay(withManufacturer) {
			t.Fatal("expected display")
		}
	})

	t.Run("pattern match", func(t *testing.T) {
		svc := newTestService(t, issues, pages, nil).WithDisplayPatterns([]string{"cisco", "juniper"})
		if !svc.ShouldDisplay(withManufacturer) {
			t.Fatal("expected display for matching manufacturer")
		}
	})

	t.Run("pattern mismatch hides", func(t *testing.T) {
		svc := newTestService(t, issues, pages, nil).WithDisplayPatterns([]string{"juniper"})
		if svc.ShouldDisplay(withManufacturer) {
			t.Fatal("expected hidden for non-matching manufacturer")
		}
	})

	t.Run("invalid regex falls back to substring", func(t *testing.T) {
		rec := deviceRecord()
		rec.Attributes["device_type"] = map[string]any{
			"manufacturer": map[string]any{"slug": "acme", "name": "Acme (EU)"},
		}
		svc := newTestService(t, issues, pages, nil).WithDisplayPatterns([]string{"acme ("})
		if !svc.ShouldDisplay(rec) {
			t.Fatal("invalid regex should fall back to substring matching")
		}
		svc = newTestService(t, issues, pages, nil).WithDisplayPatterns([]string{"globex ("})
		if svc.ShouldDisplay(rec) {
			t.Fatal("substring fallback should not match an unrelated pattern")
		}
	})

	t.Run("no manufacturer attribute is ungated", func(t *testing.T) {
		svc := newTestService(t, issues, pages, nil).WithDisplayPatterns([]string{"cisco"})
		vm := domain.Record{Kind: "virtual_machine", ID: "4", Attributes: map[string]any{"name": "vm-01"}}
		if !svc.ShouldDisplay(vm) {
			t.Fatal("records without device_type must not be gated")
		}
	})

	t.Run("no terms hides", func(t *testing.T) {
		svc := newTestService(t, issues, pages, nil)
		empty := domain.Record{Kind: "device", ID: "8", Attributes: map[string]any{}}
		if svc.ShouldDisplay(empty) {
			t.Fatal("no resolvable terms means nothing to show")
		}
	})
}

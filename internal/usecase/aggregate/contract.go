package aggregate

import (
	"context"

	"github.com/assetlink-cloud/assetlink/internal/domain"
)

// Client is anything that can search an external service and return
// normalized results. New services implement this contract without touching
// the aggregator.
type Client interface {
	// Configured reports whether the service has a URL set. Unconfigured
	// services are skipped silently, not treated as failures.
	Configured() bool
	// Search runs one OR-combined query for all terms.
	Search(ctx context.Context, terms []string) (domain.ResultSet, error)
	// TestConnection reports reachability with a diagnostic detail string.
	TestConnection(ctx context.Context) (bool, string)
	// Signature summarizes the filter configuration for cache keying.
	Signature() string
}

// ResultCache memoizes one service's result set under a derived key.
type ResultCache interface {
	GetOrFetch(
		ctx context.Context, key string,
		fetch func(ctx context.Context) (domain.ResultSet, error),
	) (domain.ResultSet, bool, error)
}

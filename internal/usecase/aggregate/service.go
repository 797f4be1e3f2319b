// Package aggregate orchestrates the record-to-results pipeline: resolve
// search terms, fan out to both external services through the cache, and
// merge the outcomes into one combined structure.
package aggregate

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/assetlink-cloud/assetlink/internal/cache"
	"github.com/assetlink-cloud/assetlink/internal/domain"
	"github.com/assetlink-cloud/assetlink/internal/query"
	"github.com/assetlink-cloud/assetlink/internal/resolve"
)

// Attribute paths consulted by the manufacturer display gate.
const (
	manufacturerSlugPath = "device_type.manufacturer.slug"
	manufacturerNamePath = "device_type.manufacturer.name"
)

// Service aggregates search results from the issue tracker and the content
// service for one inventory record.
type Service struct {
	issues Client
	pages  Client
	cache  ResultCache // nil disables memoization
	fields []domain.SearchField
	logger *zap.Logger

	// displayPatterns gate visibility by manufacturer; empty means ungated.
	displayPatterns []string

	fieldSig string
}

// New creates an aggregation service. cache may be nil, which disables
// memoization and fetches on every call.
func New(issues, pages Client, resultCache ResultCache, fields []domain.SearchField, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		issues:   issues,
		pages:    pages,
		cache:    resultCache,
		fields:   fields,
		logger:   logger,
		fieldSig: fieldSignature(fields),
	}
}

// WithDisplayPatterns sets the manufacturer patterns for ShouldDisplay.
func (s *Service) WithDisplayPatterns(patterns []string) *Service {
	s.displayPatterns = patterns
	return s
}

// Fields returns the configured search fields for settings display.
func (s *Service) Fields() []domain.SearchField { return s.fields }

// Related resolves the record's search terms and fetches matching issues and
// pages. With zero resolved terms neither service is contacted. The two
// fetches are independent: a failure on one side yields an empty list and a
// recorded detail for that side only.
func (s *Service) Related(ctx context.Context, rec domain.Record) (domain.Combined, error) {
	terms := query.Values(query.BuildTerms(rec, s.fields))

	combined := domain.Combined{Terms: terms}
	if len(terms) == 0 {
		return combined, nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		combined.Issues = s.fetch(ctx, "issues", s.issues, rec, terms)
	}()
	go func() {
		defer wg.Done()
		combined.Pages = s.fetch(ctx, "pages", s.pages, rec, terms)
	}()
	wg.Wait()

	return combined, nil
}

// fetch runs one service's cache-wrapped search. Service failures are
// absorbed here: the caller always receives a usable ServiceResult.
func (s *Service) fetch(
	ctx context.Context, name string, client Client,
	rec domain.Record, terms []string,
) domain.ServiceResult {
	if client == nil || !client.Configured() {
		return domain.ServiceResult{Results: []domain.Result{}}
	}

	do := func(ctx context.Context) (domain.ResultSet, error) {
		return client.Search(ctx, terms)
	}

	var (
		rs     domain.ResultSet
		cached bool
		err    error
	)
	if s.cache != nil {
		key := cache.Key(name, rec.Kind, rec.ID, s.fieldSig, client.Signature())
		rs, cached, err = s.cache.GetOrFetch(ctx, key, do)
	} else {
		rs, err = do(ctx)
	}
	if err != nil {
		s.logger.Warn("External search failed",
			zap.String("service", name),
			zap.String("record_kind", rec.Kind),
			zap.String("record_id", rec.ID),
			zap.Error(err),
		)
		return domain.ServiceResult{Results: []domain.Result{}, Error: err.Error()}
	}

	results := rs.Results
	if results == nil {
		results = []domain.Result{}
	}
	return domain.ServiceResult{
		Results: results,
		Total:   rs.Total,
		Cached:  cached,
	}
}

// ShouldDisplay reports whether the record warrants an aggregation panel:
// its manufacturer matches the configured patterns (when both are present)
// and at least one search term resolves.
func (s *Service) ShouldDisplay(rec domain.Record) bool {
	if len(s.displayPatterns) > 0 {
		slug, slugOK := resolve.Value(rec.Attributes, manufacturerSlugPath)
		name, nameOK := resolve.Value(rec.Attributes, manufacturerNamePath)
		// Records without a manufacturer (e.g. virtual machines) are ungated.
		if slugOK || nameOK {
			if !matchesAny(s.displayPatterns, strings.ToLower(slug), strings.ToLower(name)) {
				return false
			}
		}
	}
	return len(query.BuildTerms(rec, s.fields)) > 0
}

// matchesAny treats each pattern as a case-insensitive regular expression,
// falling back to substring matching when the pattern does not compile.
func matchesAny(patterns []string, candidates ...string) bool {
	for _, p := range patterns {
		p = strings.ToLower(p)
		re, err := regexp.Compile(p)
		for _, c := range candidates {
			if c == "" {
				continue
			}
			if err == nil {
				if re.MatchString(c) {
					return true
				}
			} else if strings.Contains(c, p) {
				return true
			}
		}
	}
	return false
}

// fieldSignature encodes the enabled field set for the cache key. Changing a
// field's name, attribute, order, or enablement changes the signature.
func fieldSignature(fields []domain.SearchField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if !f.Enabled {
			continue
		}
		parts = append(parts, f.Name+"="+f.Attribute)
	}
	return strings.Join(parts, ";")
}

// Package query builds the OR-combined search term set for a record.
package query

import (
	"strings"

	"github.com/assetlink-cloud/assetlink/internal/domain"
	"github.com/assetlink-cloud/assetlink/internal/resolve"
)

// BuildTerms resolves the enabled search fields against a record, in their
// configured order. Fields that resolve to absent or empty values are skipped.
// A resolved value containing commas contributes one term per part (e.g. a
// device holding two serial numbers); terms are trimmed and de-duplicated,
// first appearance winning. The returned sequence is the OR term set: a
// result matching any term matches the search.
func BuildTerms(rec domain.Record, fields []domain.SearchField) []domain.Term {
	var terms []domain.Term
	seen := make(map[string]struct{})

	add := func(field, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if _, dup := seen[value]; dup {
			return
		}
		seen[value] = struct{}{}
		terms = append(terms, domain.Term{Field: field, Value: value})
	}

	for _, f := range fields {
		if !f.Enabled || f.Attribute == "" {
			continue
		}
		value, ok := resolve.Value(rec.Attributes, f.Attribute)
		if !ok {
			continue
		}
		for _, part := range strings.Split(value, ",") {
			add(f.Name, part)
		}
	}

	return terms
}

// Values projects the term values, preserving order.
func Values(terms []domain.Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Value
	}
	return out
}

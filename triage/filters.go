// CLAUDE:SUMMARY Structured inbox filters: numeric ranges and category sets applied during ranking.
package triage

import (
	"encoding/json"

	"github.com/hazyhaar/triage/triage/internal/store"
)

// Filters narrows an inbox's view by item attributes, independently of
// similarity. Zero values mean "no constraint".
type Filters struct {
	MinValue        *float64 `json:"min_value,omitempty" yaml:"min_value"`
	MaxValue        *float64 `json:"max_value,omitempty" yaml:"max_value"`
	Authorities     []string `json:"authorities,omitempty" yaml:"authorities"`
	Classifications []string `json:"classifications,omitempty" yaml:"classifications"`
	PublishedAfter  int64    `json:"published_after,omitempty" yaml:"published_after"`
}

// Match reports whether an item satisfies every configured constraint.
func (f *Filters) Match(it *store.Item) bool {
	if f == nil {
		return true
	}
	if f.MinValue != nil && it.Value < *f.MinValue {
		return false
	}
	if f.MaxValue != nil && it.Value > *f.MaxValue {
		return false
	}
	if len(f.Authorities) > 0 && !contains(f.Authorities, it.Authority) {
		return false
	}
	if len(f.Classifications) > 0 && !contains(f.Classifications, it.Classification) {
		return false
	}
	if f.PublishedAfter > 0 && it.PublishedAt < f.PublishedAfter {
		return false
	}
	return true
}

// parseFilters decodes an inbox's cached filters. Absent or corrupt
// JSON means no filtering, mirroring parsePolicy's tolerance.
func parseFilters(in *store.Inbox) *Filters {
	if in.FiltersJSON == "" {
		return nil
	}
	var f Filters
	if err := json.Unmarshal([]byte(in.FiltersJSON), &f); err != nil {
		return nil
	}
	return &f
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

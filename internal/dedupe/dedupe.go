// Package dedupe merges discovery candidates across sources. Discovery
// sources overlap heavily; a handle surfaced by several independent sources
// is a quality signal, so multiplicity is preserved and sorted on.
package dedupe

import (
	"sort"
	"strings"

	"github.com/snirhassin/amazon-storefronts/internal/model"
)

// sourcePriority orders discovery sources; lower wins conflicts. The URL of
// the winning source becomes the canonical URL for the handle.
var sourcePriority = map[string]int{
	model.SourceGoogle:      1,
	model.SourceCuratedList: 2,
	model.SourceAmazonLive:  3,
	model.SourceManual:      4,
}

const unknownPriority = 999

// NormalizeID case-folds a storefront handle and strips trailing slashes and
// whitespace. Normalization is idempotent.
func NormalizeID(id string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(id)), "/ \t")
}

// Merge combines candidate batches keyed by normalized handle. Provenance
// accumulates every distinct contributing source; the retained
// DiscoverySource and URL come from the highest-priority source seen.
// Output ordering: higher source count first, then source priority.
func Merge(batches ...[]model.Candidate) []model.Candidate {
	merged := make(map[string]*model.Candidate)
	var order []string

	for _, batch := range batches {
		for _, c := range batch {
			id := NormalizeID(c.StorefrontID)
			if id == "" {
				continue
			}

			existing, ok := merged[id]
			if !ok {
				entry := c
				entry.StorefrontID = id
				entry.AllSources = []string{c.DiscoverySource}
				merged[id] = &entry
				order = append(order, id)
				continue
			}

			if !containsString(existing.AllSources, c.DiscoverySource) {
				existing.AllSources = append(existing.AllSources, c.DiscoverySource)
			}
			if priority(c.DiscoverySource) < priority(existing.DiscoverySource) {
				existing.DiscoverySource = c.DiscoverySource
				existing.URL = c.URL
			}
		}
	}

	results := make([]model.Candidate, 0, len(merged))
	for _, id := range order {
		c := *merged[id]
		c.SourceCount = len(c.AllSources)
		if c.Username == "" {
			c.Username = c.StorefrontID
		}
		results = append(results, c)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SourceCount != results[j].SourceCount {
			return results[i].SourceCount > results[j].SourceCount
		}
		return priority(results[i].DiscoverySource) < priority(results[j].DiscoverySource)
	})

	return results
}

// RemoveKnown filters out candidates whose normalized handle already exists
// among previously scraped storefronts, so known identities are not requeued.
func RemoveKnown(candidates []model.Candidate, existing []model.Storefront) []model.Candidate {
	known := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		if id := NormalizeID(s.StorefrontID); id != "" {
			known[id] = struct{}{}
		}
	}

	out := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		id := NormalizeID(c.StorefrontID)
		if id == "" {
			continue
		}
		if _, dup := known[id]; dup {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Stats summarizes a merged candidate set.
type Stats struct {
	Total       int
	BySource    map[string]int
	MultiSource int
}

func GetStats(candidates []model.Candidate) Stats {
	st := Stats{Total: len(candidates), BySource: make(map[string]int)}
	for _, c := range candidates {
		st.BySource[c.DiscoverySource]++
		if c.SourceCount > 1 {
			st.MultiSource++
		}
	}
	return st
}

func priority(source string) int {
	if p, ok := sourcePriority[source]; ok {
		return p
	}
	return unknownPriority
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

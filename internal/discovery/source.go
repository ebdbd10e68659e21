// Package discovery finds candidate storefronts from independent sources:
// search-engine site queries, curated articles, and the live feed. Sources
// overlap; the dedupe package merges their output.
package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/model"
)

// Source produces one batch of candidates per run.
type Source interface {
	Name() string
	Discover(ctx context.Context) ([]model.Candidate, error)
}

var storefrontURLRe = regexp.MustCompile(`(?i)amazon\.([a-z.]+)/shop/([^/?&"'<>]+)`)

// handleDenylist holds path segments under /shop/ that are site pages, not
// storefront handles.
var handleDenylist = map[string]struct{}{
	"info":            {},
	"help":            {},
	"about":           {},
	"browse":          {},
	"live":            {},
	"founditonamazon": {},
}

// ParseStorefrontURL extracts (domain, handle) from a scraped href and
// rebuilds the canonical storefront URL from those parts, discarding whatever
// tracking parameters the raw link carried. Handles on the denylist are
// rejected.
func ParseStorefrontURL(rawURL, source string, now time.Time) (model.Candidate, bool) {
	m := storefrontURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return model.Candidate{}, false
	}

	domain := strings.ToLower(m[1])
	handle := strings.ToLower(m[2])
	if _, denied := handleDenylist[handle]; denied {
		return model.Candidate{}, false
	}

	return model.Candidate{
		StorefrontID:    handle,
		URL:             fmt.Sprintf("https://www.amazon.%s/shop/%s", domain, handle),
		Username:        handle,
		DiscoverySource: source,
		DiscoveredAt:    now,
	}, true
}

package model

import "time"

// Discovery source tags, ordered by priority (lower wins ties).
const (
	SourceGoogle      = "google"
	SourceCuratedList = "curated_list"
	SourceAmazonLive  = "amazonlive"
	SourceManual      = "manual"
)

// Candidate is a discovered storefront identity awaiting scraping. Candidates
// exist between a discovery pass and the scrape loop; they are not persisted
// once scraping begins.
type Candidate struct {
	StorefrontID    string
	URL             string
	Username        string
	DiscoverySource string
	SourceName      string
	DiscoveredAt    time.Time
	SourceCount     int
	AllSources      []string
}

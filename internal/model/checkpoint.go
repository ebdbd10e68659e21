package model

import "time"

// Checkpoint is the durable resume point for a run. It is owned by the
// orchestrator; there is never more than one writer.
type Checkpoint struct {
	LastUpdated time.Time         `json:"last_updated"`
	Discovery   DiscoveryProgress `json:"discovery"`
	Scraping    ScrapingProgress  `json:"scraping"`
}

type DiscoveryProgress struct {
	Google      SourceProgress `json:"google"`
	CuratedList SourceProgress `json:"curated_list"`
	AmazonLive  SourceProgress `json:"amazonlive"`
}

type SourceProgress struct {
	Completed      bool `json:"completed"`
	LastPage       int  `json:"last_page"`
	ScrollPosition int  `json:"scroll_position"`
	URLsFound      int  `json:"urls_found"`
}

type ScrapingProgress struct {
	TotalStorefronts int      `json:"total_storefronts"`
	Processed        int      `json:"processed"`
	LastProcessedID  string   `json:"last_processed_id"`
	FailedURLs       []string `json:"failed_urls"`
}

// NewCheckpoint returns the empty first-run checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		LastUpdated: time.Now().UTC(),
		Scraping:    ScrapingProgress{FailedURLs: []string{}},
	}
}

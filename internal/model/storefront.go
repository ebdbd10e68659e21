package model

import "time"

// Scrape status values for a storefront row.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Storefront is one creator storefront, keyed by its normalized handle.
// Re-scraping the same handle overwrites fields downstream; the CSV layer
// itself is append-only.
type Storefront struct {
	StorefrontID    string
	StorefrontURL   string
	Username        string
	CreatorName     string
	Bio             string
	ProfileImageURL string
	IsTopCreator    bool
	StorefrontLikes int64
	FollowerCount   int64
	TotalLists      int
	TotalProducts   int
	DiscoverySource string
	Marketplace     string
	ScrapedAt       time.Time
	ScrapeStatus    string
	ScrapeError     string
}

// List is a product list owned by one storefront.
type List struct {
	ListID        string
	StorefrontID  string
	ListName      string
	ListURL       string
	LikesCount    int64
	ProductsCount int
	Category      string
	Position      int
	LastUpdated   time.Time
	ScrapedAt     time.Time
}

// Product is a single product reference inside a list. ASIN is the external
// catalog identifier; rows without a resolved ASIN are discarded upstream.
type Product struct {
	ASIN           string
	ListID         string
	StorefrontID   string
	ProductTitle   string
	Price          string
	PriceNumeric   float64
	PriceKnown     bool
	Currency       string
	ImageURL       string
	ProductURL     string
	PositionInList int
	ScrapedAt      time.Time
}

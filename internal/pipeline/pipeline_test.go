package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/checkpoint"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
	"github.com/snirhassin/amazon-storefronts/internal/store"
)

type fakePage struct {
	snapshots map[string]*browser.Snapshot
	current   *browser.Snapshot
	visited   []string
}

func (p *fakePage) Goto(ctx context.Context, url string, opts browser.NavigateOptions) error {
	p.visited = append(p.visited, url)
	snap, ok := p.snapshots[url]
	if !ok {
		return errors.New("connection refused")
	}
	p.current = snap
	return nil
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	if p.current == nil {
		return "", nil
	}
	return p.current.Title, nil
}

func (p *fakePage) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	if p.current == nil {
		return nil, errors.New("no document")
	}
	return p.current, nil
}

func (p *fakePage) ScrollBy(ctx context.Context, pixels int) error { return nil }

func (p *fakePage) PageHeight(ctx context.Context) (int, error) {
	return 0, errors.New("height unavailable")
}

func (p *fakePage) ClickByText(ctx context.Context, fragments ...string) (bool, error) {
	return false, nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error { return nil }

func (p *fakePage) Close(ctx context.Context) error { return nil }

type fakeSession struct {
	page *fakePage
}

func (s *fakeSession) NewPage(ctx context.Context) (browser.Page, error) { return s.page, nil }

func (s *fakeSession) Close(ctx context.Context) error { return nil }

func fastLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Options{
		MinDelay:        time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		StorefrontDelay: time.Millisecond,
		BatchDelay:      time.Millisecond,
	})
}

const (
	storefrontURL = "https://www.amazon.com/shop/janedoe"
	listURL       = "https://www.amazon.com/shop/janedoe/list/LIST1"
)

func storefrontSnapshot() *browser.Snapshot {
	return &browser.Snapshot{
		URL:      storefrontURL,
		Title:    "Jane Doe's Storefront",
		BodyText: "Jane Doe\n15K followers\nCurated picks",
		Elements: []browser.Element{
			{Tag: "h1", Text: "Jane Doe"},
			{Tag: "span", Class: "like-count", Text: "2.3K"},
		},
		Cards: []browser.Card{
			{
				Class: "list-card",
				Text:  "Kitchen Picks\nSee all 12 items",
				Elements: []browser.Element{
					{Tag: "a", Class: "list-link", Href: listURL, Text: "Kitchen Picks"},
					{Tag: "span", Class: "heart-count", Text: "120"},
				},
			},
		},
	}
}

func listSnapshot() *browser.Snapshot {
	return &browser.Snapshot{
		URL:   listURL,
		Title: "Kitchen Picks",
		Elements: []browser.Element{
			{Tag: "h1", Text: "Kitchen Picks"},
		},
		Cards: []browser.Card{
			{
				Class: "product-card",
				Elements: []browser.Element{
					{Tag: "a", Href: "https://www.amazon.com/dp/B08N5WRWNW"},
					{Tag: "h3", Text: "Air Fryer Pro 4-in-1"},
					{Tag: "span", Class: "price", Text: "$99.99"},
					{Tag: "img", Src: "https://images.example/fryer.jpg"},
				},
			},
			{
				Class: "product-card",
				Elements: []browser.Element{
					{Tag: "a", Href: "https://www.amazon.com/dp/B000123456"},
					{Tag: "h3", Text: "Chef's Knife 8 inch"},
					{Tag: "span", Class: "price", Text: "Currently unavailable"},
				},
			},
		},
	}
}

func TestScrapeCollectsProfileListsAndProducts(t *testing.T) {
	page := &fakePage{snapshots: map[string]*browser.Snapshot{
		storefrontURL: storefrontSnapshot(),
		listURL:       listSnapshot(),
	}}
	scraper := NewStorefrontScraper(&fakeSession{page: page}, fastLimiter(), nil, true, 20)

	result := scraper.Scrape(context.Background(), storefrontURL, model.SourceGoogle)

	s := result.Storefront
	assert.Equal(t, model.StatusSuccess, s.ScrapeStatus)
	assert.Equal(t, "janedoe", s.StorefrontID)
	assert.Equal(t, "Jane Doe", s.CreatorName)
	assert.Equal(t, int64(2300), s.StorefrontLikes)
	assert.Equal(t, int64(15000), s.FollowerCount)
	assert.Equal(t, "US", s.Marketplace)
	assert.Equal(t, 1, s.TotalLists)
	assert.Equal(t, 2, s.TotalProducts)

	require.Len(t, result.Lists, 1)
	l := result.Lists[0]
	assert.Equal(t, "LIST1", l.ListID)
	assert.Equal(t, "Kitchen Picks", l.ListName)
	assert.Equal(t, "janedoe", l.StorefrontID)
	// storefront-page likes win over anything the list page shows
	assert.Equal(t, int64(120), l.LikesCount)
	assert.Equal(t, 2, l.ProductsCount)

	require.Len(t, result.Products, 2)
	p := result.Products[0]
	assert.Equal(t, "B08N5WRWNW", p.ASIN)
	assert.Equal(t, "Air Fryer Pro 4-in-1", p.ProductTitle)
	assert.True(t, p.PriceKnown)
	assert.Equal(t, 99.99, p.PriceNumeric)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, 1, p.PositionInList)

	assert.False(t, result.Products[1].PriceKnown)
	assert.Equal(t, 2, result.Products[1].PositionInList)
}

func TestScrapeNotFoundYieldsFailedRecord(t *testing.T) {
	page := &fakePage{snapshots: map[string]*browser.Snapshot{
		storefrontURL: {Title: "Page Not Found", URL: storefrontURL},
	}}
	scraper := NewStorefrontScraper(&fakeSession{page: page}, fastLimiter(), nil, true, 20)

	result := scraper.Scrape(context.Background(), storefrontURL, model.SourceGoogle)

	assert.Equal(t, model.StatusFailed, result.Storefront.ScrapeStatus)
	assert.Equal(t, "janedoe", result.Storefront.StorefrontID)
	assert.Contains(t, result.Storefront.ScrapeError, "not found")
	assert.Empty(t, result.Lists)
	assert.Empty(t, result.Products)
}

func TestScrapeNavigationErrorYieldsFailedRecord(t *testing.T) {
	page := &fakePage{snapshots: map[string]*browser.Snapshot{}}
	scraper := NewStorefrontScraper(&fakeSession{page: page}, fastLimiter(), nil, true, 20)

	result := scraper.Scrape(context.Background(), storefrontURL, model.SourceGoogle)

	assert.Equal(t, model.StatusFailed, result.Storefront.ScrapeStatus)
	assert.Contains(t, result.Storefront.ScrapeError, "connection refused")
}

func TestScrapeSkipsListPagesWhenDisabled(t *testing.T) {
	page := &fakePage{snapshots: map[string]*browser.Snapshot{
		storefrontURL: storefrontSnapshot(),
	}}
	scraper := NewStorefrontScraper(&fakeSession{page: page}, fastLimiter(), nil, false, 20)

	result := scraper.Scrape(context.Background(), storefrontURL, model.SourceGoogle)

	assert.Equal(t, model.StatusSuccess, result.Storefront.ScrapeStatus)
	assert.Len(t, result.Lists, 1)
	assert.Empty(t, result.Products)
	for _, url := range page.visited {
		assert.NotContains(t, url, "/list/")
	}
}

func newTestOrchestrator(t *testing.T, session browser.Session, opts Options) (*Orchestrator, *store.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	handler := store.NewHandler(filepath.Join(dir, "output"), filepath.Join(dir, "input"), nil)
	cpPath := filepath.Join(dir, "input", "checkpoint.json")
	manager := checkpoint.NewManager(cpPath, nil)
	o := NewOrchestrator(session, fastLimiter(), manager, handler, nil, nil, opts)
	return o, handler, cpPath
}

func TestRunProcessesAllCandidatesAndCheckpoints(t *testing.T) {
	otherURL := "https://www.amazon.com/shop/bobsmith"
	page := &fakePage{snapshots: map[string]*browser.Snapshot{
		storefrontURL: storefrontSnapshot(),
		listURL:       listSnapshot(),
		// bobsmith is gone: one failure mixed into the run
	}}
	o, handler, _ := newTestOrchestrator(t, &fakeSession{page: page}, Options{
		ScrapeProducts:        true,
		MaxListsPerStorefront: 20,
	})

	now := time.Now().UTC()
	require.NoError(t, handler.SaveDiscovered([]model.Candidate{
		{StorefrontID: "janedoe", URL: storefrontURL, DiscoverySource: model.SourceGoogle, DiscoveredAt: now},
		{StorefrontID: "bobsmith", URL: otherURL, DiscoverySource: model.SourceCuratedList, DiscoveredAt: now},
	}))

	require.NoError(t, o.Run(context.Background()))

	stats := o.RunStats()
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Successful)
	assert.Equal(t, 1, stats.Failed)

	storefronts, err := handler.ReadStorefronts()
	require.NoError(t, err)
	require.Len(t, storefronts, 2)
	assert.Equal(t, model.StatusSuccess, storefronts[0].ScrapeStatus)
	assert.Equal(t, model.StatusFailed, storefronts[1].ScrapeStatus)

	products, err := handler.ReadProducts()
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	page := &fakePage{snapshots: map[string]*browser.Snapshot{
		storefrontURL: storefrontSnapshot(),
		listURL:       listSnapshot(),
	}}
	o, handler, cpPath := newTestOrchestrator(t, &fakeSession{page: page}, Options{
		ScrapeProducts:        true,
		MaxListsPerStorefront: 20,
		Resume:                true,
	})

	now := time.Now().UTC()
	require.NoError(t, handler.SaveDiscovered([]model.Candidate{
		{StorefrontID: "bobsmith", URL: "https://www.amazon.com/shop/bobsmith", DiscoverySource: model.SourceGoogle, DiscoveredAt: now},
		{StorefrontID: "janedoe", URL: storefrontURL, DiscoverySource: model.SourceGoogle, DiscoveredAt: now},
	}))

	cp := model.NewCheckpoint()
	cp.Scraping.LastProcessedID = "bobsmith"
	cp.Scraping.Processed = 1
	require.NoError(t, checkpoint.NewManager(cpPath, nil).Save(cp))

	require.NoError(t, o.Run(context.Background()))

	// only janedoe was left to do; bobsmith was never revisited
	assert.Equal(t, 1, o.RunStats().Processed)
	for _, url := range page.visited {
		assert.False(t, strings.Contains(url, "bobsmith"), "revisited %s", url)
	}
}

func TestTitleFixerRepairsBadTitles(t *testing.T) {
	dir := t.TempDir()
	handler := store.NewHandler(filepath.Join(dir, "output"), filepath.Join(dir, "input"), nil)

	require.NoError(t, handler.AppendProducts([]model.Product{
		{ASIN: "B08N5WRWNW", ListID: "L1", StorefrontID: "janedoe", ProductTitle: "Skip to main content"},
		{ASIN: "B000123456", ListID: "L1", StorefrontID: "janedoe", ProductTitle: "Chef's Knife 8 inch"},
	}))

	page := &fakePage{snapshots: map[string]*browser.Snapshot{
		"https://www.amazon.com/dp/B08N5WRWNW": {
			Elements: []browser.Element{
				{Tag: "span", ID: "productTitle", Text: "Air Fryer Pro 4-in-1"},
			},
		},
	}}
	fixer := NewTitleFixer(&fakeSession{page: page}, fastLimiter(), handler, nil, "com")

	fixed, err := fixer.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	// only the bad title triggered a fetch
	require.Len(t, page.visited, 1)
	assert.Contains(t, page.visited[0], "B08N5WRWNW")

	products, err := handler.ReadProducts()
	require.NoError(t, err)
	require.Len(t, products, 3)
	appended := products[2]
	assert.Equal(t, "B08N5WRWNW", appended.ASIN)
	assert.Equal(t, "Air Fryer Pro 4-in-1", appended.ProductTitle)
	assert.False(t, appended.ScrapedAt.IsZero())
}

func TestRunFailsWithoutCandidates(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &fakeSession{page: &fakePage{}}, Options{})
	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no storefront candidates")
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/extract"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
)

const (
	navigateTimeout    = 30 * time.Second
	profileMaxScrolls  = 20
	listMaxScrolls     = 30
	scrollIdleLimit    = 3
	scrollStep         = 1000
	maxNavigateRetries = 3
)

// Result is everything one storefront yields. On failure the storefront row
// carries the error and status "failed" with no lists or products.
type Result struct {
	Storefront model.Storefront
	Lists      []model.List
	Products   []model.Product
}

// StorefrontScraper drives one storefront at a time over a shared browsing
// session. A fresh page is opened per storefront and always closed, success
// or not.
type StorefrontScraper struct {
	session        browser.Session
	limiter        *ratelimit.Limiter
	logger         *log.Logger
	scrapeProducts bool
	maxLists       int
}

func NewStorefrontScraper(session browser.Session, limiter *ratelimit.Limiter, logger *log.Logger, scrapeProducts bool, maxLists int) *StorefrontScraper {
	if logger == nil {
		logger = log.Default()
	}
	if maxLists <= 0 {
		maxLists = 20
	}
	return &StorefrontScraper{
		session:        session,
		limiter:        limiter,
		logger:         logger,
		scrapeProducts: scrapeProducts,
		maxLists:       maxLists,
	}
}

// Scrape processes one storefront end to end: profile, lists, and products
// for the first maxLists lists. Any error short of persistence becomes a
// failed storefront record; this method never returns an error because one
// bad storefront must not halt the run.
func (s *StorefrontScraper) Scrape(ctx context.Context, url, discoverySource string) Result {
	s.logger.Printf("scraping storefront: %s", url)

	page, err := s.session.NewPage(ctx)
	if err != nil {
		return s.failedResult(url, discoverySource, fmt.Errorf("open page: %w", err))
	}
	defer page.Close(ctx)

	if err := s.navigate(ctx, page, url, "networkidle"); err != nil {
		return s.failedResult(url, discoverySource, err)
	}
	// let late-rendering content settle before the first snapshot
	_ = s.limiter.Wait(ctx, 0)

	title, err := page.Title(ctx)
	if err == nil && (strings.Contains(title, "Page Not Found") || strings.Contains(title, "404")) {
		return s.failedResult(url, discoverySource, errors.New("storefront not found (404)"))
	}

	snap, err := page.Snapshot(ctx)
	if err != nil {
		return s.failedResult(url, discoverySource, fmt.Errorf("snapshot: %w", err))
	}

	storefront := extract.ExtractProfile(snap, url, discoverySource, time.Now().UTC())
	s.logger.Printf("  creator: %s, top creator: %v, likes: %d",
		displayName(storefront), storefront.IsTopCreator, storefront.StorefrontLikes)

	// Lists load lazily; scroll the storefront until the page stops growing.
	s.scrollToLoad(ctx, page, profileMaxScrolls)

	snap, err = page.Snapshot(ctx)
	if err != nil {
		return s.failedResult(url, discoverySource, fmt.Errorf("snapshot after scroll: %w", err))
	}

	lists := extract.ExtractLists(snap, storefront.StorefrontID, time.Now().UTC())
	storefront.TotalLists = len(lists)
	s.logger.Printf("  lists found: %d", len(lists))

	var products []model.Product
	if s.scrapeProducts && len(lists) > 0 {
		max := len(lists)
		if max > s.maxLists {
			max = s.maxLists
		}
		s.logger.Printf("  scraping products from up to %d lists", max)

		for i := 0; i < max; i++ {
			if ctx.Err() != nil {
				break
			}
			if lists[i].ListURL == "" || lists[i].ListURL == url {
				continue
			}
			listProducts := s.scrapeList(ctx, page, &lists[i])
			products = append(products, listProducts...)

			if err := s.limiter.WaitBetweenPages(ctx); err != nil {
				break
			}
		}
	}

	storefront.TotalProducts = len(products)
	storefront.ScrapeStatus = model.StatusSuccess

	return Result{Storefront: storefront, Lists: lists, Products: products}
}

// scrapeList loads one list page and merges its metadata into the entry
// extracted from the storefront page. Storefront-page like counts are kept
// when present; they are the more reliable of the two.
func (s *StorefrontScraper) scrapeList(ctx context.Context, page browser.Page, list *model.List) []model.Product {
	s.logger.Printf("    scraping list: %s", listLabel(list))

	if err := s.navigate(ctx, page, list.ListURL, "domcontentloaded"); err != nil {
		s.logger.Printf("      error scraping list: %v", err)
		return nil
	}
	_ = s.limiter.Wait(ctx, 0)

	snap, err := page.Snapshot(ctx)
	if err != nil {
		s.logger.Printf("      snapshot: %v", err)
		return nil
	}

	meta := extract.ExtractListMetadata(snap, list.ListURL, list.StorefrontID, time.Now().UTC())
	storefrontLikes := list.LikesCount
	position := list.Position

	*list = meta
	list.Position = position
	if storefrontLikes > 0 {
		list.LikesCount = storefrontLikes
	}

	s.scrollToLoad(ctx, page, listMaxScrolls)

	snap, err = page.Snapshot(ctx)
	if err != nil {
		s.logger.Printf("      snapshot after scroll: %v", err)
		return nil
	}

	products := extract.ExtractProducts(snap, list.StorefrontID, list.ListID, time.Now().UTC())
	list.ProductsCount = len(products)
	s.logger.Printf("      %d likes, %d products", list.LikesCount, len(products))
	return products
}

// navigate retries once per backoff round when the remote answers with an
// explicit throttle signal; every other error is final for this target.
func (s *StorefrontScraper) navigate(ctx context.Context, page browser.Page, url, waitUntil string) error {
	opts := browser.NavigateOptions{WaitUntil: waitUntil, Timeout: navigateTimeout}
	var err error
	for attempt := 0; attempt < maxNavigateRetries; attempt++ {
		err = page.Goto(ctx, url, opts)
		if err == nil {
			return nil
		}
		if !errors.Is(err, browser.ErrRateLimited) {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
		if backoffErr := s.limiter.ExponentialBackoff(ctx, attempt); backoffErr != nil {
			return backoffErr
		}
	}
	return fmt.Errorf("navigate %s: %w", url, err)
}

// scrollToLoad scrolls until the page height stops changing for a few rounds.
func (s *StorefrontScraper) scrollToLoad(ctx context.Context, page browser.Page, maxScrolls int) {
	previousHeight := 0
	idle := 0

	for i := 0; i < maxScrolls; i++ {
		if ctx.Err() != nil {
			return
		}
		height, err := page.PageHeight(ctx)
		if err != nil {
			return
		}
		if height == previousHeight {
			idle++
			if idle >= scrollIdleLimit {
				return
			}
		} else {
			idle = 0
			previousHeight = height
		}
		if err := page.ScrollBy(ctx, scrollStep); err != nil {
			return
		}
		if err := s.limiter.Wait(ctx, 1500*time.Millisecond); err != nil {
			return
		}
	}
}

func (s *StorefrontScraper) failedResult(url, discoverySource string, cause error) Result {
	s.logger.Printf("  error: %v", cause)

	id := extract.ExtractStorefrontID(url)
	return Result{
		Storefront: model.Storefront{
			StorefrontID:    id,
			StorefrontURL:   url,
			Username:        id,
			DiscoverySource: discoverySource,
			Marketplace:     extract.Marketplace(url),
			ScrapedAt:       time.Now().UTC(),
			ScrapeStatus:    model.StatusFailed,
			ScrapeError:     cause.Error(),
		},
	}
}

func displayName(s model.Storefront) string {
	if s.CreatorName != "" {
		return s.CreatorName
	}
	return s.Username
}

func listLabel(l *model.List) string {
	if l.ListName != "" {
		return l.ListName
	}
	return l.ListURL
}

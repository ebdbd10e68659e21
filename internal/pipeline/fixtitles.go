package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/extract"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
	"github.com/snirhassin/amazon-storefronts/internal/store"
)

// TitleFixer repairs product rows whose titles were captured as navigation
// noise ("Skip to main content" and friends) by revisiting the product detail
// page directly. Corrected rows are appended with a fresh timestamp; the
// downstream sync upserts by ASIN so the newest row wins.
type TitleFixer struct {
	session     browser.Session
	limiter     *ratelimit.Limiter
	handler     *store.Handler
	logger      *log.Logger
	marketplace string
}

func NewTitleFixer(session browser.Session, limiter *ratelimit.Limiter, handler *store.Handler, logger *log.Logger, marketplace string) *TitleFixer {
	if logger == nil {
		logger = log.Default()
	}
	if marketplace == "" {
		marketplace = "com"
	}
	return &TitleFixer{
		session:     session,
		limiter:     limiter,
		handler:     handler,
		logger:      logger,
		marketplace: marketplace,
	}
}

// Run scans the product file for bad titles and fixes up to limit of them
// (0 means all). Returns how many titles were repaired.
func (f *TitleFixer) Run(ctx context.Context, limit int) (int, error) {
	products, err := f.handler.ReadProducts()
	if err != nil {
		return 0, err
	}

	var bad []model.Product
	for _, p := range products {
		if extract.IsBadTitle(p.ProductTitle) {
			bad = append(bad, p)
		}
	}
	f.logger.Printf("found %d products with bad titles (of %d total)", len(bad), len(products))
	if len(bad) == 0 {
		return 0, nil
	}
	if limit > 0 && len(bad) > limit {
		bad = bad[:limit]
	}

	page, err := f.session.NewPage(ctx)
	if err != nil {
		return 0, fmt.Errorf("open page: %w", err)
	}
	defer page.Close(ctx)

	fixed := 0
	for i, p := range bad {
		if ctx.Err() != nil {
			break
		}
		f.logger.Printf("[%d/%d] %s", i+1, len(bad), p.ASIN)

		title, err := f.fetchTitle(ctx, page, p.ASIN)
		if err != nil {
			f.logger.Printf("  error: %v", err)
		} else if title == "" || extract.IsBadTitle(title) {
			f.logger.Printf("  no usable title found")
		} else {
			p.ProductTitle = title
			p.ScrapedAt = time.Now().UTC()
			if err := f.handler.AppendProducts([]model.Product{p}); err != nil {
				return fixed, err
			}
			fixed++
			f.logger.Printf("  fixed: %s", title)
		}

		if i < len(bad)-1 {
			if err := f.limiter.WaitBetweenPages(ctx); err != nil {
				break
			}
		}
	}

	f.logger.Printf("title fix pass complete: %d of %d repaired", fixed, len(bad))
	return fixed, nil
}

func (f *TitleFixer) fetchTitle(ctx context.Context, page browser.Page, asin string) (string, error) {
	url := fmt.Sprintf("https://www.amazon.%s/dp/%s", f.marketplace, asin)
	if err := page.Goto(ctx, url, browser.NavigateOptions{WaitUntil: "domcontentloaded", Timeout: navigateTimeout}); err != nil {
		return "", err
	}
	if err := f.limiter.Wait(ctx, 0); err != nil {
		return "", err
	}
	snap, err := page.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return extract.ExtractProductTitle(snap), nil
}

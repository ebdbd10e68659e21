package discovery

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
)

const googleResultsPerPage = 100

// GoogleSource discovers storefronts through paginated site-scoped searches.
// Search result pages need a scripted browser; Google serves challenge pages
// to bare HTTP clients almost immediately.
type GoogleSource struct {
	session     browser.Session
	limiter     *ratelimit.Limiter
	logger      *log.Logger
	marketplace string
	maxPages    int
}

func NewGoogleSource(session browser.Session, limiter *ratelimit.Limiter, logger *log.Logger, marketplace string, maxPages int) *GoogleSource {
	if logger == nil {
		logger = log.Default()
	}
	if maxPages <= 0 {
		maxPages = 20
	}
	return &GoogleSource{
		session:     session,
		limiter:     limiter,
		logger:      logger,
		marketplace: marketplace,
		maxPages:    maxPages,
	}
}

func (g *GoogleSource) Name() string { return model.SourceGoogle }

// Discover paginates the site query up to the page budget, stopping early on
// an exhausted result set or an anti-bot challenge page. A challenge halts
// the source with whatever was gathered; it does not fail the run.
func (g *GoogleSource) Discover(ctx context.Context) ([]model.Candidate, error) {
	page, err := g.session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close(ctx)

	query := fmt.Sprintf("site:amazon.%s/shop/", g.marketplace)
	g.logger.Printf("searching for %q across %d pages", query, g.maxPages)

	var candidates []model.Candidate
	seen := make(map[string]struct{})

	for pageNum := 0; pageNum < g.maxPages; pageNum++ {
		start := pageNum * googleResultsPerPage
		searchURL := fmt.Sprintf("https://www.google.com/search?q=%s&num=%d&start=%d",
			url.QueryEscape(query), googleResultsPerPage, start)

		err := page.Goto(ctx, searchURL, browser.NavigateOptions{WaitUntil: "networkidle", Timeout: 30 * time.Second})
		if err != nil {
			g.logger.Printf("  page %d: %v", pageNum+1, err)
			if backoffErr := g.limiter.ExponentialBackoff(ctx, 0); backoffErr != nil {
				return candidates, backoffErr
			}
			continue
		}

		snap, err := page.Snapshot(ctx)
		if err != nil {
			g.logger.Printf("  page %d snapshot: %v", pageNum+1, err)
			continue
		}

		if isChallenge(snap) {
			g.logger.Printf("  challenge page detected, stopping pagination")
			break
		}

		found := 0
		for _, link := range snap.FindAll(browser.WithHrefContains("/shop/")) {
			if !strings.Contains(link.Href, "amazon.") {
				continue
			}
			c, ok := ParseStorefrontURL(link.Href, model.SourceGoogle, time.Now().UTC())
			if !ok {
				continue
			}
			found++
			if _, dup := seen[c.StorefrontID]; dup {
				continue
			}
			seen[c.StorefrontID] = struct{}{}
			candidates = append(candidates, c)
		}

		if found == 0 {
			g.logger.Printf("  no more results, stopping pagination")
			break
		}
		g.logger.Printf("  page %d: %d links (total unique: %d)", pageNum+1, found, len(candidates))

		if pageNum < g.maxPages-1 {
			if err := g.limiter.WaitBetweenPages(ctx); err != nil {
				return candidates, err
			}
		}
	}

	g.logger.Printf("google discovery complete: %d unique storefronts", len(candidates))
	return candidates, nil
}

// isChallenge recognizes anti-bot interstitials well enough to stop looping
// against them.
func isChallenge(snap *browser.Snapshot) bool {
	if _, ok := snap.Find(browser.WithClassContains("captcha")); ok {
		return true
	}
	lower := strings.ToLower(snap.Title + " " + snap.BodyText)
	return strings.Contains(lower, "unusual traffic") || strings.Contains(lower, "captcha")
}

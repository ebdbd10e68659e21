package discovery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
)

const (
	feedIdleThreshold = 5
	feedScrollStep    = 2000
)

// LiveFeedSource discovers storefronts from the infinite-scroll live feed:
// scroll, harvest newly rendered links, repeat until a run of scrolls yields
// nothing new.
type LiveFeedSource struct {
	session     browser.Session
	limiter     *ratelimit.Limiter
	logger      *log.Logger
	marketplace string
	maxScrolls  int
}

func NewLiveFeedSource(session browser.Session, limiter *ratelimit.Limiter, logger *log.Logger, marketplace string, maxScrolls int) *LiveFeedSource {
	if logger == nil {
		logger = log.Default()
	}
	if maxScrolls <= 0 {
		maxScrolls = 30
	}
	return &LiveFeedSource{
		session:     session,
		limiter:     limiter,
		logger:      logger,
		marketplace: marketplace,
		maxScrolls:  maxScrolls,
	}
}

func (l *LiveFeedSource) Name() string { return model.SourceAmazonLive }

func (l *LiveFeedSource) Discover(ctx context.Context) ([]model.Candidate, error) {
	page, err := l.session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close(ctx)

	feedURL := fmt.Sprintf("https://www.amazon.%s/live", l.marketplace)
	l.logger.Printf("navigating to live feed: %s", feedURL)

	if err := page.Goto(ctx, feedURL, browser.NavigateOptions{WaitUntil: "networkidle", Timeout: 30 * time.Second}); err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}

	var candidates []model.Candidate
	seen := make(map[string]struct{})
	idleScrolls := 0

	for scroll := 0; scroll < l.maxScrolls; scroll++ {
		snap, err := page.Snapshot(ctx)
		if err != nil {
			l.logger.Printf("  snapshot: %v", err)
			break
		}

		newFound := 0
		for _, link := range snap.FindAll(browser.WithHrefContains("/shop/")) {
			c, ok := ParseStorefrontURL(link.Href, model.SourceAmazonLive, time.Now().UTC())
			if !ok {
				continue
			}
			if _, dup := seen[c.StorefrontID]; dup {
				continue
			}
			seen[c.StorefrontID] = struct{}{}
			candidates = append(candidates, c)
			newFound++
		}

		if newFound == 0 {
			idleScrolls++
		} else {
			idleScrolls = 0
			l.logger.Printf("  found %d unique storefronts so far", len(candidates))
		}

		// After a run of empty scrolls, a "load more" affordance is the last
		// chance before giving up.
		if idleScrolls >= feedIdleThreshold {
			clicked, err := page.ClickByText(ctx, "load more", "show more", "see more")
			if err != nil || !clicked {
				l.logger.Printf("  no new content after %d scrolls, stopping", idleScrolls)
				break
			}
			idleScrolls = 0
			if err := l.limiter.Wait(ctx, 3*time.Second); err != nil {
				return candidates, err
			}
			continue
		}

		if err := page.ScrollBy(ctx, feedScrollStep); err != nil {
			l.logger.Printf("  scroll: %v", err)
			break
		}
		if err := l.limiter.Wait(ctx, 2*time.Second); err != nil {
			return candidates, err
		}
	}

	l.logger.Printf("live feed discovery complete: %d unique storefronts", len(candidates))
	return candidates, nil
}

package discovery

import (
	"context"
	"log"
	"time"

	"github.com/gocolly/colly"

	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
)

// Article is one curated roundup page known to enumerate many storefronts.
type Article struct {
	Name string
	URL  string
}

// DefaultArticles are roundup posts that link dozens of storefronts each.
// These are static pages; no scripted browser needed.
var DefaultArticles = []Article{
	{Name: "Influence Agency - Top Creators", URL: "https://theinfluenceagency.com/blog/amazon-storefront-top-creators-2025"},
	{Name: "Amra & Elma - Top 25 Influencers", URL: "https://www.amraandelma.com/top-influencers-with-amazon-storefronts/"},
	{Name: "Amra & Elma - Top Stores by Sales", URL: "https://www.amraandelma.com/top-amazon-influencer-stores-by-sales-in-2025/"},
	{Name: "Influencer Marketing Hub", URL: "https://influencermarketinghub.com/top-amazon-influencers/"},
	{Name: "BQool - Top Amazon Influencers", URL: "https://blog.bqool.com/top-amazon-influencers/"},
	{Name: "AlgoRift - Top 50 Influencers", URL: "https://algorift.io/amazon-influencer-storefront/"},
	{Name: "Creator Hero - Best Storefronts", URL: "https://www.creator-hero.com/blog/best-amazon-influencer-storefronts"},
	{Name: "Stack Influence - Find Influencers", URL: "https://stackinfluence.com/find-amazon-influencers-and-their-storefronts/"},
	{Name: "Modash - Find Amazon Influencers", URL: "https://www.modash.io/blog/how-to-find-amazon-influencers"},
	{Name: "Feedspot - Top 100 Influencers", URL: "https://influencers.feedspot.com/amazon_instagram_influencers/"},
}

// ArticleSource scrapes curated roundup articles for storefront links.
type ArticleSource struct {
	articles  []Article
	limiter   *ratelimit.Limiter
	logger    *log.Logger
	userAgent string
}

func NewArticleSource(articles []Article, limiter *ratelimit.Limiter, logger *log.Logger, userAgent string) *ArticleSource {
	if len(articles) == 0 {
		articles = DefaultArticles
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ArticleSource{articles: articles, limiter: limiter, logger: logger, userAgent: userAgent}
}

func (a *ArticleSource) Name() string { return model.SourceCuratedList }

// Discover visits each article and collects every storefront link found
// anywhere on the page, recording the article as provenance context. A
// failing article is logged and skipped.
func (a *ArticleSource) Discover(ctx context.Context) ([]model.Candidate, error) {
	found := make(map[string]model.Candidate)
	var order []string
	currentArticle := ""

	c := colly.NewCollector()
	c.UserAgent = a.userAgent

	c.OnHTML("a[href]", func(h *colly.HTMLElement) {
		href := h.Request.AbsoluteURL(h.Attr("href"))
		cand, ok := ParseStorefrontURL(href, model.SourceCuratedList, time.Now().UTC())
		if !ok {
			return
		}
		if _, dup := found[cand.StorefrontID]; dup {
			return
		}
		cand.SourceName = currentArticle
		found[cand.StorefrontID] = cand
		order = append(order, cand.StorefrontID)
	})

	for i, article := range a.articles {
		if err := ctx.Err(); err != nil {
			return collect(found, order), err
		}

		a.logger.Printf("[%d/%d] %s", i+1, len(a.articles), article.Name)
		currentArticle = article.Name
		before := len(found)

		if err := c.Visit(article.URL); err != nil {
			a.logger.Printf("  error: %v", err)
		} else {
			a.logger.Printf("  %d new (total: %d)", len(found)-before, len(found))
		}

		if i < len(a.articles)-1 {
			if err := a.limiter.WaitBetweenPages(ctx); err != nil {
				return collect(found, order), err
			}
		}
	}

	a.logger.Printf("curated article discovery complete: %d unique storefronts", len(found))
	return collect(found, order), nil
}

func collect(found map[string]model.Candidate, order []string) []model.Candidate {
	out := make([]model.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, found[id])
	}
	return out
}

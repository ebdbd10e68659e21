// Package pipeline wires discovery, scraping, persistence and checkpointing
// into one resumable run. The orchestrator walks the candidate queue in
// order; all parallelism is deliberately absent so the delay policy actually
// bounds the request rate.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/checkpoint"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
	"github.com/snirhassin/amazon-storefronts/internal/store"
)

// Options control one orchestrator run.
type Options struct {
	// ScrapeProducts enables list-page visits; off, only profiles and list
	// headers are collected.
	ScrapeProducts bool
	// MaxListsPerStorefront caps how many lists get a product pass.
	MaxListsPerStorefront int
	// Limit truncates the candidate queue; 0 means no cap.
	Limit int
	// Resume continues from the checkpoint instead of index 0.
	Resume bool
}

// Stats accumulates run totals for the closing summary.
type Stats struct {
	Total      int
	Processed  int
	Successful int
	Failed     int
	Lists      int
	Products   int
	StartedAt  time.Time
}

// DiscoverFunc produces candidates when no discovered-candidates file exists.
type DiscoverFunc func(ctx context.Context) ([]model.Candidate, error)

// Orchestrator owns the scrape loop. One instance per run.
type Orchestrator struct {
	session     browser.Session
	limiter     *ratelimit.Limiter
	checkpoints *checkpoint.Manager
	handler     *store.Handler
	discover    DiscoverFunc
	logger      *log.Logger
	opts        Options
	stats       Stats
}

func NewOrchestrator(session browser.Session, limiter *ratelimit.Limiter, checkpoints *checkpoint.Manager, handler *store.Handler, discover DiscoverFunc, logger *log.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		session:     session,
		limiter:     limiter,
		checkpoints: checkpoints,
		handler:     handler,
		discover:    discover,
		logger:      logger,
		opts:        opts,
	}
}

// Run executes the full pipeline: load or discover candidates, then scrape
// them one at a time with persistence and checkpoints along the way. Returns
// nil on clean completion and on cooperative cancellation; only persistence
// failures and an empty candidate set are fatal.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.stats = Stats{StartedAt: time.Now()}

	candidates, err := o.loadCandidates(ctx)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no storefront candidates to scrape")
	}

	if o.opts.Limit > 0 && len(candidates) > o.opts.Limit {
		o.logger.Printf("limiting run to first %d of %d candidates", o.opts.Limit, len(candidates))
		candidates = candidates[:o.opts.Limit]
	}
	o.stats.Total = len(candidates)

	cp, err := o.checkpoints.Load()
	if err != nil {
		return err
	}

	startIndex := 0
	if o.opts.Resume {
		startIndex = o.checkpoints.ResumeIndex(cp, candidates)
		if startIndex > 0 {
			o.logger.Printf("resuming from storefront %d of %d", startIndex+1, len(candidates))
		}
	}

	scraper := NewStorefrontScraper(o.session, o.limiter, o.logger, o.opts.ScrapeProducts, o.opts.MaxListsPerStorefront)
	o.limiter.ResetRequestCount()
	o.logger.Printf("entering scraping phase: %d storefronts", len(candidates))

	for i := startIndex; i < len(candidates); i++ {
		if ctx.Err() != nil {
			o.logger.Printf("shutdown requested, stopping after %d storefronts", o.stats.Processed)
			break
		}

		c := candidates[i]
		o.logger.Printf("[%d/%d] %s", i+1, len(candidates), c.URL)

		result := scraper.Scrape(ctx, c.URL, c.DiscoverySource)
		if err := o.persist(result); err != nil {
			// Persist what the checkpoint knows before bailing out.
			_ = o.checkpoints.Save(cp)
			return err
		}

		o.stats.Processed++
		if result.Storefront.ScrapeStatus == model.StatusSuccess {
			o.stats.Successful++
			o.stats.Lists += len(result.Lists)
			o.stats.Products += len(result.Products)
		} else {
			o.stats.Failed++
			o.checkpoints.AddFailedURL(cp, c.URL)
		}

		if err := o.checkpoints.UpdateScrapingProgress(cp, i, c.StorefrontID, len(candidates)); err != nil {
			return err
		}

		if i < len(candidates)-1 {
			if err := o.limiter.WaitBetweenStorefronts(ctx); err != nil {
				break
			}
			if err := o.limiter.WaitForBatch(ctx); err != nil {
				break
			}
		}
	}

	if err := o.checkpoints.Save(cp); err != nil {
		return err
	}
	o.printSummary()
	return nil
}

// loadCandidates prefers the discovered-candidates file; when it is absent or
// empty the discovery phase runs first.
func (o *Orchestrator) loadCandidates(ctx context.Context) ([]model.Candidate, error) {
	candidates, err := o.handler.LoadDiscovered()
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		o.logger.Printf("loaded %d discovered storefronts", len(candidates))
		return candidates, nil
	}

	if o.discover == nil {
		return nil, nil
	}
	o.logger.Printf("no discovered storefronts on disk, entering discovery phase")
	return o.discover(ctx)
}

func (o *Orchestrator) persist(result Result) error {
	if err := o.handler.AppendStorefronts([]model.Storefront{result.Storefront}); err != nil {
		return err
	}
	if len(result.Lists) > 0 {
		if err := o.handler.AppendLists(result.Lists); err != nil {
			return err
		}
	}
	if len(result.Products) > 0 {
		if err := o.handler.AppendProducts(result.Products); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) printSummary() {
	elapsed := time.Since(o.stats.StartedAt)

	o.logger.Printf("==========================================")
	o.logger.Printf("scrape complete in %s", elapsed.Round(time.Second))
	o.logger.Printf("  storefronts: %d processed, %d ok, %d failed",
		o.stats.Processed, o.stats.Successful, o.stats.Failed)
	o.logger.Printf("  lists: %d, products: %d", o.stats.Lists, o.stats.Products)
	if o.stats.Processed > 0 && elapsed > 0 {
		perHour := float64(o.stats.Processed) / elapsed.Hours()
		o.logger.Printf("  throughput: %.1f storefronts/hour", perHour)
	}
	o.logger.Printf("==========================================")
}

// RunStats returns the totals of the last Run.
func (o *Orchestrator) RunStats() Stats {
	return o.stats
}

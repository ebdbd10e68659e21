// Command scraper runs the storefront scraping pipeline: it loads (or
// discovers) storefront candidates, visits each one, and appends profiles,
// lists and products to the output CSVs with resumable checkpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/checkpoint"
	"github.com/snirhassin/amazon-storefronts/internal/config"
	"github.com/snirhassin/amazon-storefronts/internal/discovery"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/pipeline"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
	"github.com/snirhassin/amazon-storefronts/internal/store"
)

func main() {
	testMode := flag.Bool("test", false, "scrape only the first 3 storefronts")
	resume := flag.Bool("resume", false, "resume from the last checkpoint")
	limit := flag.Int("limit", 0, "scrape at most N storefronts (0 = all)")
	noProducts := flag.Bool("no-products", false, "skip list pages, collect profiles and list headers only")
	maxLists := flag.Int("max-lists", 20, "max lists per storefront to scrape products from")
	fixTitles := flag.Bool("fix-titles", false, "repair bad product titles instead of scraping")
	flag.Parse()

	logger := log.New(os.Stdout, "[scraper] ", log.LstdFlags)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.New(ratelimit.Options{
		MinDelay:        cfg.MinDelay,
		MaxDelay:        cfg.MaxDelay,
		StorefrontDelay: cfg.StorefrontDelay,
		BatchDelay:      cfg.BatchDelay,
		BatchSize:       cfg.BatchSize,
		Logger:          logger,
	})
	handler := store.NewHandler(cfg.OutputDir, cfg.InputDir, logger)
	session := browser.NewHTTPSession(cfg.UserAgent, logger)
	defer session.Close(context.Background())

	if *fixTitles {
		fixer := pipeline.NewTitleFixer(session, limiter, handler, logger, cfg.Marketplace)
		fixLimit := *limit
		if *testMode {
			fixLimit = 3
		}
		if _, err := fixer.Run(ctx, fixLimit); err != nil {
			logger.Fatalf("title fix failed: %v", err)
		}
		return
	}

	opts := pipeline.Options{
		ScrapeProducts:        !*noProducts,
		MaxListsPerStorefront: *maxLists,
		Limit:                 *limit,
		Resume:                *resume,
	}
	if *testMode {
		logger.Printf("test mode: limiting to 3 storefronts")
		opts.Limit = 3
	}

	checkpoints := checkpoint.NewManager(cfg.CheckpointPath, logger)
	discover := func(ctx context.Context) ([]model.Candidate, error) {
		runner := discovery.NewRunner(handler, logger)
		return runner.Run(ctx,
			discovery.NewGoogleSource(session, limiter, logger, cfg.Marketplace, 0),
			discovery.NewArticleSource(nil, limiter, logger, cfg.UserAgent),
		)
	}

	orchestrator := pipeline.NewOrchestrator(session, limiter, checkpoints, handler, discover, logger, opts)
	if err := orchestrator.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Printf("interrupted, progress saved")
			return
		}
		logger.Fatalf("pipeline failed: %v", err)
	}

	fmt.Printf("output written to %s\n", cfg.OutputDir)
}

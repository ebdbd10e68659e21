// Command discover runs only the discovery phase: it gathers storefront
// candidates from the enabled sources, deduplicates them, and writes the
// candidates file the scraper consumes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/snirhassin/amazon-storefronts/internal/browser"
	"github.com/snirhassin/amazon-storefronts/internal/checkpoint"
	"github.com/snirhassin/amazon-storefronts/internal/config"
	"github.com/snirhassin/amazon-storefronts/internal/discovery"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/ratelimit"
	"github.com/snirhassin/amazon-storefronts/internal/store"
)

func main() {
	sourcesFlag := flag.String("sources", "google,articles,live", "comma-separated sources to run (google, articles, live)")
	pages := flag.Int("pages", 20, "max search result pages for the google source")
	scrolls := flag.Int("scrolls", 30, "max feed scrolls for the live source")
	market := flag.String("market", "", "marketplace domain suffix (default from MARKETPLACE env)")
	testMode := flag.Bool("test", false, "shallow pass: 2 pages, 5 scrolls")
	flag.Parse()

	logger := log.New(os.Stdout, "[discover] ", log.LstdFlags)
	cfg := config.Load()
	if *market != "" {
		cfg.Marketplace = *market
	}
	if *testMode {
		*pages = 2
		*scrolls = 5
	}

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

	var sources []discovery.Source
	for _, name := range strings.Split(*sourcesFlag, ",") {
		switch strings.TrimSpace(name) {
		case "google":
			sources = append(sources, discovery.NewGoogleSource(session, limiter, logger, cfg.Marketplace, *pages))
		case "articles":
			sources = append(sources, discovery.NewArticleSource(nil, limiter, logger, cfg.UserAgent))
		case "live":
			sources = append(sources, discovery.NewLiveFeedSource(session, limiter, logger, cfg.Marketplace, *scrolls))
		case "":
		default:
			logger.Fatalf("unknown source %q (want google, articles, live)", name)
		}
	}
	if len(sources) == 0 {
		logger.Fatal("no discovery sources enabled")
	}

	runner := discovery.NewRunner(handler, logger)
	merged, err := runner.Run(ctx, sources...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Printf("interrupted")
			return
		}
		logger.Fatalf("discovery failed: %v", err)
	}

	recordProgress(checkpoint.NewManager(cfg.CheckpointPath, logger), sources, merged, logger)

	fmt.Printf("discovered %d unique storefronts\n", len(merged))
}

// recordProgress marks the completed sources in the checkpoint so a later
// scrape run can report where its candidates came from.
func recordProgress(manager *checkpoint.Manager, sources []discovery.Source, merged []model.Candidate, logger *log.Logger) {
	cp, err := manager.Load()
	if err != nil {
		logger.Printf("checkpoint load: %v", err)
		return
	}

	counts := make(map[string]int)
	for _, c := range merged {
		for _, s := range c.AllSources {
			counts[s]++
		}
	}

	for _, src := range sources {
		progress := model.SourceProgress{Completed: true, URLsFound: counts[src.Name()]}
		switch src.Name() {
		case model.SourceGoogle:
			cp.Discovery.Google = progress
		case model.SourceCuratedList:
			cp.Discovery.CuratedList = progress
		case model.SourceAmazonLive:
			cp.Discovery.AmazonLive = progress
		}
	}

	if err := manager.Save(cp); err != nil {
		logger.Printf("checkpoint save: %v", err)
	}
}

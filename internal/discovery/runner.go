package discovery

import (
	"context"
	"log"

	"github.com/snirhassin/amazon-storefronts/internal/dedupe"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/store"
)

// Runner executes a set of sources, merges their batches and writes the
// candidates file.
type Runner struct {
	handler *store.Handler
	logger  *log.Logger
}

func NewRunner(handler *store.Handler, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{handler: handler, logger: logger}
}

// Run collects candidates from every source, deduplicates across them, and
// rewrites the discovered-candidates file. A failing source contributes what
// it gathered before failing; only context cancellation aborts the pass.
func (r *Runner) Run(ctx context.Context, sources ...Source) ([]model.Candidate, error) {
	batches := make([][]model.Candidate, 0, len(sources))

	for _, src := range sources {
		r.logger.Printf("--- %s discovery ---", src.Name())
		batch, err := src.Discover(ctx)
		if len(batch) > 0 {
			batches = append(batches, batch)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			r.logger.Printf("%s discovery error: %v", src.Name(), err)
		}
		r.logger.Printf("%s: %d candidates", src.Name(), len(batch))
	}

	merged := dedupe.Merge(batches...)
	stats := dedupe.GetStats(merged)

	r.logger.Printf("deduplication complete: %d unique storefronts, %d from multiple sources",
		stats.Total, stats.MultiSource)
	for source, count := range stats.BySource {
		r.logger.Printf("  %s: %d", source, count)
	}

	if err := r.handler.SaveDiscovered(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Package checkpoint persists run progress so an interrupted scrape can
// resume without redoing work. The file is rewritten whole on every save;
// saves happen on a fixed cadence to bound crash loss to one interval.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/model"
)

const saveInterval = 25

// Manager reads and writes the checkpoint file. Single writer by
// construction; the orchestrator owns the only instance.
type Manager struct {
	path      string
	lastSaved int
	logger    *log.Logger
}

func NewManager(path string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{path: path, logger: logger}
}

// Load returns the persisted checkpoint, or a fresh empty one when the file
// does not exist. A missing file is the expected first-run state, not an
// error.
func (m *Manager) Load() (*model.Checkpoint, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Printf("no checkpoint found, starting fresh")
			return model.NewCheckpoint(), nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Scraping.FailedURLs == nil {
		cp.Scraping.FailedURLs = []string{}
	}
	m.lastSaved = cp.Scraping.Processed
	m.logger.Printf("loaded checkpoint: %d storefronts processed", cp.Scraping.Processed)
	return &cp, nil
}

// Save writes the whole checkpoint durably, creating the parent directory if
// needed.
func (m *Manager) Save(cp *model.Checkpoint) error {
	cp.LastUpdated = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	m.lastSaved = cp.Scraping.Processed
	m.logger.Printf("checkpoint saved: %d storefronts processed", m.lastSaved)
	return nil
}

// ShouldSave reports whether the cadence calls for a save at this count.
func (m *Manager) ShouldSave(processed int) bool {
	return processed > 0 && processed%saveInterval == 0 && processed > m.lastSaved
}

// UpdateScrapingProgress records one processed candidate and saves on the
// cadence boundary.
func (m *Manager) UpdateScrapingProgress(cp *model.Checkpoint, index int, storefrontID string, total int) error {
	cp.Scraping.Processed = index + 1
	cp.Scraping.LastProcessedID = storefrontID
	cp.Scraping.TotalStorefronts = total

	if m.ShouldSave(index + 1) {
		return m.Save(cp)
	}
	return nil
}

// AddFailedURL appends url to the failed list if not already present. The
// error text is logged rather than stored; the CSV row carries it.
func (m *Manager) AddFailedURL(cp *model.Checkpoint, url string) {
	for _, u := range cp.Scraping.FailedURLs {
		if u == url {
			return
		}
	}
	cp.Scraping.FailedURLs = append(cp.Scraping.FailedURLs, url)
}

// ResumeIndex locates last_processed_id in the current candidate ordering and
// returns the next index to process. If the id is absent (the candidate set
// changed between runs) it returns 0: resume degrades to start-over.
func (m *Manager) ResumeIndex(cp *model.Checkpoint, candidates []model.Candidate) int {
	id := cp.Scraping.LastProcessedID
	if id == "" {
		return 0
	}
	for i, c := range candidates {
		if c.StorefrontID == id || c.URL == id {
			return i + 1
		}
	}
	return 0
}

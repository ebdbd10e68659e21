package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snirhassin/amazon-storefronts/internal/model"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), "checkpoint.json"), nil)
}

func TestLoadMissingFileStartsFresh(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cp.Scraping.Processed)
	assert.Empty(t, cp.Scraping.LastProcessedID)
	assert.NotNil(t, cp.Scraping.FailedURLs)
}

func TestSaveAndReload(t *testing.T) {
	m := newTestManager(t)

	cp := model.NewCheckpoint()
	cp.Scraping.Processed = 41
	cp.Scraping.LastProcessedID = "janedoe"
	cp.Scraping.TotalStorefronts = 100
	require.NoError(t, m.Save(cp))

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 41, loaded.Scraping.Processed)
	assert.Equal(t, "janedoe", loaded.Scraping.LastProcessedID)
	assert.Equal(t, 100, loaded.Scraping.TotalStorefronts)
	assert.False(t, loaded.LastUpdated.IsZero())
}

func TestSaveCadence(t *testing.T) {
	m := newTestManager(t)
	cp := model.NewCheckpoint()

	for i := 0; i < 24; i++ {
		require.NoError(t, m.UpdateScrapingProgress(cp, i, "id", 100))
	}
	// nothing hit disk yet
	_, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, m.lastSaved)

	require.NoError(t, m.UpdateScrapingProgress(cp, 24, "id-25", 100))
	assert.Equal(t, 25, m.lastSaved)

	// same count again does not re-save
	assert.False(t, m.ShouldSave(25))
}

func TestResumeIndex(t *testing.T) {
	m := newTestManager(t)
	candidates := []model.Candidate{
		{StorefrontID: "a", URL: "https://www.amazon.com/shop/a"},
		{StorefrontID: "b", URL: "https://www.amazon.com/shop/b"},
		{StorefrontID: "c", URL: "https://www.amazon.com/shop/c"},
	}

	cp := model.NewCheckpoint()
	assert.Equal(t, 0, m.ResumeIndex(cp, candidates))

	cp.Scraping.LastProcessedID = "b"
	assert.Equal(t, 2, m.ResumeIndex(cp, candidates))

	// matching by URL works too
	cp.Scraping.LastProcessedID = "https://www.amazon.com/shop/c"
	assert.Equal(t, 3, m.ResumeIndex(cp, candidates))

	// candidate set changed between runs: start over
	cp.Scraping.LastProcessedID = "gone"
	assert.Equal(t, 0, m.ResumeIndex(cp, candidates))
}

func TestAddFailedURLDeduplicates(t *testing.T) {
	m := newTestManager(t)
	cp := model.NewCheckpoint()

	m.AddFailedURL(cp, "https://www.amazon.com/shop/x")
	m.AddFailedURL(cp, "https://www.amazon.com/shop/x")
	m.AddFailedURL(cp, "https://www.amazon.com/shop/y")

	assert.Equal(t, []string{
		"https://www.amazon.com/shop/x",
		"https://www.amazon.com/shop/y",
	}, cp.Scraping.FailedURLs)
}

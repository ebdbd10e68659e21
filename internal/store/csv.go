// Package store persists normalized records as CSV. The three output tables
// (storefronts, lists, products) are append-only across runs; the discovered
// candidates file is rewritten whole after every discovery pass.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/snirhassin/amazon-storefronts/internal/model"
)

// utf8BOM prefixes every new file for Excel compatibility.
const utf8BOM = "\ufeff"

const (
	StorefrontsFile = "storefronts.csv"
	ListsFile       = "lists.csv"
	ProductsFile    = "products.csv"
	DiscoveredFile  = "discovered-urls.csv"
)

var storefrontFields = []string{
	"storefront_id", "storefront_url", "username", "creator_name", "bio",
	"profile_image_url", "is_top_creator", "storefront_likes", "follower_count",
	"total_lists", "total_products", "discovery_source", "marketplace",
	"scraped_at", "scrape_status", "scrape_error",
}

var listFields = []string{
	"list_id", "storefront_id", "list_name", "list_url", "likes_count",
	"products_count", "category", "position", "last_updated", "scraped_at",
}

var productFields = []string{
	"asin", "list_id", "storefront_id", "product_title", "price",
	"price_numeric", "currency", "image_url", "product_url",
	"position_in_list", "scraped_at",
}

var discoveredFields = []string{
	"storefront_id", "url", "username", "discovery_source", "discovered_at",
}

// Handler owns the CSV files of one run. All writes happen on the
// orchestrator goroutine; no locking needed.
type Handler struct {
	outputDir string
	inputDir  string
	logger    *log.Logger
}

func NewHandler(outputDir, inputDir string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{outputDir: outputDir, inputDir: inputDir, logger: logger}
}

// AppendStorefronts appends storefront rows to storefronts.csv.
func (h *Handler) AppendStorefronts(rows []model.Storefront) error {
	records := make([][]string, 0, len(rows))
	for _, s := range rows {
		records = append(records, []string{
			s.StorefrontID, s.StorefrontURL, s.Username, s.CreatorName, s.Bio,
			s.ProfileImageURL, strconv.FormatBool(s.IsTopCreator),
			strconv.FormatInt(s.StorefrontLikes, 10),
			strconv.FormatInt(s.FollowerCount, 10),
			strconv.Itoa(s.TotalLists), strconv.Itoa(s.TotalProducts),
			s.DiscoverySource, s.Marketplace, formatTime(s.ScrapedAt),
			s.ScrapeStatus, s.ScrapeError,
		})
	}
	return h.appendCSV(filepath.Join(h.outputDir, StorefrontsFile), storefrontFields, records)
}

// AppendLists appends list rows. Lists without a resolvable owner storefront
// are orphans and are dropped here rather than persisted.
func (h *Handler) AppendLists(rows []model.List) error {
	records := make([][]string, 0, len(rows))
	for _, l := range rows {
		if l.StorefrontID == "" || l.StorefrontID == "unknown" {
			h.logger.Printf("dropping orphan list %s (no owner storefront)", l.ListID)
			continue
		}
		records = append(records, []string{
			l.ListID, l.StorefrontID, l.ListName, l.ListURL,
			strconv.FormatInt(l.LikesCount, 10), strconv.Itoa(l.ProductsCount),
			l.Category, strconv.Itoa(l.Position), formatTime(l.LastUpdated),
			formatTime(l.ScrapedAt),
		})
	}
	if len(records) == 0 {
		return nil
	}
	return h.appendCSV(filepath.Join(h.outputDir, ListsFile), listFields, records)
}

// AppendProducts appends product rows. Rows without a resolved ASIN never
// reach this point; the extractor drops them.
func (h *Handler) AppendProducts(rows []model.Product) error {
	records := make([][]string, 0, len(rows))
	for _, p := range rows {
		numeric := ""
		if p.PriceKnown {
			numeric = strconv.FormatFloat(p.PriceNumeric, 'f', -1, 64)
		}
		records = append(records, []string{
			p.ASIN, p.ListID, p.StorefrontID, p.ProductTitle, p.Price,
			numeric, p.Currency, p.ImageURL, p.ProductURL,
			strconv.Itoa(p.PositionInList), formatTime(p.ScrapedAt),
		})
	}
	if len(records) == 0 {
		return nil
	}
	return h.appendCSV(filepath.Join(h.outputDir, ProductsFile), productFields, records)
}

// SaveDiscovered rewrites the discovered candidates file from scratch.
func (h *Handler) SaveDiscovered(candidates []model.Candidate) error {
	records := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		username := c.Username
		if username == "" {
			username = c.StorefrontID
		}
		records = append(records, []string{
			c.StorefrontID, c.URL, username, c.DiscoverySource, formatTime(c.DiscoveredAt),
		})
	}
	path := filepath.Join(h.inputDir, DiscoveredFile)
	if err := h.writeCSV(path, discoveredFields, records); err != nil {
		return err
	}
	h.logger.Printf("saved %d discovered storefronts to %s", len(candidates), DiscoveredFile)
	return nil
}

// LoadDiscovered reads the candidates file. A missing file returns an empty
// slice; that just means discovery has not run yet.
func (h *Handler) LoadDiscovered() ([]model.Candidate, error) {
	rows, err := h.readCSV(filepath.Join(h.inputDir, DiscoveredFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, model.Candidate{
			StorefrontID:    r["storefront_id"],
			URL:             r["url"],
			Username:        r["username"],
			DiscoverySource: r["discovery_source"],
			DiscoveredAt:    parseTime(r["discovered_at"]),
		})
	}
	return candidates, nil
}

// ReadStorefronts reads storefronts.csv back into records. Used by the
// downstream sync stage and by dedupe-against-known filtering.
func (h *Handler) ReadStorefronts() ([]model.Storefront, error) {
	rows, err := h.readCSV(filepath.Join(h.outputDir, StorefrontsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.Storefront, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Storefront{
			StorefrontID:    r["storefront_id"],
			StorefrontURL:   r["storefront_url"],
			Username:        r["username"],
			CreatorName:     r["creator_name"],
			Bio:             r["bio"],
			ProfileImageURL: r["profile_image_url"],
			IsTopCreator:    r["is_top_creator"] == "true",
			StorefrontLikes: parseInt64(r["storefront_likes"]),
			FollowerCount:   parseInt64(r["follower_count"]),
			TotalLists:      int(parseInt64(r["total_lists"])),
			TotalProducts:   int(parseInt64(r["total_products"])),
			DiscoverySource: r["discovery_source"],
			Marketplace:     r["marketplace"],
			ScrapedAt:       parseTime(r["scraped_at"]),
			ScrapeStatus:    r["scrape_status"],
			ScrapeError:     r["scrape_error"],
		})
	}
	return out, nil
}

// ReadLists reads lists.csv back into records.
func (h *Handler) ReadLists() ([]model.List, error) {
	rows, err := h.readCSV(filepath.Join(h.outputDir, ListsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.List, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.List{
			ListID:        r["list_id"],
			StorefrontID:  r["storefront_id"],
			ListName:      r["list_name"],
			ListURL:       r["list_url"],
			LikesCount:    parseInt64(r["likes_count"]),
			ProductsCount: int(parseInt64(r["products_count"])),
			Category:      r["category"],
			Position:      int(parseInt64(r["position"])),
			LastUpdated:   parseTime(r["last_updated"]),
			ScrapedAt:     parseTime(r["scraped_at"]),
		})
	}
	return out, nil
}

// ReadProducts reads products.csv back into records.
func (h *Handler) ReadProducts() ([]model.Product, error) {
	rows, err := h.readCSV(filepath.Join(h.outputDir, ProductsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.Product, 0, len(rows))
	for _, r := range rows {
		p := model.Product{
			ASIN:           r["asin"],
			ListID:         r["list_id"],
			StorefrontID:   r["storefront_id"],
			ProductTitle:   r["product_title"],
			Price:          r["price"],
			Currency:       r["currency"],
			ImageURL:       r["image_url"],
			ProductURL:     r["product_url"],
			PositionInList: int(parseInt64(r["position_in_list"])),
			ScrapedAt:      parseTime(r["scraped_at"]),
		}
		if v := r["price_numeric"]; v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				p.PriceNumeric = f
				p.PriceKnown = true
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (h *Handler) writeCSV(path string, fields []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(fields); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return f.Close()
}

func (h *Handler) appendCSV(path string, fields []string, records [][]string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return h.writeCSV(path, fields, records)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	return f.Close()
}

func (h *Handler) readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(content), utf8BOM)))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	header := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

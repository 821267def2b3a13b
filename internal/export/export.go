// Package export writes run results as timestamped JSON documents and reads
// them back.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autoriven/scraper/internal/domain"

	log "github.com/sirupsen/logrus"
)

const (
	KindCategories = "categories"
	KindProducts   = "products"
	KindRetries    = "retries"

	fileTimeFormat = "20060102_150405"
)

// Document is the export artifact.
type Document struct {
	ScrapedAt       string            `json:"scrapedAt"` // RFC3339
	TotalCategories int               `json:"totalCategories"`
	TotalProducts   int               `json:"totalProducts"`
	LevelBreakdown  map[int]int       `json:"levelBreakdown"` // Categories per depth
	Categories      []domain.Category `json:"categories"`
	Products        []domain.Product  `json:"products"`
}

// NewDocument builds a document and its totals.
func NewDocument(scrapedAt time.Time, categories []domain.Category, products []domain.Product) *Document {
	if categories == nil {
		categories = []domain.Category{}
	}
	if products == nil {
		products = []domain.Product{}
	}
	breakdown := make(map[int]int)
	for _, c := range categories {
		breakdown[c.Depth]++
	}
	return &Document{
		ScrapedAt:       scrapedAt.UTC().Format(time.RFC3339),
		TotalCategories: len(categories),
		TotalProducts:   len(products),
		LevelBreakdown:  breakdown,
		Categories:      categories,
		Products:        products,
	}
}

// Writer stores documents under a directory.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, now: time.Now}
}

// Write stores doc as <dir>/<kind>_<timestamp>.json and returns the path.
func (w *Writer) Write(kind string, doc *Document) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir %s: %w", w.dir, err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", kind, w.now().UTC().Format(fileTimeFormat)))
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s export: %w", kind, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}

	log.Infof("💾 Exported %d categories and %d products to %s", doc.TotalCategories, doc.TotalProducts, path)
	return path, nil
}

// Load reads a document written by Write.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode export %s: %w", path, err)
	}
	return &doc, nil
}

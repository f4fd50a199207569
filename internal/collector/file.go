// Package collector supplies raw candidates from the source marketplace.
package collector

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"relist/internal/model"
	"relist/internal/service"
)

// sourceItem is one product in a collector export file.
type sourceItem struct {
	SourceID  string   `json:"source_id"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	Price     float64  `json:"price"`
	Rating    float64  `json:"rating"`
	WeightKG  float64  `json:"weight_kg"`
	MediaRefs []string `json:"media_refs"`
}

// FileCollector reads candidates from a JSON export of the source
// marketplace. A missing or malformed file is a transient condition: the run
// proceeds with nothing to do and the next scheduled pass tries again.
type FileCollector struct {
	path string
}

// NewFileCollector creates a collector reading from the given file.
func NewFileCollector(path string) *FileCollector {
	return &FileCollector{path: path}
}

// Collect implements service.Collector.
func (c *FileCollector) Collect(ctx context.Context, maxItems int) ([]model.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		slog.Warn("Source file unavailable, collecting nothing this run",
			"path", c.path,
			"error", err)
		return []model.Candidate{}, nil
	}

	var items []sourceItem
	if err := json.Unmarshal(data, &items); err != nil {
		slog.Warn("Source file unreadable, collecting nothing this run",
			"path", c.path,
			"error", err)
		return []model.Candidate{}, nil
	}

	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	candidates := make([]model.Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, model.Candidate{
			SourceID:    item.SourceID,
			Title:       item.Title,
			Category:    item.Category,
			MediaRefs:   item.MediaRefs,
			State:       model.StateDiscovered,
			SourcePrice: item.Price,
			Rating:      item.Rating,
			WeightKG:    item.WeightKG,
		})
	}
	return candidates, nil
}

// Ensure FileCollector satisfies the collector contract.
var _ service.Collector = (*FileCollector)(nil)

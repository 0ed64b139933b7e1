// Package registry provides the dataset listing adapter.
// Implements ports.DatasetRegistry over <data root>/listing.json.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
)

// ListingFile is the listing's name inside the data root.
const ListingFile = "listing.json"

// ListingRegistry reads the dataset listing from disk on every call.
type ListingRegistry struct {
	path   string
	logger *slog.Logger
}

// NewListingRegistry creates a registry rooted at dataRoot.
func NewListingRegistry(dataRoot string, logger *slog.Logger) *ListingRegistry {
	return NewListingRegistryAt(filepath.Join(dataRoot, ListingFile), logger)
}

// NewListingRegistryAt creates a registry reading the listing at path.
func NewListingRegistryAt(path string, logger *slog.Logger) *ListingRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingRegistry{
		path:   path,
		logger: logger.With("listing", path),
	}
}

// Path returns the listing file location.
func (r *ListingRegistry) Path() string {
	return r.path
}

// LoadDatasets reads the listing. Any read or parse failure yields an empty slice.
func (r *ListingRegistry) LoadDatasets(ctx context.Context) []entities.Dataset {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("listing.json not found")
		return []entities.Dataset{}
	}
	if err != nil {
		r.logger.Warn("reading listing", "error", err)
		return []entities.Dataset{}
	}

	var datasets []entities.Dataset
	if err := json.Unmarshal(data, &datasets); err != nil {
		r.logger.Warn("invalid listing JSON", "error", err)
		return []entities.Dataset{}
	}
	if datasets == nil {
		datasets = []entities.Dataset{}
	}
	return datasets
}

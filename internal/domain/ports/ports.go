// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
)

// DatasetRegistry lists the datasets available for querying.
type DatasetRegistry interface {
	// LoadDatasets reads the current listing. Failures degrade to an empty slice.
	LoadDatasets(ctx context.Context) []entities.Dataset
}

// QueryInvoker runs a question against a built GraphRAG index.
type QueryInvoker interface {
	// Invoke returns the engine's answer, or an *entities.ExternalProcessError
	// when the engine exits non-zero.
	Invoke(ctx context.Context, datasetPath, question, method string) (string, error)
}

// HistoryStore persists answered questions.
type HistoryStore interface {
	Record(ctx context.Context, entry entities.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]entities.HistoryEntry, error)
	Close() error
}

// ListingWatcher monitors the data root for listing changes.
type ListingWatcher interface {
	// Watch starts monitoring dir and emits events for the listing file.
	Watch(ctx context.Context, dir string) (<-chan ListingEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// ListingEvent represents a change to the listing file.
type ListingEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

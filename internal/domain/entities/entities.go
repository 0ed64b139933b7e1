// Package entities contains core business entities.
// These are plain domain objects with no knowledge of HTTP, files or subprocesses.
package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultMethod is the GraphRAG search method used when the form omits one.
const DefaultMethod = "global"

// StderrLimit is the number of stderr characters kept in a failure answer.
const StderrLimit = 500

// failurePrefix heads every synthesized failure answer.
const failurePrefix = "GraphRAG query failed:\n"

// ErrInvalidRequest is returned when a question is empty or names an unknown dataset.
var ErrInvalidRequest = errors.New("please enter a question and choose a dataset")

// Dataset describes one pre-built GraphRAG index listed in listing.json.
type Dataset struct {
	Key  string `json:"key"`
	Path string `json:"path"` // Relative to the data root
}

// DatasetIndex is a key lookup over a dataset listing.
// Duplicate keys resolve to the last occurrence, listed at the first occurrence's position.
type DatasetIndex struct {
	order []string
	byKey map[string]Dataset
}

// NewDatasetIndex indexes datasets by key. Entries without a key are not addressable.
func NewDatasetIndex(datasets []Dataset) *DatasetIndex {
	idx := &DatasetIndex{byKey: make(map[string]Dataset, len(datasets))}
	for _, d := range datasets {
		if d.Key == "" {
			continue
		}
		if _, seen := idx.byKey[d.Key]; !seen {
			idx.order = append(idx.order, d.Key)
		}
		idx.byKey[d.Key] = d
	}
	return idx
}

// Lookup returns the dataset registered under key.
func (idx *DatasetIndex) Lookup(key string) (Dataset, bool) {
	d, ok := idx.byKey[key]
	return d, ok
}

// List returns the indexed datasets in listing order.
func (idx *DatasetIndex) List() []Dataset {
	out := make([]Dataset, 0, len(idx.order))
	for _, key := range idx.order {
		out = append(out, idx.byKey[key])
	}
	return out
}

// Len returns the number of distinct keys.
func (idx *DatasetIndex) Len() int {
	return len(idx.order)
}

// QueryRequest is a question submitted against one dataset.
type QueryRequest struct {
	Question   string
	DatasetKey string
	Method     string
}

// Normalize trims the question and method and fills in the default method.
func (r QueryRequest) Normalize() QueryRequest {
	r.Question = strings.TrimSpace(r.Question)
	r.Method = strings.TrimSpace(r.Method)
	if r.Method == "" {
		r.Method = DefaultMethod
	}
	return r
}

// QueryResult is what the page shows after a question was answered or failed.
type QueryResult struct {
	Request  QueryRequest
	Answer   string
	Failed   bool
	Datasets []Dataset // Listing used to validate the request
	Duration time.Duration
}

// ExternalProcessError reports a GraphRAG run that did not exit cleanly.
type ExternalProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ExternalProcessError) Error() string {
	return fmt.Sprintf("graphrag exited with code %d", e.ExitCode)
}

// FailureAnswer builds the answer text shown for a failed run.
// The ellipsis is appended even when stderr is shorter than the limit.
func FailureAnswer(stderr string) string {
	return failurePrefix + truncateRunes(stderr, StderrLimit) + "..."
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// HistoryEntry records one answered question.
type HistoryEntry struct {
	ID         string
	AskedAt    time.Time
	DatasetKey string
	Method     string
	Question   string
	Answer     string
	Failed     bool
	Duration   time.Duration
}

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Category string // "danger", "warning", "info"
	Message  string
}

// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
	"github.com/0xcro3dile/graphrag-web/internal/domain/ports"
)

// AskUseCase validates a question, runs it through GraphRAG and shapes the result.
type AskUseCase struct {
	registry ports.DatasetRegistry
	invoker  ports.QueryInvoker
	history  ports.HistoryStore // nil when history is disabled
	dataRoot string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewAskUseCase creates an AskUseCase with injected dependencies.
// A zero timeout leaves the GraphRAG run bounded only by ctx.
func NewAskUseCase(
	registry ports.DatasetRegistry,
	invoker ports.QueryInvoker,
	history ports.HistoryStore,
	dataRoot string,
	timeout time.Duration,
	logger *slog.Logger,
) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		registry: registry,
		invoker:  invoker,
		history:  history,
		dataRoot: dataRoot,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Datasets returns the current listing, deduplicated by key.
func (uc *AskUseCase) Datasets(ctx context.Context) []entities.Dataset {
	return entities.NewDatasetIndex(uc.registry.LoadDatasets(ctx)).List()
}

// ResolvePath maps a dataset onto the filesystem under the data root.
// Absolute listing paths are used as-is.
func (uc *AskUseCase) ResolvePath(d entities.Dataset) string {
	if filepath.IsAbs(d.Path) {
		return d.Path
	}
	return filepath.Join(uc.dataRoot, d.Path)
}

// Ask answers req. It returns entities.ErrInvalidRequest without running GraphRAG
// when the question is blank or the dataset is unknown. GraphRAG failures are
// folded into the result, never returned.
func (uc *AskUseCase) Ask(ctx context.Context, req entities.QueryRequest) (*entities.QueryResult, error) {
	req = req.Normalize()

	index := entities.NewDatasetIndex(uc.registry.LoadDatasets(ctx))
	dataset, ok := index.Lookup(req.DatasetKey)
	if req.Question == "" || !ok {
		return nil, entities.ErrInvalidRequest
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	path := uc.ResolvePath(dataset)
	start := uc.now()
	answer, err := uc.invoker.Invoke(ctx, path, req.Question, req.Method)

	result := &entities.QueryResult{
		Request:  req,
		Answer:   answer,
		Datasets: index.List(),
		Duration: uc.now().Sub(start),
	}

	if err != nil {
		var perr *entities.ExternalProcessError
		if !errors.As(err, &perr) {
			perr = &entities.ExternalProcessError{ExitCode: -1, Stderr: err.Error()}
		}
		uc.logger.Warn("graphrag query failed",
			"dataset", req.DatasetKey,
			"method", req.Method,
			"exit_code", perr.ExitCode,
			"error", err)
		result.Answer = entities.FailureAnswer(perr.Stderr)
		result.Failed = true
	}

	uc.record(ctx, start, result)
	return result, nil
}

// History returns the most recent answered questions, or nil when disabled.
func (uc *AskUseCase) History(ctx context.Context, limit int) ([]entities.HistoryEntry, error) {
	if uc.history == nil {
		return nil, nil
	}
	return uc.history.Recent(ctx, limit)
}

// HistoryEnabled reports whether answered questions are persisted.
func (uc *AskUseCase) HistoryEnabled() bool {
	return uc.history != nil
}

func (uc *AskUseCase) record(ctx context.Context, askedAt time.Time, result *entities.QueryResult) {
	if uc.history == nil {
		return
	}
	entry := entities.HistoryEntry{
		ID:         uuid.NewString(),
		AskedAt:    askedAt,
		DatasetKey: result.Request.DatasetKey,
		Method:     result.Request.Method,
		Question:   result.Request.Question,
		Answer:     result.Answer,
		Failed:     result.Failed,
		Duration:   result.Duration,
	}
	// The query context may already be past its deadline.
	if err := uc.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		uc.logger.Error("recording history", "error", err)
	}
}

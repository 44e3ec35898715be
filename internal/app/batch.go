package app

import (
	"context"

	"github.com/sourcegraph/conc/pool"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

// Batch item statuses
const (
	BatchReady = "ready"
	BatchError = "error"
)

// BatchItem is the metadata outcome for one URL of a batch
type BatchItem struct {
	URL      string  `json:"url"`
	Status   string  `json:"status"`
	Title    string  `json:"title,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// BatchResult holds per-URL outcomes in request order
type BatchResult struct {
	Count   int         `json:"count"`
	Results []BatchItem `json:"results"`
}

// Batch resolves metadata for every URL concurrently. Malformed URLs become
// error entries without a network call; one failing URL never fails the batch.
func (o *Orchestrator) Batch(ctx context.Context, urls []string) (*BatchResult, error) {
	if len(urls) == 0 {
		return nil, domain.NewInputError("urls", "at least one URL is required")
	}

	workers := o.config.BatchConcurrency
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchItem, len(urls))
	p := pool.New().WithMaxGoroutines(workers)
	for i, url := range urls {
		p.Go(func() {
			results[i] = o.batchItem(ctx, url)
		})
	}
	p.Wait()

	ready := 0
	for _, item := range results {
		if item.Status == BatchReady {
			ready++
		}
	}

	o.logger.Info("Batch resolved",
		zap.Int("urls", len(urls)),
		zap.Int("ready", ready))
	return &BatchResult{Count: ready, Results: results}, nil
}

func (o *Orchestrator) batchItem(ctx context.Context, url string) BatchItem {
	item := BatchItem{URL: url}
	if err := ValidateURL(url); err != nil {
		item.Status = BatchError
		item.Message = err.Error()
		return item
	}

	info, err := o.Extract(ctx, url, "")
	if err != nil {
		item.Status = BatchError
		item.Message = err.Error()
		return item
	}
	item.Status = BatchReady
	item.Title = info.Title
	item.Duration = info.Duration
	return item
}

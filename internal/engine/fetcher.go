package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/thUser005/project-stocks-profits/internal/logging"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

// QuoteSource fetches the most recent candle for one symbol.
type QuoteSource interface {
	LatestCandle(ctx context.Context, symbol string, intervalMinutes int) (*models.Candle, error)
	Candles(ctx context.Context, symbol string, startMs, endMs int64, intervalMinutes int) ([]models.Candle, error)
}

// Fetcher gathers one quote per symbol under a fixed concurrency cap.
// A symbol whose fetch fails after retries maps to nil; one failure
// never aborts the batch.
type Fetcher struct {
	source         QuoteSource
	concurrency    int
	retry          utils.RetryConfig
	intervalMinute int
	logger         zerolog.Logger
}

// NewFetcher creates a fetcher. Concurrency values below one are lifted
// to one.
func NewFetcher(source QuoteSource, concurrency, retries int, retryDelay time.Duration, intervalMinutes int, logger zerolog.Logger) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		source:         source,
		concurrency:    concurrency,
		retry:          utils.FixedRetryConfig(retries, retryDelay),
		intervalMinute: intervalMinutes,
		logger:         logging.WithComponent(logger, "fetcher"),
	}
}

// FetchAll fetches the latest candle for every symbol and returns a map
// with exactly one entry per requested symbol. Failed symbols carry a
// nil value. Duplicate symbols in the input collapse to one entry.
func (f *Fetcher) FetchAll(ctx context.Context, symbols []string) map[string]*models.Candle {
	results := make(map[string]*models.Candle, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}

		symbol := symbol
		g.Go(func() error {
			candle := f.fetchOne(gctx, symbol)
			mu.Lock()
			results[symbol] = candle
			mu.Unlock()
			// Errors are absorbed into nil entries so the group never
			// cancels sibling fetches.
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, symbol string) *models.Candle {
	candle, err := utils.RetryWithResult(ctx, f.retry, func() (*models.Candle, error) {
		return f.source.LatestCandle(ctx, symbol, f.intervalMinute)
	})
	if err != nil {
		logging.LogFetchFailure(f.logger, symbol, f.retry.MaxAttempts, err)
		return nil
	}
	return candle
}

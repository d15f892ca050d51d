package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/thUser005/project-stocks-profits/internal/models"
)

// fakeQuoteSource serves scripted candles and tracks concurrency.
type fakeQuoteSource struct {
	mu       sync.Mutex
	latest   map[string][]*models.Candle
	history  map[string][]models.Candle
	fail     map[string]error
	calls    map[string]int
	attempts map[string]int

	inFlight    int32
	maxInFlight int32
	delay       time.Duration
}

func newFakeQuoteSource() *fakeQuoteSource {
	return &fakeQuoteSource{
		latest:   make(map[string][]*models.Candle),
		history:  make(map[string][]models.Candle),
		fail:     make(map[string]error),
		calls:    make(map[string]int),
		attempts: make(map[string]int),
	}
}

func (f *fakeQuoteSource) LatestCandle(ctx context.Context, symbol string, intervalMinutes int) (*models.Candle, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if current <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[symbol]++
	if err, ok := f.fail[symbol]; ok {
		return nil, err
	}
	queue := f.latest[symbol]
	if len(queue) == 0 {
		return nil, nil
	}
	idx := f.calls[symbol]
	if idx >= len(queue) {
		idx = len(queue) - 1
	}
	f.calls[symbol]++
	return queue[idx], nil
}

func (f *fakeQuoteSource) Candles(ctx context.Context, symbol string, startMs, endMs int64, intervalMinutes int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[symbol]; ok {
		return nil, err
	}
	return f.history[symbol], nil
}

func candleAt(t time.Time, close float64) *models.Candle {
	return &models.Candle{Timestamp: t, Open: close, High: close, Low: close, Close: close}
}

func TestFetchAllOneEntryPerSymbol(t *testing.T) {
	source := newFakeQuoteSource()
	source.latest["A"] = []*models.Candle{candleAt(ist(10, 0), 100)}
	source.latest["B"] = []*models.Candle{candleAt(ist(10, 0), 200)}
	source.fail["C"] = errors.New("provider down")

	fetcher := NewFetcher(source, 4, 1, 0, 3, zerolog.Nop())
	results := fetcher.FetchAll(context.Background(), []string{"A", "B", "C"})

	if len(results) != 3 {
		t.Fatalf("got %d entries, want 3", len(results))
	}
	if results["A"] == nil || results["A"].Close != 100 {
		t.Errorf("A = %+v, want close 100", results["A"])
	}
	if results["B"] == nil || results["B"].Close != 200 {
		t.Errorf("B = %+v, want close 200", results["B"])
	}
	if results["C"] != nil {
		t.Errorf("C = %+v, want nil after failure", results["C"])
	}
}

func TestFetchAllEveryFetchFailing(t *testing.T) {
	source := newFakeQuoteSource()
	symbols := []string{"A", "B", "C", "D"}
	for _, s := range symbols {
		source.fail[s] = errors.New("provider down")
	}

	fetcher := NewFetcher(source, 2, 2, 0, 3, zerolog.Nop())
	results := fetcher.FetchAll(context.Background(), symbols)

	if len(results) != len(symbols) {
		t.Fatalf("got %d entries, want %d", len(results), len(symbols))
	}
	for _, s := range symbols {
		candle, ok := results[s]
		if !ok {
			t.Errorf("no entry for %s", s)
		}
		if candle != nil {
			t.Errorf("%s = %+v, want nil", s, candle)
		}
	}
}

func TestFetchAllDeduplicatesSymbols(t *testing.T) {
	source := newFakeQuoteSource()
	source.latest["A"] = []*models.Candle{candleAt(ist(10, 0), 100)}

	fetcher := NewFetcher(source, 2, 1, 0, 3, zerolog.Nop())
	results := fetcher.FetchAll(context.Background(), []string{"A", "A", "A"})

	if len(results) != 1 {
		t.Fatalf("got %d entries, want 1", len(results))
	}
	f := source
	f.mu.Lock()
	calls := f.calls["A"]
	f.mu.Unlock()
	if calls != 1 {
		t.Errorf("source called %d times, want 1", calls)
	}
}

func TestFetchAllHonorsConcurrencyCap(t *testing.T) {
	source := newFakeQuoteSource()
	source.delay = 10 * time.Millisecond
	symbols := make([]string, 20)
	for i := range symbols {
		symbols[i] = string(rune('A' + i))
		source.latest[symbols[i]] = []*models.Candle{candleAt(ist(10, 0), 100)}
	}

	limit := 3
	fetcher := NewFetcher(source, limit, 1, 0, 3, zerolog.Nop())
	fetcher.FetchAll(context.Background(), symbols)

	if max := atomic.LoadInt32(&source.maxInFlight); int(max) > limit {
		t.Errorf("max in-flight = %d, limit = %d", max, limit)
	}
}

func TestFetchAllRetriesBeforeGivingUp(t *testing.T) {
	source := newFakeQuoteSource()
	source.fail["A"] = errors.New("transient")

	fetcher := NewFetcher(source, 1, 3, time.Millisecond, 3, zerolog.Nop())
	results := fetcher.FetchAll(context.Background(), []string{"A"})

	if results["A"] != nil {
		t.Fatalf("A = %+v, want nil", results["A"])
	}
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.attempts["A"] != 3 {
		t.Errorf("attempts = %d, want 3", source.attempts["A"])
	}
}

// Package quotes provides the Groww charting-service client used for
// live and historical NSE candles.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/thUser005/project-stocks-profits/internal/errors"
	"github.com/thUser005/project-stocks-profits/internal/logging"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/internal/resilience"
)

// Config holds configuration for the quote client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	// RequestsPerSecond paces outbound calls across all goroutines.
	// Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// Client fetches OHLCV candles from the Groww charting service.
// One Client is shared by every fetch goroutine; the limiter and the
// circuit breaker are the only synchronization it needs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	logger     zerolog.Logger
}

// NewClient creates a new quote client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst == 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		breaker:    resilience.NewCircuitBreaker("groww", resilience.DefaultCircuitBreakerConfig()),
		logger:     logging.WithComponent(logger, "quotes"),
	}
}

// chartResponse is the provider's wire format: each candle is a
// positional array [epoch_sec, open, high, low, close, volume].
type chartResponse struct {
	Candles [][]json.Number `json:"candles"`
}

// Candles returns the ordered candle list for a symbol inside
// [startMs, endMs]. An empty slice is valid: no trading in the window.
func (c *Client) Candles(ctx context.Context, symbol string, startMs, endMs int64, intervalMinutes int) ([]models.Candle, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return resilience.ExecuteWithResult(c.breaker, ctx, func() ([]models.Candle, error) {
		return c.fetchCandles(ctx, symbol, startMs, endMs, intervalMinutes)
	})
}

// LatestCandle returns the most recent interval bar for a symbol, or
// nil when the provider has nothing for the window.
func (c *Client) LatestCandle(ctx context.Context, symbol string, intervalMinutes int) (*models.Candle, error) {
	end := time.Now().UnixMilli()
	start := end - int64(intervalMinutes)*60*1000

	candles, err := c.Candles(ctx, symbol, start, end, intervalMinutes)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}
	last := candles[len(candles)-1]
	return &last, nil
}

func (c *Client) fetchCandles(ctx context.Context, symbol string, startMs, endMs int64, intervalMinutes int) ([]models.Candle, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating chart request: %w", err)
	}

	q := req.URL.Query()
	q.Set("intervalInMinutes", fmt.Sprintf("%d", intervalMinutes))
	q.Set("startTimeInMillis", fmt.Sprintf("%d", startMs))
	q.Set("endTimeInMillis", fmt.Sprintf("%d", endMs))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("x-app-id", "growwWeb")
	req.Header.Set("user-agent", "Mozilla/5.0")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	logging.LogAPICall(c.logger, http.MethodGet, req.URL.Path, time.Since(started), err)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewAPIError("groww", resp.StatusCode, symbol, apperrors.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewAPIError("groww", resp.StatusCode, symbol, nil)
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding chart response for %s: %w", symbol, err)
	}

	candles := make([]models.Candle, 0, len(body.Candles))
	for _, raw := range body.Candles {
		candle, err := parseCandle(raw)
		if err != nil {
			c.logger.Debug().Str("symbol", symbol).Err(err).Msg("Skipping malformed candle")
			continue
		}
		candles = append(candles, candle)
	}

	// Provider order is usually ascending already; the replay path
	// depends on it, so enforce rather than assume.
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	return candles, nil
}

// parseCandle converts a positional [ts, o, h, l, c, v] array into a
// named struct. Volume may be absent on index candles.
func parseCandle(raw []json.Number) (models.Candle, error) {
	if len(raw) < 5 {
		return models.Candle{}, fmt.Errorf("candle has %d fields, want at least 5", len(raw))
	}

	ts, err := raw[0].Int64()
	if err != nil {
		return models.Candle{}, fmt.Errorf("candle timestamp: %w", err)
	}

	fields := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := raw[i+1].Float64()
		if err != nil {
			return models.Candle{}, fmt.Errorf("candle field %d: %w", i+1, err)
		}
		fields[i] = v
	}

	var volume int64
	if len(raw) >= 6 {
		volume, _ = raw[5].Int64()
	}

	return models.Candle{
		Timestamp: time.Unix(ts, 0),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    volume,
	}, nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() resilience.CircuitState {
	return c.breaker.State()
}

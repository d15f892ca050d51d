// Package signals provides the client for the external signal source.
// The source is the system of record: the engine re-queries it every
// cycle and never persists its own copy beyond one cycle.
package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/thUser005/project-stocks-profits/internal/errors"
	"github.com/thUser005/project-stocks-profits/internal/logging"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

// Source is the read-only view of the signal service the engine needs.
type Source interface {
	Fetch(ctx context.Context, date string) ([]models.Signal, error)
}

// Client fetches the day's signal records over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new signal source client.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.WithComponent(logger, "signals"),
	}
}

// signalsResponse is the signal service wire format.
type signalsResponse struct {
	Found bool            `json:"found"`
	Data  []models.Signal `json:"data"`
}

// Fetch returns the active signals for a trade date (YYYY-MM-DD; empty
// means today in IST). A "not found" response is valid and yields an
// empty list: it means no signals yet, not an error.
func (c *Client) Fetch(ctx context.Context, date string) ([]models.Signal, error) {
	if date == "" {
		date = utils.TradeDate(time.Now())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/signals", nil)
	if err != nil {
		return nil, fmt.Errorf("creating signals request: %w", err)
	}

	q := req.URL.Query()
	q.Set("date", date)
	req.URL.RawQuery = q.Encode()

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	logging.LogAPICall(c.logger, http.MethodGet, "/api/signals", time.Since(started), err)
	if err != nil {
		return nil, fmt.Errorf("fetching signals for %s: %w", date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewAPIError("signals", resp.StatusCode, date, nil)
	}

	var body signalsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding signals response: %w", err)
	}

	if !body.Found {
		c.logger.Debug().Str("date", date).Msg("No signals published yet")
		return nil, nil
	}

	return body.Data, nil
}

// Package orders provides the GTT order-placement client. Placement is
// a side effect of an ENTRY event: a failure is reported, never retried,
// so a flaky backend cannot produce duplicate live orders.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/thUser005/project-stocks-profits/internal/errors"
	"github.com/thUser005/project-stocks-profits/internal/logging"
	"github.com/thUser005/project-stocks-profits/internal/models"
)

// Placer is the order-placement surface the engine depends on.
type Placer interface {
	PlaceGTT(ctx context.Context, req Request) (*Result, error)
}

// Request describes one GTT order. The backend computes entry, target
// and stoploss itself; the caller only decides instrument, side and qty.
type Request struct {
	Instrument string      `json:"instrument"`
	SymbolKey  string      `json:"symbol_key"`
	Quantity   int         `json:"qty"`
	Side       models.Side `json:"transaction_type"`
	Product    string      `json:"product"`
}

// Result is the backend's acknowledgement of a placed order.
type Result struct {
	GTTID string
}

// Client places GTT orders against the dashboard backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new GTT client.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.WithComponent(logger, "orders"),
	}
}

type placeResponse struct {
	Success bool   `json:"success"`
	GTTID   string `json:"gtt_id"`
	Error   string `json:"error"`
}

// PlaceGTT places one intraday GTT order. The product is always forced
// to intraday regardless of what the caller set.
func (c *Client) PlaceGTT(ctx context.Context, req Request) (*Result, error) {
	req.Product = "I"
	if !strings.Contains(req.Instrument, "NSE") {
		req.Instrument = "NSE_EQ|" + req.Instrument
	}
	if req.Side == "" {
		req.Side = models.SideBuy
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling GTT request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/gtt/place", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating GTT request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	logging.LogAPICall(c.logger, http.MethodPost, "/api/gtt/place", time.Since(started), err)
	if err != nil {
		return nil, &apperrors.OrderError{SymbolKey: req.SymbolKey, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	var placed placeResponse
	if err := json.NewDecoder(resp.Body).Decode(&placed); err != nil {
		return nil, &apperrors.OrderError{SymbolKey: req.SymbolKey, Reason: "bad response", Err: err}
	}

	if !placed.Success {
		reason := placed.Error
		if reason == "" {
			reason = fmt.Sprintf("backend returned status %d", resp.StatusCode)
		}
		return nil, &apperrors.OrderError{SymbolKey: req.SymbolKey, Reason: reason}
	}

	c.logger.Info().
		Str("symbol_key", req.SymbolKey).
		Str("gtt_id", placed.GTTID).
		Int("qty", req.Quantity).
		Msg("GTT order placed")

	return &Result{GTTID: placed.GTTID}, nil
}

// Package quant holds the deterministic market-data analysts: a daily price
// history client and the indicator-driven technical and risk verdicts built
// on top of it.
package quant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"market-intel/internal/domain"
)

// HTTPPriceFeed implements domain.PriceFeed against the market-data
// service's daily candle endpoint.
type HTTPPriceFeed struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPPriceFeed(baseURL string, timeout time.Duration, logger *slog.Logger, client *http.Client) *HTTPPriceFeed {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPPriceFeed{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
	}
}

type candleDTO struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type dailyResponse struct {
	Symbol  string      `json:"symbol"`
	Candles []candleDTO `json:"candles"`
	Count   int         `json:"count"`
}

// Daily fetches up to days daily candles for subject, oldest first.
func (c *HTTPPriceFeed) Daily(ctx context.Context, subject string, days int) ([]domain.Candle, error) {
	endpoint := fmt.Sprintf("%s/v1/candles/daily?symbol=%s&days=%d",
		c.baseURL, url.QueryEscape(subject), days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily candles: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var response dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	candles := make([]domain.Candle, 0, len(response.Candles))
	for _, dto := range response.Candles {
		t, err := time.Parse(time.RFC3339, dto.Time)
		if err != nil {
			c.logger.Warn("candle_time_unparseable",
				slog.String("symbol", subject),
				slog.String("time", dto.Time))
			continue
		}
		candles = append(candles, domain.Candle{
			Time:   t,
			Open:   dto.Open,
			High:   dto.High,
			Low:    dto.Low,
			Close:  dto.Close,
			Volume: dto.Volume,
		})
	}
	return candles, nil
}

var _ domain.PriceFeed = (*HTTPPriceFeed)(nil)

// Package weather fetches the current in-game weather report used to
// decorate stock digests. The report is best effort; digests go out
// without it when the endpoint is down.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultURL is the public weather endpoint.
const DefaultURL = "https://growagardenstock.com/api/stock/weather"

// Report describes the current in-game weather and its crop effects.
type Report struct {
	Icon        string `json:"icon"`
	WeatherType string `json:"weatherType"`
	Description string `json:"description"`
	CropBonuses string `json:"cropBonuses"`
}

// Client fetches weather reports.
type Client struct {
	httpClient *http.Client
	url        string
}

// New creates a weather client. url defaults to DefaultURL when empty.
func New(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
	}
}

// Current fetches the current weather report.
func (c *Client) Current(ctx context.Context) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch weather: status %d", resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode weather: %w", err)
	}
	return &report, nil
}

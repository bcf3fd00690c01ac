package fxrates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fetcher retrieves the current rate from an upstream source.
type Fetcher interface {
	Fetch(ctx context.Context) (Rate, error)
}

// Client talks to a DolarApi compatible endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient constructs a client for url with the given request timeout.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	Average   decimal.Decimal `json:"promedio"`
	UpdatedAt string          `json:"fechaActualizacion"`
}

// Fetch performs GET url and decodes the official average rate.
func (c *Client) Fetch(ctx context.Context) (Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Rate{}, fmt.Errorf("fxrates: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Rate{}, fmt.Errorf("fxrates: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Rate{}, fmt.Errorf("fxrates: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		return Rate{}, fmt.Errorf("fxrates: decode: %w", err)
	}
	if !payload.Average.IsPositive() {
		return Rate{}, ErrInvalidRate
	}

	now := time.Now().UTC()
	updated := now
	if payload.UpdatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, payload.UpdatedAt); err == nil {
			updated = ts
		}
	}
	return Rate{
		Value:     payload.Average,
		Source:    SourceBCV,
		UpdatedAt: updated,
		FetchedAt: now,
	}, nil
}

package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

// Client fetches quotes from the external forex service.
type Client struct {
	baseURL    string
	ttl        time.Duration
	httpClient *http.Client
}

func NewClient(baseURL string, ttl time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		ttl:     ttl,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type rateResponse struct {
	Rate      decimal.Decimal `json:"rate"`
	Fee       decimal.Decimal `json:"fee"`
	Timestamp time.Time       `json:"timestamp"`
}

func (c *Client) GetQuote(ctx context.Context, from, to domain.Currency) (*Quote, error) {
	if err := checkPair(from, to); err != nil {
		return nil, fmt.Errorf("GetQuote: %w", err)
	}

	log := logging.FromContext(ctx)
	url := fmt.Sprintf("%s/rates/%s/%s", c.baseURL, from, to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("GetQuote: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GetQuote: %v: %w", err, domain.ErrRateUnavailable)
	}
	defer resp.Body.Close()

	log.Debug("forex response received",
		"pair", string(from)+"/"+string(to),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GetQuote: unexpected status %d: %s: %w", resp.StatusCode, string(body), domain.ErrRateUnavailable)
	}

	var rr rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("GetQuote: decode: %v: %w", err, domain.ErrRateUnavailable)
	}
	if !rr.Rate.IsPositive() || rr.Fee.IsNegative() {
		return nil, fmt.Errorf("GetQuote: invalid rate %s fee %s: %w", rr.Rate, rr.Fee, domain.ErrRateUnavailable)
	}

	ts := rr.Timestamp.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return &Quote{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rr.Rate,
		BaseFeeRate:  rr.Fee,
		Timestamp:    ts,
		ExpiresAt:    ts.Add(c.ttl),
	}, nil
}

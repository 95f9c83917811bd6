package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

// Dispatch is what the partner network needs to pay out a transfer.
type Dispatch struct {
	TransferID     uuid.UUID
	Amount         decimal.Decimal
	Currency       domain.Currency
	DeliveryMethod domain.DeliveryMethod
	Recipient      domain.RecipientDetails
}

// Receipt is the partner network's acceptance of a dispatch.
type Receipt struct {
	Reference string
}

func DispatchFor(t *domain.Transfer) Dispatch {
	return Dispatch{
		TransferID:     t.ID,
		Amount:         t.ReceiveAmount,
		Currency:       t.ToCurrency,
		DeliveryMethod: t.DeliveryMethod,
		Recipient:      t.Recipient,
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type dispatchPayload struct {
	TransferID     string                  `json:"transfer_id"`
	Amount         string                  `json:"amount"`
	Currency       string                  `json:"currency"`
	DeliveryMethod string                  `json:"delivery_method"`
	Recipient      domain.RecipientDetails `json:"recipient"`
}

type dispatchResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// Send posts the dispatch to the partner network. A 4xx answer or an explicit
// rejection is permanent and wraps ErrDispatchRejected; anything else is
// worth retrying.
func (c *Client) Send(ctx context.Context, d Dispatch) (*Receipt, error) {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(dispatchPayload{
		TransferID:     d.TransferID.String(),
		Amount:         d.Amount.StringFixed(domain.MoneyScale),
		Currency:       string(d.Currency),
		DeliveryMethod: string(d.DeliveryMethod),
		Recipient:      d.Recipient,
	})
	if err != nil {
		return nil, fmt.Errorf("Send: marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/dispatch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Send: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", d.TransferID.String())

	start := time.Now()
	log.Info("network dispatch sent", "transfer_id", d.TransferID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Send: %w", err)
	}
	defer resp.Body.Close()

	log.Info("network response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("Send: unexpected status %d: %s", resp.StatusCode, string(raw))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("Send: status %d: %s: %w", resp.StatusCode, string(raw), domain.ErrDispatchRejected)
	}

	var out dispatchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("Send: decode: %w", err)
	}
	if out.Status == "rejected" {
		return nil, fmt.Errorf("Send: %s: %w", out.Reason, domain.ErrDispatchRejected)
	}
	if out.Reference == "" {
		return nil, fmt.Errorf("Send: accepted without a reference")
	}
	return &Receipt{Reference: out.Reference}, nil
}

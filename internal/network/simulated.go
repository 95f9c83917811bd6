package network

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

// Simulated accepts every dispatch after a fixed latency. It stands in for the
// partner network when PAYMENT_NETWORK_URL is unset.
type Simulated struct {
	latency time.Duration
}

func NewSimulated(latency time.Duration) *Simulated {
	return &Simulated{latency: latency}
}

func (s *Simulated) Send(ctx context.Context, d Dispatch) (*Receipt, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("Send: %w", ctx.Err())
	case <-time.After(s.latency):
	}

	if d.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("Send: non-positive payout: %w", domain.ErrDispatchRejected)
	}
	ref := "NET-" + strings.ToUpper(strings.ReplaceAll(d.TransferID.String(), "-", "")[:12])
	return &Receipt{Reference: ref}, nil
}

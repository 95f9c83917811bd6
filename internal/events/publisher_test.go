package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testMessage() TransferMessage {
	t := &domain.Transfer{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		FromCurrency: domain.CurrencyUSD,
		ToCurrency:   domain.CurrencyEUR,
		TotalAmount:  decimal.RequireFromString("1005"),
		Status:       domain.TransferStatusPending,
	}
	e := &domain.TransferEvent{
		ID:         uuid.New(),
		TransferID: t.ID,
		EventType:  domain.TransferEventCreated,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	return NewTransferMessage(t, e)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "transfer-events", logging.Discard())
	msg := testMessage()

	require.NoError(t, p.Publish(context.Background(), msg))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, msg.TransferID, string(w.msgs[0].Key))

	var got TransferMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "created", got.EventType)
	assert.Equal(t, "1005.00", got.TotalAmount)
	assert.Equal(t, "2026-01-02T03:04:05Z", got.OccurredAt)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, "transfer-events", logging.Discard())

	err := p.Publish(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

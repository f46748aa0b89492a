package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/order"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublish_KeysByOrder(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{w: w}

	ev := order.Event{
		Type:       order.EventPlaced,
		OrderID:    "ord-1",
		UserID:     "u1",
		Status:     order.StatusPending,
		Total:      decimal.RequireFromString("12.5"),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ord-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "order.placed", string(msg.Headers[0].Value))
	assert.JSONEq(t, `{
		"type": "order.placed",
		"order_id": "ord-1",
		"user_id": "u1",
		"status": "pending",
		"total": "12.50",
		"occurred_at": "2026-03-01T12:00:00Z"
	}`, string(msg.Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublish_WriterError(t *testing.T) {
	p := &Publisher{w: &recordingWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), order.Event{Type: order.EventItemDeleted, OrderID: "o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestDecode_StatusChange(t *testing.T) {
	in := order.Event{
		Type:           order.EventStatusChanged,
		OrderID:        "ord-2",
		Status:         order.StatusCancelled,
		PreviousStatus: order.StatusProcessing,
		OccurredAt:     time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
	}

	out, err := Decode(Encode(in))
	require.NoError(t, err)
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.PreviousStatus, out.PreviousStatus)
	assert.Equal(t, in.Status, out.Status)
	assert.True(t, in.OccurredAt.Equal(out.OccurredAt))
	assert.True(t, out.Total.IsZero())
}

func TestDecode_SkipsUnknownFields(t *testing.T) {
	out, err := Decode([]byte(`{"type":"order.item_deleted","order_id":"o","item_id":"i","extra":{"a":[1,2]}}`))
	require.NoError(t, err)
	assert.Equal(t, "i", out.ItemID)

	_, err = Decode([]byte(`{"total":"abc"}`))
	assert.Error(t, err)
}

// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

// messageWriter is the subset of *kafka.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ order.Publisher = (*Publisher)(nil)

// Publisher writes one message per event, keyed by order ID so every event
// for an order lands on the same partition.
type Publisher struct {
	w messageWriter
}

// NewPublisher returns a Publisher writing to topic on the given brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// Publish encodes e and writes it synchronously.
func (p *Publisher) Publish(ctx context.Context, e order.Event) error {
	msg := kafka.Message{
		Key:   []byte(e.OrderID),
		Value: Encode(e),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s", e.Type)
	}
	return nil
}

// Close flushes pending writes and releases connections.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Encode serializes an event as a JSON object. Empty optional fields are
// omitted.
func Encode(ev order.Event) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(ev.Type))
	e.FieldStart("order_id")
	e.Str(ev.OrderID)
	if ev.UserID != "" {
		e.FieldStart("user_id")
		e.Str(ev.UserID)
	}
	if ev.Status != "" {
		e.FieldStart("status")
		e.Str(string(ev.Status))
	}
	if ev.PreviousStatus != "" {
		e.FieldStart("previous_status")
		e.Str(string(ev.PreviousStatus))
	}
	if ev.ItemID != "" {
		e.FieldStart("item_id")
		e.Str(ev.ItemID)
	}
	if !ev.Total.IsZero() {
		e.FieldStart("total")
		e.Str(ev.Total.StringFixed(2))
	}
	e.FieldStart("occurred_at")
	e.Str(ev.OccurredAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (order.Event, error) {
	var ev order.Event
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "type":
			v, err := d.Str()
			ev.Type = order.EventType(v)
			return err
		case "order_id":
			v, err := d.Str()
			ev.OrderID = v
			return err
		case "user_id":
			v, err := d.Str()
			ev.UserID = v
			return err
		case "status":
			v, err := d.Str()
			ev.Status = order.Status(v)
			return err
		case "previous_status":
			v, err := d.Str()
			ev.PreviousStatus = order.Status(v)
			return err
		case "item_id":
			v, err := d.Str()
			ev.ItemID = v
			return err
		case "total":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.Total, err = decimal.NewFromString(v)
			return err
		case "occurred_at":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ev.OccurredAt, err = time.Parse(time.RFC3339Nano, v)
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return order.Event{}, errors.Wrap(err, "decode event")
	}
	return ev, nil
}

package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
)

// messageReader is the subset of *kafka.Reader used by Consumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// HandlerFunc processes one decoded event.
type HandlerFunc func(ctx context.Context, e order.Event) error

// Consumer reads order events as a member of a consumer group.
type Consumer struct {
	r  messageReader
	lg *zap.Logger
}

// NewConsumer returns a Consumer reading topic as group.
func NewConsumer(brokers []string, topic, group string, lg *zap.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  group,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  time.Second,
		}),
		lg: lg,
	}
}

// Run hands every event to handle until ctx is cancelled, committing each
// message once handled. Messages that do not decode are committed and
// skipped. A handler error stops the loop with the message uncommitted, so
// it is redelivered.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "fetch message")
		}

		ev, err := Decode(msg.Value)
		if err != nil {
			c.lg.Warn("Skipping undecodable event",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		} else if err := handle(ctx, ev); err != nil {
			return errors.Wrapf(err, "handle %s for order %s", ev.Type, ev.OrderID)
		}

		if err := c.r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "commit message")
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.r.Close()
}

// Command order-events tails the order event topic and logs every lifecycle
// change, giving operators an audit trail of placed, cancelled and edited
// orders.
package main

import (
	"context"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/events"
)

// Config holds the consumer settings, loadable from STOREFRONT_-prefixed
// environment variables, flags or YAML.
type Config struct {
	Kafka KafkaConfig
}

// KafkaConfig selects the topic and consumer group.
type KafkaConfig struct {
	Brokers []string `required:"true" usage:"Kafka bootstrap brokers" flag:"kafka-brokers"`
	Topic   string   `default:"storefront.orders" usage:"Topic with order lifecycle events" flag:"kafka-topic"`
	Group   string   `default:"storefront-order-audit" usage:"Consumer group ID" flag:"kafka-group"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, lg)
		defer func() {
			if err := c.Close(); err != nil {
				lg.Warn("Close consumer", zap.Error(err))
			}
		}()

		lg.Info("Consuming order events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
			zap.String("group", cfg.Kafka.Group),
		)
		return c.Run(ctx, logEvent(lg))
	})
}

func logEvent(lg *zap.Logger) events.HandlerFunc {
	return func(_ context.Context, e order.Event) error {
		fields := []zap.Field{
			zap.String("type", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.Time("occurred_at", e.OccurredAt),
		}
		if e.UserID != "" {
			fields = append(fields, zap.String("user_id", e.UserID))
		}
		if e.Status != "" {
			fields = append(fields, zap.String("status", string(e.Status)))
		}
		if e.PreviousStatus != "" {
			fields = append(fields, zap.String("previous_status", string(e.PreviousStatus)))
		}
		if e.ItemID != "" {
			fields = append(fields, zap.String("item_id", e.ItemID))
		}
		if !e.Total.IsZero() {
			fields = append(fields, zap.String("total", e.Total.StringFixed(2)))
		}
		lg.Info("Order event", fields...)
		return nil
	}
}

package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/netpulse/netpulse/agent/internal/config"
	"github.com/netpulse/netpulse/pkg/types"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes device messages to a single topic.
type Kafka struct {
	topic   string
	w       messageWriter
	timeout time.Duration
}

// NewKafka returns a Kafka sink. The underlying writer connects lazily on
// the first publish.
func NewKafka(cfg config.KafkaConfig) *Kafka {
	return &Kafka{
		topic: cfg.Topic,
		w: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
		timeout: cfg.WriteTimeout,
	}
}

func (k *Kafka) Name() string { return "kafka" }

// Publish writes one message per device in a single batch write.
func (k *Kafka) Publish(ctx context.Context, b *types.Batch) error {
	msgs := make([]kafka.Message, 0, len(b.Devices))
	for _, d := range b.Devices {
		payload, err := encode(b, d)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(d.DeviceID),
			Value:   payload,
			Time:    b.GeneratedAt,
			Headers: []kafka.Header{{Key: "batch_id", Value: []byte(b.ID)}},
		})
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}
	if err := k.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error { return k.w.Close() }

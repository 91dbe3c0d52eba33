package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/netpulse/netpulse/agent/internal/config"
	"github.com/netpulse/netpulse/pkg/types"
)

// Sink is a secondary batch destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, b *types.Batch) error
	Close() error
}

// DeviceMessage is the per-device payload written by every sink.
type DeviceMessage struct {
	BatchID     string       `json:"batch_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Device      types.Device `json:"device"`
}

func encode(b *types.Batch, d types.Device) ([]byte, error) {
	payload, err := json.Marshal(DeviceMessage{BatchID: b.ID, GeneratedAt: b.GeneratedAt, Device: d})
	if err != nil {
		return nil, fmt.Errorf("marshal device %s: %w", d.DeviceID, err)
	}
	return payload, nil
}

// FromConfig builds the enabled sinks. Sinks built before a failure are
// closed before the error is returned.
func FromConfig(cfg config.SinksConfig) ([]Sink, error) {
	var sinks []Sink
	if cfg.Kafka.Enabled() {
		sinks = append(sinks, NewKafka(cfg.Kafka))
	}
	if cfg.MQTT.Enabled() {
		m, err := NewMQTT(cfg.MQTT)
		if err != nil {
			CloseAll(sinks)
			return nil, err
		}
		sinks = append(sinks, m)
	}
	return sinks, nil
}

// PublishAll sends b to every sink. A failing sink does not stop the others;
// all failures are joined into the returned error.
func PublishAll(ctx context.Context, sinks []Sink, b *types.Batch) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Publish(ctx, b); err != nil {
			slog.Warn("sink: publish failed", "sink", s.Name(), "batch_id", b.ID, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		slog.Debug("sink: batch published", "sink", s.Name(), "batch_id", b.ID, "devices", len(b.Devices))
	}
	return errors.Join(errs...)
}

// CloseAll closes every sink, logging failures.
func CloseAll(sinks []Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			slog.Error("sink: close failed", "sink", s.Name(), "err", err)
		}
	}
}

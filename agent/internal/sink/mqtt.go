package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/netpulse/netpulse/agent/internal/config"
	"github.com/netpulse/netpulse/pkg/types"
)

const mqttDisconnectQuiesce = 250 // ms

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each device to <prefix>/<device_id>.
type MQTT struct {
	client     publisher
	disconnect func()
	prefix     string
	qos        byte
	timeout    time.Duration
}

// NewMQTT connects to the configured broker.
func NewMQTT(cfg config.MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.WriteTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password())
	}

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(cfg.WriteTimeout) {
		return nil, fmt.Errorf("sink: mqtt connect to %s: timed out after %s", cfg.Broker, cfg.WriteTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("sink: mqtt connect to %s: %w", cfg.Broker, err)
	}

	return &MQTT{
		client:     c,
		disconnect: func() { c.Disconnect(mqttDisconnectQuiesce) },
		prefix:     strings.TrimRight(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		timeout:    cfg.WriteTimeout,
	}, nil
}

func (m *MQTT) Name() string { return "mqtt" }

// Topic returns the topic a device is published to.
func (m *MQTT) Topic(deviceID string) string { return m.prefix + "/" + deviceID }

// Publish sends one message per device and waits for each acknowledgement.
func (m *MQTT) Publish(ctx context.Context, b *types.Batch) error {
	for _, d := range b.Devices {
		payload, err := encode(b, d)
		if err != nil {
			return err
		}
		topic := m.Topic(d.DeviceID)
		if err := m.wait(ctx, m.client.Publish(topic, m.qos, false, payload)); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}
	return nil
}

func (m *MQTT) wait(ctx context.Context, tok mqtt.Token) error {
	var timeout <-chan time.Time
	if m.timeout > 0 {
		t := time.NewTimer(m.timeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("timed out after %s", m.timeout)
	}
}

func (m *MQTT) Close() error {
	if m.disconnect != nil {
		m.disconnect()
	}
	return nil
}

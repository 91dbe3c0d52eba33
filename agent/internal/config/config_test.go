package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/netpulse/netpulse/pkg/types"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
agent:
  server_endpoint: "localhost:50051"
  interval: 2s
  buffer_size: 500
  simulation:
    devices: 12
    seed: 42
    weights:
      bandwidth: 0.5
      latency: 0.25
      packet_loss: 0.25
  sinks:
    kafka:
      brokers: ["kafka:9092"]
      topic: netpulse.devices
`
	cfg := loadFromString(t, yaml)

	if cfg.Agent.ServerEndpoint != "localhost:50051" {
		t.Errorf("server_endpoint: got %q", cfg.Agent.ServerEndpoint)
	}
	if cfg.Agent.Interval != 2*time.Second {
		t.Errorf("interval: got %v", cfg.Agent.Interval)
	}
	if cfg.Agent.BufferSize != 500 {
		t.Errorf("buffer_size: got %d", cfg.Agent.BufferSize)
	}
	sim := cfg.Agent.Simulation
	if sim.Devices != 12 {
		t.Errorf("devices: got %d", sim.Devices)
	}
	if sim.Seed == nil || *sim.Seed != 42 {
		t.Errorf("seed: got %v", sim.Seed)
	}
	want := types.Weights{Bandwidth: 0.5, Latency: 0.25, PacketLoss: 0.25}
	if sim.Weights != want {
		t.Errorf("weights: got %+v, want %+v", sim.Weights, want)
	}
	if !cfg.Agent.Sinks.Kafka.Enabled() {
		t.Error("kafka sink should be enabled")
	}
	if cfg.Agent.Sinks.MQTT.Enabled() {
		t.Error("mqtt sink should be disabled")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, `
agent:
  server_endpoint: "localhost:50051"
`)

	if cfg.Agent.Interval != DefaultInterval {
		t.Errorf("default interval: got %v, want %v", cfg.Agent.Interval, DefaultInterval)
	}
	if cfg.Agent.BufferSize != DefaultBufferSize {
		t.Errorf("default buffer_size: got %d, want %d", cfg.Agent.BufferSize, DefaultBufferSize)
	}
	if cfg.Agent.Simulation.Devices != DefaultDevices {
		t.Errorf("default devices: got %d, want %d", cfg.Agent.Simulation.Devices, DefaultDevices)
	}
	if cfg.Agent.Simulation.Seed != nil {
		t.Errorf("default seed: got %d, want nil", *cfg.Agent.Simulation.Seed)
	}
	if cfg.Agent.Simulation.Weights != types.DefaultWeights() {
		t.Errorf("default weights: got %+v", cfg.Agent.Simulation.Weights)
	}
	if cfg.Agent.Sinks.MQTT.TopicPrefix != DefaultMQTTTopicPrefix {
		t.Errorf("default mqtt topic_prefix: got %q", cfg.Agent.Sinks.MQTT.TopicPrefix)
	}
}

func TestLoad_PartialWeightsKeepDefaults(t *testing.T) {
	cfg := loadFromString(t, `
agent:
  server_endpoint: "localhost:50051"
  simulation:
    weights:
      latency: 0.9
`)
	w := cfg.Agent.Simulation.Weights
	if w.Latency != 0.9 {
		t.Errorf("latency weight: got %v", w.Latency)
	}
	if w.Bandwidth != types.DefaultBandwidthWeight || w.PacketLoss != types.DefaultPacketLossWeight {
		t.Errorf("untouched weights changed: %+v", w)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing server_endpoint", `
agent:
  interval: 5s
`},
		{"zero devices", `
agent:
  server_endpoint: "localhost:50051"
  simulation:
    devices: 0
`},
		{"negative interval", `
agent:
  server_endpoint: "localhost:50051"
  interval: -1s
`},
		{"unknown auth mode", `
agent:
  server_endpoint: "localhost:50051"
  server_auth:
    mode: magictoken
`},
		{"mtls without cert", `
agent:
  server_endpoint: "localhost:50051"
  server_auth:
    mode: mtls
`},
		{"kafka without topic", `
agent:
  server_endpoint: "localhost:50051"
  sinks:
    kafka:
      brokers: ["kafka:9092"]
`},
		{"mqtt qos out of range", `
agent:
  server_endpoint: "localhost:50051"
  sinks:
    mqtt:
      broker: "tcp://localhost:1883"
      qos: 3
`},
		{"bad yaml", "agent: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAuthConfig_Key(t *testing.T) {
	t.Setenv("TEST_API_KEY", "supersecret")
	a := AuthConfig{Mode: "apikey", KeyEnv: "TEST_API_KEY"}
	if got := a.Key(); got != "supersecret" {
		t.Errorf("Key(): got %q, want %q", got, "supersecret")
	}
	if got := a.EffectiveHeader(); got != DefaultAPIKeyHeader {
		t.Errorf("EffectiveHeader(): got %q", got)
	}
}

func TestAuthConfig_Key_Empty(t *testing.T) {
	a := AuthConfig{Mode: "apikey"}
	if got := a.Key(); got != "" {
		t.Errorf("Key() with no KeyEnv: got %q, want empty", got)
	}
}

func TestMQTTConfig_Password(t *testing.T) {
	t.Setenv("TEST_MQTT_PASSWORD", "hunter2")
	m := MQTTConfig{PasswordEnv: "TEST_MQTT_PASSWORD"}
	if got := m.Password(); got != "hunter2" {
		t.Errorf("Password(): got %q", got)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(devices string) {
		t.Helper()
		content := "agent:\n  server_endpoint: \"localhost:50051\"\n  simulation:\n    devices: " + devices + "\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	write("5")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { got <- c }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	write("0") // invalid: must not be delivered
	write("9")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Agent.Simulation.Devices == 0 {
				t.Fatal("invalid config delivered to onChange")
			}
			if c.Agent.Simulation.Devices == 9 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatch_SkipsRestartOnlyChanges(t *testing.T) {
	old := reloadDebounce
	reloadDebounce = 20 * time.Millisecond
	t.Cleanup(func() { reloadDebounce = old })

	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(endpoint, devices string) {
		t.Helper()
		content := "agent:\n  server_endpoint: \"" + endpoint + "\"\n  simulation:\n    devices: " + devices + "\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	write("localhost:50051", "5")

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *Config, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, func(c *Config) { got <- c })
	}()
	defer func() {
		cancel()
		<-done
	}()

	time.Sleep(100 * time.Millisecond)
	write("otherhost:50051", "5")
	select {
	case c := <-got:
		t.Fatalf("endpoint-only change delivered: %+v", c.Agent)
	case <-time.After(300 * time.Millisecond):
	}

	write("otherhost:50051", "7")
	select {
	case c := <-got:
		if c.Agent.Simulation.Devices != 7 {
			t.Errorf("devices: got %d, want 7", c.Agent.Simulation.Devices)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for simulation reload")
	}
}

func TestHotChanged(t *testing.T) {
	seed := int64(4)
	base := func() *Config {
		return &Config{Agent: AgentConfig{
			ServerEndpoint: "a:1",
			Interval:       time.Second,
			Simulation:     SimulationConfig{Devices: 5, Seed: &seed, Weights: types.DefaultWeights()},
		}}
	}

	same := base()
	otherSeed := int64(4)
	same.Agent.Simulation.Seed = &otherSeed
	if hotChanged(base(), same) {
		t.Error("equal seeds behind different pointers must not count as a change")
	}

	endpoint := base()
	endpoint.Agent.ServerEndpoint = "b:2"
	if hotChanged(base(), endpoint) || !restartChanged(base(), endpoint) {
		t.Error("endpoint is restart-only")
	}

	interval := base()
	interval.Agent.Interval = 2 * time.Second
	if !hotChanged(base(), interval) {
		t.Error("interval is hot-reloadable")
	}

	weights := base()
	weights.Agent.Simulation.Weights.Latency = 0.9
	if !hotChanged(base(), weights) || restartChanged(base(), weights) {
		t.Error("weights are hot-reloadable only")
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}

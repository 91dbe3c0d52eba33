package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netpulse/netpulse/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultInterval         = 10 * time.Second
	DefaultBufferSize       = 1000
	DefaultDevices          = 5
	DefaultAPIKeyHeader     = "x-api-key"
	DefaultMQTTTopicPrefix  = "netpulse/devices"
	DefaultMQTTClientID     = "netpulse-agent"
	DefaultSinkWriteTimeout = 5 * time.Second
)

// Config holds the agent-side configuration parsed from the `agent:` section
// of config.yaml. The `server:` key in the same file is ignored.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerEndpoint is the gRPC address of netpulse-server (host:port).
	ServerEndpoint string `yaml:"server_endpoint"`

	// Interval controls how often a new batch is simulated and shipped.
	Interval time.Duration `yaml:"interval"`

	// BufferSize is the maximum number of batches held in memory when
	// the server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// Simulation configures the generated batches.
	Simulation SimulationConfig `yaml:"simulation"`

	// ServerAuth configures how the agent authenticates to netpulse-server.
	ServerAuth AuthConfig `yaml:"server_auth"`

	// Sinks are optional secondary destinations for each batch.
	Sinks SinksConfig `yaml:"sinks"`
}

// SimulationConfig controls batch generation.
type SimulationConfig struct {
	// Devices is the number of devices per batch.
	Devices int `yaml:"devices"`

	// Seed makes the batch sequence reproducible. Unset means time-seeded.
	Seed *int64 `yaml:"seed"`

	// Weights are the scorer weights. Omitted fields keep their defaults.
	Weights types.Weights `yaml:"weights"`
}

// AuthConfig specifies how the agent authenticates to the server.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the gRPC metadata key carrying the API key.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns Header, or DefaultAPIKeyHeader if it is empty.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header == "" {
		return DefaultAPIKeyHeader
	}
	return a.Header
}

// SinksConfig lists the optional batch sinks. A sink is enabled when its
// broker address is set.
type SinksConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
}

// KafkaConfig publishes one message per device, keyed by device ID.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// MQTTConfig publishes one message per device to <topic_prefix>/<device_id>.
type MQTTConfig struct {
	Broker       string        `yaml:"broker"`
	ClientID     string        `yaml:"client_id"`
	TopicPrefix  string        `yaml:"topic_prefix"`
	QoS          byte          `yaml:"qos"`
	Username     string        `yaml:"username"`
	PasswordEnv  string        `yaml:"password_env"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

// Password returns the broker password resolved from the environment.
func (m MQTTConfig) Password() string {
	if m.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(m.PasswordEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			Interval:   DefaultInterval,
			BufferSize: DefaultBufferSize,
			Simulation: SimulationConfig{
				Devices: DefaultDevices,
				Weights: types.DefaultWeights(),
			},
			Sinks: SinksConfig{
				Kafka: KafkaConfig{WriteTimeout: DefaultSinkWriteTimeout},
				MQTT: MQTTConfig{
					ClientID:     DefaultMQTTClientID,
					TopicPrefix:  DefaultMQTTTopicPrefix,
					WriteTimeout: DefaultSinkWriteTimeout,
				},
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerEndpoint == "" {
		return fmt.Errorf("agent.server_endpoint is required")
	}
	if a.Interval <= 0 {
		return fmt.Errorf("agent.interval must be positive")
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	if a.Simulation.Devices <= 0 {
		return fmt.Errorf("agent.simulation.devices must be positive")
	}
	switch a.ServerAuth.Mode {
	case "mtls", "apikey", "none", "":
	default:
		return fmt.Errorf("agent.server_auth: unknown mode %q", a.ServerAuth.Mode)
	}
	if a.ServerAuth.Mode == "mtls" && (a.ServerAuth.CertFile == "" || a.ServerAuth.KeyFile == "") {
		return fmt.Errorf("agent.server_auth: mtls requires cert_file and key_file")
	}
	if a.Sinks.Kafka.Enabled() && a.Sinks.Kafka.Topic == "" {
		return fmt.Errorf("agent.sinks.kafka.topic is required when brokers are set")
	}
	if a.Sinks.MQTT.QoS > 2 {
		return fmt.Errorf("agent.sinks.mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

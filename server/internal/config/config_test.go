package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/netpulse/netpulse/pkg/advisor"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Agent section only; server section absent.
	p := writeConfig(t, `agent:
  server_endpoint: "localhost:50051"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.GRPCPort != DefaultGRPCPort {
		t.Errorf("grpc_port: got %d, want %d", cfg.Server.GRPCPort, DefaultGRPCPort)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Batch.TTL != DefaultBatchTTL {
		t.Errorf("batch.ttl: got %v, want %v", cfg.Server.Batch.TTL, DefaultBatchTTL)
	}
	if cfg.Server.Stream.Interval != DefaultStreamInterval {
		t.Errorf("stream.interval: got %v", cfg.Server.Stream.Interval)
	}
	if cfg.Server.Advisor.Enabled {
		t.Error("advisor should be disabled by default")
	}
	if cfg.Server.Advisor.Model != advisor.DefaultModel {
		t.Errorf("advisor.model: got %q", cfg.Server.Advisor.Model)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  grpc_port: 9090
  http_port: 9091
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-np-key
  batch:
    ttl: 10m
    max_devices: 50
  advisor:
    enabled: true
    base_url: https://llm.internal
    model: tiny
    api_key_env: LLM_KEY
    timeout: 3s
  alerts:
    rules:
      - name: slow
        condition: latency > 40
        severity: critical
    webhooks:
      - type: slack
        url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.GRPCPort != 9090 {
		t.Errorf("grpc_port: got %d, want 9090", cfg.Server.GRPCPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != "x-np-key" {
		t.Errorf("header: got %q, want x-np-key", cfg.Server.Auth.EffectiveHeader())
	}
	if cfg.Server.Batch.TTL != 10*time.Minute || cfg.Server.Batch.MaxDevices != 50 {
		t.Errorf("batch: got %+v", cfg.Server.Batch)
	}
	cc := cfg.Server.Advisor.ClientConfig()
	want := advisor.Config{BaseURL: "https://llm.internal", Model: "tiny", APIKeyEnv: "LLM_KEY", Timeout: 3 * time.Second}
	if cc != want {
		t.Errorf("ClientConfig: got %+v, want %+v", cc, want)
	}
	if len(cfg.Server.Alerts.Rules) != 1 || cfg.Server.Alerts.Rules[0].Condition != "latency > 40" {
		t.Errorf("alerts.rules: got %+v", cfg.Server.Alerts.Rules)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown auth mode", "server:\n  auth:\n    mode: oauth2\n"},
		{"port out of range", "server:\n  grpc_port: 70000\n"},
		{"negative ttl", "server:\n  batch:\n    ttl: -1m\n"},
		{"zero max devices", "server:\n  batch:\n    max_devices: 0\n"},
		{"zero stream interval", "server:\n  stream:\n    interval: 0s\n"},
		{"rule without name", "server:\n  alerts:\n    rules:\n      - condition: latency > 1\n"},
		{"rule without condition", "server:\n  alerts:\n    rules:\n      - name: x\n"},
		{"unknown webhook", "server:\n  alerts:\n    webhooks:\n      - type: pager\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestWebhookConfig_URL(t *testing.T) {
	t.Setenv("TEAMS_URL", "https://teams.example.com/webhook")
	w := WebhookConfig{Type: "teams", URLEnv: "TEAMS_URL"}
	if got := w.URL(); got != "https://teams.example.com/webhook" {
		t.Errorf("URL(): got %q", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

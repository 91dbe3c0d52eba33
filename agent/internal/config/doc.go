// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: the `agent:` section parsed from YAML
//   - AgentConfig: server_endpoint, interval, buffer_size, simulation,
//     server_auth, sinks
//   - SimulationConfig: devices, seed, weights
//   - AuthConfig: mode (mtls|apikey|none), cert/key/ca files, header, key_env;
//     Key() resolves the API key from the environment
//   - SinksConfig: optional kafka and mqtt destinations
//
// Load(path) reads the YAML file, applies defaults (10s interval, 1000 buffer,
// 5 devices, 0.2/0.4/0.4 weights), then validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory, so
// rename-based saves keep working, and debounces bursts of events into one
// reload. onChange only sees configs whose simulation block or interval
// changed; everything else needs a restart.
package config

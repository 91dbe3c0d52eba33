// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - GRPCPort          port for the gRPC receiver (default 50051)
//   - HTTPPort          port for the REST API and WebSocket hub (default 8080)
//   - Auth.Mode         "apikey" or "none"
//   - Auth.KeyEnv       environment variable holding the expected API key
//   - Auth.Header       gRPC metadata/HTTP header name (default "x-api-key")
//   - Batch.TTL         how long a received batch stays queryable (default 15m)
//   - Batch.MaxDevices  cap for on-demand generation (default 1000)
//   - Stream.Interval   WebSocket broadcast cadence (default 5s)
//   - Advisor.*         suggestion endpoint; disabled unless Advisor.Enabled
//   - Alerts.*          per-device rules and webhook targets
//
// Load(path) applies defaults before unmarshalling, then validates.
package config

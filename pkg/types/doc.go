// Package types defines the shared Go types used by the agent, the server and
// the CLI. These are the canonical in-memory representations of a simulated
// device batch; the JSON field names are the external contract.
package types

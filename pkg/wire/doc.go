// Package wire defines the agent→server gRPC contract: the BatchService with
// its single unary SendBatch RPC.
//
// Messages are plain Go structs (types.Batch, SendResponse) carried by a JSON
// codec registered under the "json" content-subtype, so no protoc step is
// needed. The client stub always requests that subtype; the server picks the
// codec from the incoming content-type.
package wire

// Package ws implements the WebSocket hub for netpulse-server.
//
// Hub streams the newest live batch to every connected client on a
// configurable interval (default 5s). Clients receive the current batch as
// soon as they connect. A client whose outgoing buffer fills up is dropped.
//
// Message format sent to clients:
//
//	{
//	  "event": "batch",
//	  "data":  { /* same schema as GET /api/v1/batches/latest */ }
//	}
//
// While the store is empty the event is "waiting" and data is null.
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The server mounts the hub at /ws/stream.
package ws

// Package receiver implements wire.BatchServiceServer, the gRPC endpoint
// that accepts device batches from netpulse-agent instances.
//
// Receiver.SendBatch rejects batches without an ID, without devices, or with
// blank or duplicate device IDs (codes.InvalidArgument). Batches that arrive
// unscored are normalized and scored with the batch's own weights, or the
// defaults when none are attached. Accepted batches are stored, evaluated by
// the alert engine, and counted. Authentication is enforced upstream by the
// gRPC server interceptor (see package auth).
package receiver

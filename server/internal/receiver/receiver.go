package receiver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/netpulse/netpulse/pkg/compute"
	"github.com/netpulse/netpulse/pkg/types"
	"github.com/netpulse/netpulse/pkg/wire"
	"github.com/netpulse/netpulse/server/internal/metrics"
	"github.com/netpulse/netpulse/server/internal/store"
)

// Evaluator is notified of every accepted batch. *alerts.Engine satisfies it.
type Evaluator interface {
	Evaluate(b *types.Batch, origin string)
}

// Receiver implements wire.BatchServiceServer.
type Receiver struct {
	wire.UnimplementedBatchServiceServer
	store   *store.Store
	alerts  Evaluator
	metrics *metrics.Metrics
}

// New creates a Receiver that writes accepted batches to st. alerts and m
// may be nil.
func New(st *store.Store, alerts Evaluator, m *metrics.Metrics) *Receiver {
	return &Receiver{store: st, alerts: alerts, metrics: m}
}

// SendBatch is the unary RPC handler called by netpulse-agent instances.
func (r *Receiver) SendBatch(ctx context.Context, b *types.Batch) (*wire.SendResponse, error) {
	if err := validate(b); err != nil {
		return nil, err
	}

	if !scored(b.Devices) {
		w := types.DefaultWeights()
		if b.Weights != nil {
			w = *b.Weights
		}
		devices, err := compute.Pipeline(b.Devices, w)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "score batch: %v", err)
		}
		b.Devices = devices
		b.Weights = &w
	}

	r.store.Put(b, store.OriginAgent)
	if r.alerts != nil {
		r.alerts.Evaluate(b, store.OriginAgent)
	}
	r.metrics.BatchReceived(len(b.Devices))

	slog.Debug("receiver: batch stored",
		"batch_id", b.ID,
		"devices", len(b.Devices),
		"top_device", b.Devices[0].DeviceID,
		"top_score", b.Devices[0].Score(),
	)

	return &wire.SendResponse{Ok: true}, nil
}

func validate(b *types.Batch) error {
	if b == nil || b.ID == "" {
		return status.Error(codes.InvalidArgument, "batch_id is required")
	}
	if len(b.Devices) == 0 {
		return status.Error(codes.InvalidArgument, "batch has no devices")
	}
	seen := make(map[string]struct{}, len(b.Devices))
	for _, d := range b.Devices {
		if d.DeviceID == "" {
			return status.Error(codes.InvalidArgument, "device_id is required")
		}
		if _, dup := seen[d.DeviceID]; dup {
			return status.Errorf(codes.InvalidArgument, "duplicate device_id %q", d.DeviceID)
		}
		seen[d.DeviceID] = struct{}{}
	}
	return nil
}

func scored(devices []types.Device) bool {
	for _, d := range devices {
		if !d.IsNormalized() || d.OptimizationScore == nil {
			return false
		}
	}
	return true
}

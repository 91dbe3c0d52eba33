package wire

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/netpulse/netpulse/pkg/types"
)

type echoServer struct {
	UnimplementedBatchServiceServer
	got chan *types.Batch
}

func (s *echoServer) SendBatch(_ context.Context, b *types.Batch) (*SendResponse, error) {
	s.got <- b
	return &SendResponse{Ok: true, Message: b.ID}, nil
}

func dial(t *testing.T, srv BatchServiceServer) BatchServiceClient {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := grpc.NewServer()
	RegisterBatchServiceServer(gs, srv)
	go gs.Serve(lis) //nolint:errcheck
	t.Cleanup(gs.Stop)

	conn, err := grpc.Dial(lis.Addr().String(), //nolint:staticcheck
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewBatchServiceClient(conn)
}

func TestSendBatch_RoundTrip(t *testing.T) {
	srv := &echoServer{got: make(chan *types.Batch, 1)}
	client := dial(t, srv)

	seed := int64(42)
	in := &types.Batch{
		ID:          "b-1",
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:        &seed,
		Weights:     &types.Weights{Bandwidth: 0.2, Latency: 0.4, PacketLoss: 0.4},
		Devices: []types.Device{
			{DeviceID: "Device_1", BandwidthUsage: 12.5, Latency: 7.25, PacketLoss: 0.5,
				NormalizedBandwidth: types.Float(0), NormalizedLatency: types.Float(1),
				NormalizedPacketLoss: types.Float(0.5), OptimizationScore: types.Float(0.6)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := client.SendBatch(ctx, in)
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if !resp.Ok || resp.Message != "b-1" {
		t.Errorf("response = %+v, want ok with message b-1", resp)
	}

	got := <-srv.got
	if got.ID != "b-1" || *got.Seed != 42 {
		t.Errorf("batch header = %q seed %d", got.ID, *got.Seed)
	}
	if len(got.Devices) != 1 || *got.Devices[0].NormalizedLatency != 1 {
		t.Errorf("devices = %+v", got.Devices)
	}
	if !got.GeneratedAt.Equal(in.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, in.GeneratedAt)
	}
}

func TestSendBatch_Unimplemented(t *testing.T) {
	client := dial(t, UnimplementedBatchServiceServer{})

	_, err := client.SendBatch(context.Background(), &types.Batch{ID: "x"})
	if code := status.Code(err); code != codes.Unimplemented {
		t.Errorf("code = %v, want Unimplemented", code)
	}
}

func TestCodec_Name(t *testing.T) {
	if (jsonCodec{}).Name() != CodecName {
		t.Errorf("codec name = %q", (jsonCodec{}).Name())
	}
}

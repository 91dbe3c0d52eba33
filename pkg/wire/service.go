package wire

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/netpulse/netpulse/pkg/types"
)

const (
	serviceName     = "netpulse.v1.BatchService"
	sendBatchMethod = "/" + serviceName + "/SendBatch"
)

// SendResponse acknowledges a SendBatch call.
type SendResponse struct {
	Ok      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// BatchServiceClient is the client API for BatchService.
type BatchServiceClient interface {
	SendBatch(ctx context.Context, in *types.Batch, opts ...grpc.CallOption) (*SendResponse, error)
}

type batchServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewBatchServiceClient returns a client bound to cc.
func NewBatchServiceClient(cc grpc.ClientConnInterface) BatchServiceClient {
	return &batchServiceClient{cc: cc}
}

func (c *batchServiceClient) SendBatch(ctx context.Context, in *types.Batch, opts ...grpc.CallOption) (*SendResponse, error) {
	out := new(SendResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, sendBatchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchServiceServer is the server API for BatchService.
type BatchServiceServer interface {
	SendBatch(context.Context, *types.Batch) (*SendResponse, error)
}

// UnimplementedBatchServiceServer can be embedded for forward compatibility.
type UnimplementedBatchServiceServer struct{}

func (UnimplementedBatchServiceServer) SendBatch(context.Context, *types.Batch) (*SendResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendBatch not implemented")
}

// RegisterBatchServiceServer registers srv on s.
func RegisterBatchServiceServer(s grpc.ServiceRegistrar, srv BatchServiceServer) {
	s.RegisterService(&batchServiceDesc, srv)
}

func sendBatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(types.Batch)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BatchServiceServer).SendBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: sendBatchMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BatchServiceServer).SendBatch(ctx, req.(*types.Batch))
	}
	return interceptor(ctx, in, info, handler)
}

var batchServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendBatch",
			Handler:    sendBatchHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netpulse/v1/batch",
}

package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// passHandler is a grpc.UnaryHandler that returns ("ok", nil).
func passHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "ok", nil
}

func callWithKey(t *testing.T, interceptor grpc.UnaryServerInterceptor, header, key string) (interface{}, error) {
	t.Helper()
	ctx := context.Background()
	if key != "" {
		ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(header, key))
	}
	return interceptor(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)
}

func TestAPIKeyInterceptor_PassThrough(t *testing.T) {
	cases := map[string]grpc.UnaryServerInterceptor{
		"mode none": APIKeyInterceptor("none", "x-api-key", "secret"),
		"mode mtls": APIKeyInterceptor("mtls", "x-api-key", "secret"),
		"empty key": APIKeyInterceptor(ModeAPIKey, "x-api-key", ""),
	}
	for name, i := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := i(context.Background(), nil, &grpc.UnaryServerInfo{}, passHandler)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res != "ok" {
				t.Errorf("result: got %v, want ok", res)
			}
		})
	}
}

func TestAPIKeyInterceptor_CorrectKey_Passes(t *testing.T) {
	i := APIKeyInterceptor(ModeAPIKey, "x-api-key", "supersecret")
	res, err := callWithKey(t, i, "x-api-key", "supersecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result: got %v, want ok", res)
	}
}

func TestAPIKeyInterceptor_Rejected(t *testing.T) {
	i := APIKeyInterceptor(ModeAPIKey, "x-api-key", "supersecret")

	cases := map[string]context.Context{
		"wrong key":      metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "wrong")),
		"prefix of key":  metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "super")),
		"missing header": metadata.NewIncomingContext(context.Background(), metadata.MD{}),
		"no metadata":    context.Background(),
	}
	for name, ctx := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := i(ctx, nil, &grpc.UnaryServerInfo{}, passHandler)
			if code := status.Code(err); code != codes.Unauthenticated {
				t.Errorf("code: got %v, want Unauthenticated", code)
			}
		})
	}
}

func TestAPIKeyInterceptor_CustomHeader(t *testing.T) {
	i := APIKeyInterceptor(ModeAPIKey, "x-netpulse-token", "mytoken")
	if _, err := callWithKey(t, i, "x-netpulse-token", "mytoken"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

package capacity

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/linkcap/core"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "linkcap.v1.CapacityService"
	// EvaluateFullMethod is the full RPC path of Evaluate.
	EvaluateFullMethod = "/" + ServiceName + "/Evaluate"
)

// CapacityServiceServer is the server API for linkcap.v1.CapacityService.
// Messages are google.protobuf.Struct so no generated stubs are needed.
type CapacityServiceServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// CapacityServiceDesc describes linkcap.v1.CapacityService for grpc.Server.
var CapacityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CapacityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "linkcap/v1/capacity.proto",
}

// RegisterCapacityServiceServer registers srv on s.
func RegisterCapacityServiceServer(s grpc.ServiceRegistrar, srv CapacityServiceServer) {
	s.RegisterService(&CapacityServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CapacityServiceServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: EvaluateFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CapacityServiceServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client is a thin client for linkcap.v1.CapacityService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// EvaluateStruct sends a raw request.
func (c *Client) EvaluateStruct(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, EvaluateFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate encodes lb and sends it.
func (c *Client) Evaluate(ctx context.Context, lb core.LinkBudget, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := EncodeLinkBudget(lb)
	if err != nil {
		return nil, err
	}
	return c.EvaluateStruct(ctx, in, opts...)
}

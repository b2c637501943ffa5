package arming

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "arming.v1.ArmingControl"

// Full method names.
const (
	GetPanelStateMethod      = "/" + ServiceName + "/GetPanelState"
	SetPanelStateMethod      = "/" + ServiceName + "/SetPanelState"
	ReevaluateBuildingMethod = "/" + ServiceName + "/ReevaluateBuilding"
	ReconcileAllMethod       = "/" + ServiceName + "/ReconcileAll"
)

// ArmingControlServer is the server API of the control service.
type ArmingControlServer interface {
	GetPanelState(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BoolValue, error)
	SetPanelState(ctx context.Context, req *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error)
	ReevaluateBuilding(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	ReconcileAll(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
}

// ServiceDesc describes the control service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{ //nolint:gochecknoglobals // Descriptor is immutable after init.
	ServiceName: ServiceName,
	HandlerType: (*ArmingControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPanelState", Handler: getPanelStateHandler},
		{MethodName: "SetPanelState", Handler: setPanelStateHandler},
		{MethodName: "ReevaluateBuilding", Handler: reevaluateBuildingHandler},
		{MethodName: "ReconcileAll", Handler: reconcileAllHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arming/v1/arming.proto",
}

// RegisterArmingControlServer registers srv on s.
func RegisterArmingControlServer(s grpc.ServiceRegistrar, srv ArmingControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getPanelStateHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ArmingControlServer).GetPanelState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetPanelStateMethod}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ArmingControlServer).GetPanelState(ctx, req.(*emptypb.Empty))
	})
}

func setPanelStateHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.BoolValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ArmingControlServer).SetPanelState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SetPanelStateMethod}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ArmingControlServer).SetPanelState(ctx, req.(*wrapperspb.BoolValue))
	})
}

func reevaluateBuildingHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ArmingControlServer).ReevaluateBuilding(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReevaluateBuildingMethod}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ArmingControlServer).ReevaluateBuilding(ctx, req.(*wrapperspb.Int64Value))
	})
}

func reconcileAllHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ArmingControlServer).ReconcileAll(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReconcileAllMethod}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ArmingControlServer).ReconcileAll(ctx, req.(*emptypb.Empty))
	})
}

// ArmingControlClient calls the control service over a connection.
type ArmingControlClient struct {
	cc grpc.ClientConnInterface
}

// NewArmingControlClient creates a client on cc.
func NewArmingControlClient(cc grpc.ClientConnInterface) *ArmingControlClient {
	return &ArmingControlClient{cc: cc}
}

// GetPanelState returns the global panel flag.
func (c *ArmingControlClient) GetPanelState(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, GetPanelStateMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// SetPanelState stores the global panel flag.
func (c *ArmingControlClient) SetPanelState(
	ctx context.Context,
	in *wrapperspb.BoolValue,
	opts ...grpc.CallOption,
) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, SetPanelStateMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// ReevaluateBuilding reconciles one building.
func (c *ArmingControlClient) ReevaluateBuilding(
	ctx context.Context,
	in *wrapperspb.Int64Value,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ReevaluateBuildingMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// ReconcileAll runs one pass over all buildings.
func (c *ArmingControlClient) ReconcileAll(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, ReconcileAllMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
